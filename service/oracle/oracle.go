package oracle

import (
	"context"
	"fmt"
	"time"

	"keel/core"
	"keel/pkg/resthttp"

	"github.com/bluele/gcache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

type observation struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Valid  bool            `json:"valid"`
}

type priceFeed struct {
	endpoint string
	ttl      time.Duration
	cache    gcache.Cache
	sf       *singleflight.Group
}

// New new http price feed backed by a short-lived cache, so a burst of
// relay pushes does not hammer the upstream.
func New(cfg *core.Config) core.PriceFeed {
	ttl := cfg.PriceFeed.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &priceFeed{
		endpoint: cfg.PriceFeed.EndPoint,
		ttl:      ttl,
		cache:    gcache.New(256).LRU().Build(),
		sf:       &singleflight.Group{},
	}
}

func (f *priceFeed) Read(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	if v, err := f.cache.Get(symbol); err == nil {
		if ob, ok := v.(*observation); ok {
			return ob.Price, ob.Valid, nil
		}
	}

	v, err, _ := f.sf.Do(symbol, func() (interface{}, error) {
		ob, err := f.fetch(ctx, symbol)
		if err != nil {
			return nil, err
		}
		_ = f.cache.SetWithExpire(symbol, ob, f.ttl)
		return ob, nil
	})
	if err != nil {
		return decimal.Zero, false, err
	}

	ob := v.(*observation)
	return ob.Price, ob.Valid, nil
}

func (f *priceFeed) fetch(ctx context.Context, symbol string) (*observation, error) {
	url := fmt.Sprintf("%s/api/prices/%s", f.endpoint, symbol)
	resp, err := resthttp.Request(ctx).Get(url)
	if err != nil {
		return nil, err
	}

	var ob observation
	if err := resthttp.ParseResponse(resp, &ob); err != nil {
		return nil, err
	}

	return &ob, nil
}
