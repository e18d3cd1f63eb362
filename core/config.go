package core

import (
	"time"

	"github.com/fox-one/pkg/store/db"
)

// Config keel config
type Config struct {
	App       App             `json:"app"`
	DB        db.Config       `json:"db"`
	PriceFeed PriceFeedConfig `json:"price_feed"`
	Worker    WorkerConfig    `json:"worker"`
	Admins    []string        `json:"admins"`
}

// App app config
type App struct {
	Genesis  int64  `json:"genesis"`
	Location string `json:"location"`
}

// PriceFeedConfig external observation source config
type PriceFeedConfig struct {
	EndPoint string        `json:"end_point" valid:"required"`
	CacheTTL time.Duration `json:"cache_ttl"`
}

// WorkerConfig worker cadences
type WorkerConfig struct {
	PriceInterval  time.Duration `json:"price_interval"`
	KeeperInterval time.Duration `json:"keeper_interval"`
	KeeperBatch    int           `json:"keeper_batch" valid:"range(1|2000)"`
}

// IsAdmin check if the user is admin
func (c *Config) IsAdmin(userID string) bool {
	if len(c.Admins) <= 0 {
		return false
	}

	for _, a := range c.Admins {
		if a == userID {
			return true
		}
	}

	return false
}
