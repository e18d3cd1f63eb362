package auction

import (
	"context"

	"keel/core"
	"keel/pkg/number"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

const paramsID = 1

type auctionStore struct {
	db *db.DB
}

// New new auction store
func New(db *db.DB) core.AuctionStore {
	return &auctionStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		if err := db.Update().Model(core.Auction{}).AutoMigrate(core.Auction{}).Error; err != nil {
			return err
		}
		if err := db.Update().Model(core.AuctionParams{}).AutoMigrate(core.AuctionParams{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *auctionStore) Create(ctx context.Context, tx *db.DB, auction *core.Auction) error {
	return tx.Update().Create(auction).Error
}

func (s *auctionStore) Find(ctx context.Context, id uint64) (*core.Auction, error) {
	var auction core.Auction
	if err := s.db.View().Where("id=?", id).First(&auction).Error; err != nil {
		return nil, err
	}

	return &auction, nil
}

func (s *auctionStore) ListActive(ctx context.Context, fromID uint64, limit int) ([]*core.Auction, error) {
	var auctions []*core.Auction
	if err := s.db.View().
		Where("id>? and settled_at=0", fromID).
		Order("id").Limit(limit).
		Find(&auctions).Error; err != nil {
		return nil, err
	}

	return auctions, nil
}

func (s *auctionStore) List(ctx context.Context, fromID uint64, limit int) ([]*core.Auction, error) {
	var auctions []*core.Auction
	if err := s.db.View().
		Where("id>?", fromID).
		Order("id").Limit(limit).
		Find(&auctions).Error; err != nil {
		return nil, err
	}

	return auctions, nil
}

func (s *auctionStore) Update(ctx context.Context, tx *db.DB, auction *core.Auction) error {
	version := auction.Version
	auction.Version++

	res := tx.Update().Model(core.Auction{}).
		Where("id=? and version=?", auction.ID, version).
		Updates(map[string]interface{}{
			"collateral_to_sell": auction.CollateralToSell,
			"amount_to_raise":    auction.AmountToRaise,
			"settled_at":         auction.SettledAt,
			"version":            auction.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrOptimisticLock
	}

	return nil
}

// GetParams returns the discount schedule singleton, initialized neutral:
// every discount factor at one, so collateral clears at the relative price
// until governance sets a schedule.
func (s *auctionStore) GetParams(ctx context.Context) (*core.AuctionParams, error) {
	var params core.AuctionParams
	err := s.db.View().Where("id=?", paramsID).First(&params).Error
	if err == nil {
		return &params, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}

	params = core.AuctionParams{
		ID:                          paramsID,
		MinDiscount:                 number.One,
		MaxDiscount:                 number.One,
		PerSecondDiscountUpdateRate: number.One,
	}
	if err := s.db.Update().Where("id=?", paramsID).FirstOrCreate(&params).Error; err != nil {
		return nil, err
	}

	return &params, nil
}

func (s *auctionStore) UpdateParams(ctx context.Context, tx *db.DB, params *core.AuctionParams) error {
	version := params.Version
	params.Version++

	res := tx.Update().Model(core.AuctionParams{}).
		Where("id=? and version=?", paramsID, version).
		Updates(map[string]interface{}{
			"min_discount":                    params.MinDiscount,
			"max_discount":                    params.MaxDiscount,
			"per_second_discount_update_rate": params.PerSecondDiscountUpdateRate,
			"version":                         params.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrOptimisticLock
	}

	return nil
}
