package liquidation

import (
	"context"

	"keel/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

const singletonID = 1

type liquidationStore struct {
	db *db.DB
}

// New new liquidation store
func New(db *db.DB) core.LiquidationStore {
	return &liquidationStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		if err := db.Update().Model(core.LiquidationState{}).AutoMigrate(core.LiquidationState{}).Error; err != nil {
			return err
		}
		if err := db.Update().Model(core.LiquidationParams{}).AutoMigrate(core.LiquidationParams{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *liquidationStore) GetState(ctx context.Context) (*core.LiquidationState, error) {
	var state core.LiquidationState
	err := s.db.View().Where("id=?", singletonID).First(&state).Error
	if err == nil {
		return &state, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}

	state = core.LiquidationState{
		ID:                    singletonID,
		CurrentOnAuctionCoins: decimal.Zero,
		OnAuctionCoinLimit:    decimal.Zero,
	}
	if err := s.db.Update().Where("id=?", singletonID).FirstOrCreate(&state).Error; err != nil {
		return nil, err
	}

	return &state, nil
}

func (s *liquidationStore) UpdateState(ctx context.Context, tx *db.DB, state *core.LiquidationState) error {
	version := state.Version
	state.Version++

	res := tx.Update().Model(core.LiquidationState{}).
		Where("id=? and version=?", singletonID, version).
		Updates(map[string]interface{}{
			"current_on_auction_coins": state.CurrentOnAuctionCoins,
			"on_auction_coin_limit":    state.OnAuctionCoinLimit,
			"version":                  state.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrOptimisticLock
	}

	return nil
}

func (s *liquidationStore) CreateParams(ctx context.Context, tx *db.DB, params *core.LiquidationParams) error {
	return tx.Update().
		Where("collateral_symbol=?", params.CollateralSymbol).
		FirstOrCreate(params).Error
}

func (s *liquidationStore) FindParams(ctx context.Context, symbol string) (*core.LiquidationParams, error) {
	var params core.LiquidationParams
	if err := s.db.View().Where("collateral_symbol=?", symbol).First(&params).Error; err != nil {
		return nil, err
	}

	return &params, nil
}

func (s *liquidationStore) UpdateParams(ctx context.Context, tx *db.DB, params *core.LiquidationParams) error {
	version := params.Version
	params.Version++

	res := tx.Update().Model(core.LiquidationParams{}).
		Where("collateral_symbol=? and version=?", params.CollateralSymbol, version).
		Updates(map[string]interface{}{
			"penalty":  params.Penalty,
			"quantity": params.Quantity,
			"venue":    params.Venue,
			"version":  params.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrOptimisticLock
	}

	return nil
}
