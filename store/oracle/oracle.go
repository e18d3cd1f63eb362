package oracle

import (
	"context"

	"keel/core"
	"keel/pkg/number"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

const singletonID = 1

type relayStore struct {
	db *db.DB
}

// New new relay store
func New(db *db.DB) core.RelayStore {
	return &relayStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		if err := db.Update().Model(core.RedemptionState{}).AutoMigrate(core.RedemptionState{}).Error; err != nil {
			return err
		}
		if err := db.Update().Model(core.RelayParams{}).AutoMigrate(core.RelayParams{}).Error; err != nil {
			return err
		}
		if err := db.Update().Model(core.PriceObservation{}).AutoMigrate(core.PriceObservation{}).Error; err != nil {
			return err
		}

		return nil
	})
}

// GetRedemption returns the redemption singleton, initialized at par: price
// and rate both one, drift disabled until governance sets bounds.
func (s *relayStore) GetRedemption(ctx context.Context) (*core.RedemptionState, error) {
	var state core.RedemptionState
	err := s.db.View().Where("id=?", singletonID).First(&state).Error
	if err == nil {
		return &state, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}

	state = core.RedemptionState{
		ID:             singletonID,
		Price:          number.One,
		Rate:           number.One,
		RateLowerBound: number.One,
		RateUpperBound: number.One,
	}
	if err := s.db.Update().Where("id=?", singletonID).FirstOrCreate(&state).Error; err != nil {
		return nil, err
	}

	return &state, nil
}

func (s *relayStore) UpdateRedemption(ctx context.Context, tx *db.DB, state *core.RedemptionState) error {
	version := state.Version
	state.Version++

	res := tx.Update().Model(core.RedemptionState{}).
		Where("id=? and version=?", singletonID, version).
		Updates(map[string]interface{}{
			"price":            state.Price,
			"rate":             state.Rate,
			"rate_lower_bound": state.RateLowerBound,
			"rate_upper_bound": state.RateUpperBound,
			"update_time":      state.UpdateTime,
			"version":          state.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrOptimisticLock
	}

	return nil
}

func (s *relayStore) CreateParams(ctx context.Context, tx *db.DB, params *core.RelayParams) error {
	return tx.Update().
		Where("collateral_symbol=?", params.CollateralSymbol).
		FirstOrCreate(params).Error
}

func (s *relayStore) FindParams(ctx context.Context, symbol string) (*core.RelayParams, error) {
	var params core.RelayParams
	if err := s.db.View().Where("collateral_symbol=?", symbol).First(&params).Error; err != nil {
		return nil, err
	}

	return &params, nil
}

func (s *relayStore) UpdateParams(ctx context.Context, tx *db.DB, params *core.RelayParams) error {
	version := params.Version
	params.Version++

	res := tx.Update().Model(core.RelayParams{}).
		Where("collateral_symbol=? and version=?", params.CollateralSymbol, version).
		Updates(map[string]interface{}{
			"safety_ratio":      params.SafetyRatio,
			"liquidation_ratio": params.LiquidationRatio,
			"version":           params.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrOptimisticLock
	}

	return nil
}

func (s *relayStore) FindObservation(ctx context.Context, symbol string) (*core.PriceObservation, error) {
	var observation core.PriceObservation
	err := s.db.View().Where("collateral_symbol=?", symbol).First(&observation).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return &core.PriceObservation{
				CollateralSymbol: symbol,
				Price:            decimal.Zero,
				Valid:            false,
			}, nil
		}
		return nil, err
	}

	return &observation, nil
}

func (s *relayStore) UpsertObservation(ctx context.Context, tx *db.DB, symbol string, price decimal.Decimal, valid bool) error {
	var observation core.PriceObservation
	err := tx.Update().Where("collateral_symbol=?", symbol).First(&observation).Error
	if err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			return err
		}
		observation = core.PriceObservation{
			CollateralSymbol: symbol,
			Price:            price,
			Valid:            valid,
		}
		return tx.Update().Create(&observation).Error
	}

	res := tx.Update().Model(core.PriceObservation{}).
		Where("collateral_symbol=? and version=?", symbol, observation.Version).
		Updates(map[string]interface{}{
			"price":   price,
			"valid":   valid,
			"version": observation.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrOptimisticLock
	}

	return nil
}
