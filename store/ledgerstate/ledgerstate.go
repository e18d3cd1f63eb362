package ledgerstate

import (
	"context"

	"keel/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

const singletonID = 1

type ledgerStateStore struct {
	db *db.DB
}

// New new ledger state store
func New(db *db.DB) core.LedgerStateStore {
	return &ledgerStateStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		return db.Update().Model(core.LedgerState{}).AutoMigrate(core.LedgerState{}).Error
	})
}

// Get returns the singleton state row, creating the default on first use.
func (s *ledgerStateStore) Get(ctx context.Context) (*core.LedgerState, error) {
	var state core.LedgerState
	err := s.db.View().Where("id=?", singletonID).First(&state).Error
	if err == nil {
		return &state, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}

	state = core.LedgerState{
		ID:                 singletonID,
		Enabled:            true,
		GlobalDebt:         decimal.Zero,
		GlobalUnbackedDebt: decimal.Zero,
		GlobalDebtCeiling:  decimal.Zero,
	}
	if err := s.db.Update().Where("id=?", singletonID).FirstOrCreate(&state).Error; err != nil {
		return nil, err
	}

	return &state, nil
}

func (s *ledgerStateStore) Update(ctx context.Context, tx *db.DB, state *core.LedgerState) error {
	version := state.Version
	state.Version++

	res := tx.Update().Model(core.LedgerState{}).
		Where("id=? and version=?", singletonID, version).
		Updates(map[string]interface{}{
			"enabled":              state.Enabled,
			"global_debt":          state.GlobalDebt,
			"global_unbacked_debt": state.GlobalUnbackedDebt,
			"global_debt_ceiling":  state.GlobalDebtCeiling,
			"version":              state.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrOptimisticLock
	}

	return nil
}
