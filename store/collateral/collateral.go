package collateral

import (
	"context"

	"keel/core"

	"github.com/fox-one/pkg/store/db"
)

type collateralStore struct {
	db *db.DB
}

// New new collateral store
func New(db *db.DB) core.CollateralStore {
	return &collateralStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.CollateralType{})
		if err := tx.AutoMigrate(core.CollateralType{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *collateralStore) Create(ctx context.Context, tx *db.DB, collateral *core.CollateralType) error {
	return tx.Update().Where("symbol=?", collateral.Symbol).FirstOrCreate(collateral).Error
}

func (s *collateralStore) Find(ctx context.Context, symbol string) (*core.CollateralType, error) {
	var collateral core.CollateralType
	if err := s.db.View().Where("symbol=?", symbol).First(&collateral).Error; err != nil {
		return nil, err
	}

	return &collateral, nil
}

func (s *collateralStore) All(ctx context.Context) ([]*core.CollateralType, error) {
	var collaterals []*core.CollateralType
	if err := s.db.View().Order("id").Find(&collaterals).Error; err != nil {
		return nil, err
	}

	return collaterals, nil
}

func (s *collateralStore) Update(ctx context.Context, tx *db.DB, collateral *core.CollateralType) error {
	version := collateral.Version
	collateral.Version++

	res := tx.Update().Model(core.CollateralType{}).
		Where("symbol=? and version=?", collateral.Symbol, version).
		Updates(collateral)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrOptimisticLock
	}

	return nil
}
