package vault

import (
	"context"

	"keel/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

type vaultStore struct {
	db *db.DB
}

// New new vault store
func New(db *db.DB) core.VaultStore {
	return &vaultStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		if err := db.Update().Model(core.Vault{}).AutoMigrate(core.Vault{}).Error; err != nil {
			return err
		}
		if err := db.Update().Model(core.VaultDelegation{}).AutoMigrate(core.VaultDelegation{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *vaultStore) Create(ctx context.Context, tx *db.DB, vault *core.Vault) error {
	return tx.Update().
		Where("collateral_symbol=? and owner=?", vault.CollateralSymbol, vault.Owner).
		FirstOrCreate(vault).Error
}

func (s *vaultStore) Find(ctx context.Context, symbol, owner string) (*core.Vault, error) {
	var vault core.Vault
	if err := s.db.View().Where("collateral_symbol=? and owner=?", symbol, owner).First(&vault).Error; err != nil {
		return nil, err
	}

	return &vault, nil
}

// FindOrZero returns a zero-valued vault when none exists yet; a vault row
// is only persisted once it is first mutated.
func (s *vaultStore) FindOrZero(ctx context.Context, symbol, owner string) (*core.Vault, error) {
	vault, err := s.Find(ctx, symbol, owner)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return &core.Vault{
				CollateralSymbol: symbol,
				Owner:            owner,
				LockedCollateral: decimal.Zero,
				GeneratedDebt:    decimal.Zero,
			}, nil
		}
		return nil, err
	}

	return vault, nil
}

func (s *vaultStore) ListByCollateral(ctx context.Context, symbol string, fromID uint64, limit int) ([]*core.Vault, error) {
	var vaults []*core.Vault
	if err := s.db.View().
		Where("collateral_symbol=? and id>?", symbol, fromID).
		Order("id").Limit(limit).
		Find(&vaults).Error; err != nil {
		return nil, err
	}

	return vaults, nil
}

func (s *vaultStore) Update(ctx context.Context, tx *db.DB, vault *core.Vault) error {
	version := vault.Version
	vault.Version++

	res := tx.Update().Model(core.Vault{}).
		Where("collateral_symbol=? and owner=? and version=?", vault.CollateralSymbol, vault.Owner, version).
		Updates(map[string]interface{}{
			"locked_collateral": vault.LockedCollateral,
			"generated_debt":    vault.GeneratedDebt,
			"saviour":           vault.Saviour,
			"version":           vault.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrOptimisticLock
	}

	return nil
}

func (s *vaultStore) Approve(ctx context.Context, tx *db.DB, owner, delegate string) error {
	delegation := core.VaultDelegation{Owner: owner, Delegate: delegate}
	return tx.Update().
		Where("owner=? and delegate=?", owner, delegate).
		FirstOrCreate(&delegation).Error
}

func (s *vaultStore) Deny(ctx context.Context, tx *db.DB, owner, delegate string) error {
	return tx.Update().
		Where("owner=? and delegate=?", owner, delegate).
		Delete(core.VaultDelegation{}).Error
}

func (s *vaultStore) Allowed(ctx context.Context, owner, delegate string) (bool, error) {
	var count int64
	if err := s.db.View().Model(core.VaultDelegation{}).
		Where("owner=? and delegate=?", owner, delegate).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}
