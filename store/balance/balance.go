package balance

import (
	"context"

	"keel/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

type balanceStore struct {
	db *db.DB
}

// New new balance store
func New(db *db.DB) core.BalanceStore {
	return &balanceStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		if err := db.Update().Model(core.CollateralBalance{}).AutoMigrate(core.CollateralBalance{}).Error; err != nil {
			return err
		}
		if err := db.Update().Model(core.CoinBalance{}).AutoMigrate(core.CoinBalance{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *balanceStore) FindCollateral(ctx context.Context, symbol, account string) (*core.CollateralBalance, error) {
	var balance core.CollateralBalance
	err := s.db.View().Where("collateral_symbol=? and account=?", symbol, account).First(&balance).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return &core.CollateralBalance{
				CollateralSymbol: symbol,
				Account:          account,
				Balance:          decimal.Zero,
			}, nil
		}
		return nil, err
	}

	return &balance, nil
}

// AddCollateral applies a signed delta inside tx; a negative result aborts
// the whole transition.
func (s *balanceStore) AddCollateral(ctx context.Context, tx *db.DB, symbol, account string, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}

	var balance core.CollateralBalance
	err := tx.Update().Where("collateral_symbol=? and account=?", symbol, account).First(&balance).Error
	if err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			return err
		}
		balance = core.CollateralBalance{
			CollateralSymbol: symbol,
			Account:          account,
			Balance:          decimal.Zero,
		}
		if err := tx.Update().Create(&balance).Error; err != nil {
			return err
		}
	}

	next := balance.Balance.Add(delta)
	if next.IsNegative() {
		return core.ErrInsufficientBalance
	}

	version := balance.Version
	res := tx.Update().Model(core.CollateralBalance{}).
		Where("collateral_symbol=? and account=? and version=?", symbol, account, version).
		Updates(map[string]interface{}{
			"balance": next,
			"version": version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrOptimisticLock
	}

	return nil
}

func (s *balanceStore) FindCoin(ctx context.Context, account string) (*core.CoinBalance, error) {
	var balance core.CoinBalance
	err := s.db.View().Where("account=?", account).First(&balance).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return &core.CoinBalance{
				Account: account,
				Balance: decimal.Zero,
				Debt:    decimal.Zero,
			}, nil
		}
		return nil, err
	}

	return &balance, nil
}

// AddCoin applies signed coin and unbacked-debt deltas inside tx. Either
// balance going negative aborts the transition.
func (s *balanceStore) AddCoin(ctx context.Context, tx *db.DB, account string, balanceDelta, debtDelta decimal.Decimal) error {
	if balanceDelta.IsZero() && debtDelta.IsZero() {
		return nil
	}

	var balance core.CoinBalance
	err := tx.Update().Where("account=?", account).First(&balance).Error
	if err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			return err
		}
		balance = core.CoinBalance{
			Account: account,
			Balance: decimal.Zero,
			Debt:    decimal.Zero,
		}
		if err := tx.Update().Create(&balance).Error; err != nil {
			return err
		}
	}

	nextBalance := balance.Balance.Add(balanceDelta)
	nextDebt := balance.Debt.Add(debtDelta)
	if nextBalance.IsNegative() || nextDebt.IsNegative() {
		return core.ErrInsufficientBalance
	}

	version := balance.Version
	res := tx.Update().Model(core.CoinBalance{}).
		Where("account=? and version=?", account, version).
		Updates(map[string]interface{}{
			"balance": nextBalance,
			"debt":    nextDebt,
			"version": version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrOptimisticLock
	}

	return nil
}

func (s *balanceStore) SumCollateral(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := s.db.View().Model(core.CollateralBalance{}).
		Select("sum(balance)").
		Where("collateral_symbol=?", symbol).
		Row().Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}

	return sum.Decimal, nil
}
