package ledger

import (
	"context"

	"keel/core"
	"keel/pkg/number"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/fox-one/pkg/uuid"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

type ledgerService struct {
	db          *db.DB
	system      *core.System
	states      core.LedgerStateStore
	collaterals core.CollateralStore
	vaults      core.VaultStore
	balances    core.BalanceStore
	events      core.EventStore
	auth        *core.AuthSet
}

// New new ledger service
func New(
	db *db.DB,
	system *core.System,
	states core.LedgerStateStore,
	collaterals core.CollateralStore,
	vaults core.VaultStore,
	balances core.BalanceStore,
	events core.EventStore,
) core.Ledger {
	return &ledgerService{
		db:          db,
		system:      system,
		states:      states,
		collaterals: collaterals,
		vaults:      vaults,
		balances:    balances,
		events:      events,
		auth:        core.NewAuthSet(),
	}
}

func (s *ledgerService) AllowCaller(caller string) {
	s.auth.Allow(caller)
}

func (s *ledgerService) DenyCaller(caller string) {
	s.auth.Deny(caller)
}

func (s *ledgerService) authorized(caller string) bool {
	return s.system.IsAdmin(caller) || s.auth.Contains(caller)
}

// canUseAccount reports whether caller may spend from account: the account
// itself, an authorized component, or a registered delegate.
func (s *ledgerService) canUseAccount(ctx context.Context, account, caller string) (bool, error) {
	if caller == account || s.authorized(caller) {
		return true, nil
	}

	return s.vaults.Allowed(ctx, account, caller)
}

func (s *ledgerService) enabledState(ctx context.Context) (*core.LedgerState, error) {
	state, err := s.states.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !state.Enabled {
		return nil, core.ErrLedgerDisabled
	}

	return state, nil
}

func (s *ledgerService) InitCollateralType(ctx context.Context, caller, symbol string) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	if _, err := s.enabledState(ctx); err != nil {
		return err
	}

	if _, err := s.collaterals.Find(ctx, symbol); err == nil {
		return core.ErrCollateralAlreadyInitialized
	} else if !gorm.IsRecordNotFoundError(err) {
		return err
	}

	return s.db.Tx(func(tx *db.DB) error {
		collateral := &core.CollateralType{
			Symbol:           symbol,
			TotalDebt:        decimal.Zero,
			AccumulatedRate:  number.One,
			SafetyPrice:      decimal.Zero,
			LiquidationPrice: decimal.Zero,
			DebtCeiling:      decimal.Zero,
			DebtFloor:        decimal.Zero,
			TotalJoined:      decimal.Zero,
			TotalExited:      decimal.Zero,
		}
		if err := s.collaterals.Create(ctx, tx, collateral); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventCollateralInit, symbol, map[string]interface{}{
			"caller": caller,
		}))
	})
}

func (s *ledgerService) UpdateCollateralPrice(ctx context.Context, caller, symbol string, safetyPrice, liquidationPrice decimal.Decimal) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	if safetyPrice.IsNegative() || liquidationPrice.IsNegative() {
		return core.ErrInvalidPrice
	}

	collateral, err := s.collaterals.Find(ctx, symbol)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return core.ErrCollateralNotInitialized
		}
		return err
	}

	return s.db.Tx(func(tx *db.DB) error {
		collateral.SafetyPrice = number.Ray(safetyPrice)
		collateral.LiquidationPrice = number.Ray(liquidationPrice)
		if err := s.collaterals.Update(ctx, tx, collateral); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventPriceUpdate, symbol, map[string]interface{}{
			"safety_price":      collateral.SafetyPrice,
			"liquidation_price": collateral.LiquidationPrice,
		}))
	})
}

func (s *ledgerService) ModifyParameters(ctx context.Context, caller, symbol, key, value string) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	state, err := s.enabledState(ctx)
	if err != nil {
		return err
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return core.ErrInvalidAmount
	}

	if symbol == "" {
		if key != "globalDebtCeiling" {
			return core.ErrUnrecognizedParameter
		}

		return s.db.Tx(func(tx *db.DB) error {
			state.GlobalDebtCeiling = number.Rad(amount)
			if err := s.states.Update(ctx, tx, state); err != nil {
				return err
			}

			return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventModifyParameters, key, map[string]interface{}{
				"value": value,
			}))
		})
	}

	collateral, err := s.collaterals.Find(ctx, symbol)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return core.ErrCollateralNotInitialized
		}
		return err
	}

	switch key {
	case "debtCeiling":
		collateral.DebtCeiling = number.Rad(amount)
	case "debtFloor":
		collateral.DebtFloor = number.Rad(amount)
	default:
		return core.ErrUnrecognizedParameter
	}

	return s.db.Tx(func(tx *db.DB) error {
		if err := s.collaterals.Update(ctx, tx, collateral); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventModifyParameters, symbol+"/"+key, map[string]interface{}{
			"value": value,
		}))
	})
}

// ModifyCollateralBalance is the join-adapter entry point: positive wad
// records a join, negative an exit, and the per-type joined/exited totals
// move with the balance so the conservation identity stays anchored.
func (s *ledgerService) ModifyCollateralBalance(ctx context.Context, caller, symbol, account string, wad decimal.Decimal) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	if wad.IsZero() {
		return nil
	}

	collateral, err := s.collaterals.Find(ctx, symbol)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return core.ErrCollateralNotInitialized
		}
		return err
	}

	wad = number.Wad(wad)

	return s.db.Tx(func(tx *db.DB) error {
		if err := s.balances.AddCollateral(ctx, tx, symbol, account, wad); err != nil {
			return err
		}

		if wad.IsPositive() {
			collateral.TotalJoined = collateral.TotalJoined.Add(wad)
		} else {
			collateral.TotalExited = collateral.TotalExited.Add(wad.Neg())
		}

		return s.collaterals.Update(ctx, tx, collateral)
	})
}

func (s *ledgerService) TransferCollateral(ctx context.Context, caller, symbol, src, dst string, wad decimal.Decimal) error {
	if !wad.IsPositive() {
		return core.ErrInvalidAmount
	}

	if ok, err := s.canUseAccount(ctx, src, caller); err != nil {
		return err
	} else if !ok {
		return core.ErrNotAllowedToUseAccount
	}

	wad = number.Wad(wad)

	return s.db.Tx(func(tx *db.DB) error {
		if err := s.balances.AddCollateral(ctx, tx, symbol, src, wad.Neg()); err != nil {
			return err
		}

		return s.balances.AddCollateral(ctx, tx, symbol, dst, wad)
	})
}

func (s *ledgerService) TransferInternalCoins(ctx context.Context, caller, src, dst string, rad decimal.Decimal) error {
	if !rad.IsPositive() {
		return core.ErrInvalidAmount
	}

	if ok, err := s.canUseAccount(ctx, src, caller); err != nil {
		return err
	} else if !ok {
		return core.ErrNotAllowedToUseAccount
	}

	rad = number.Rad(rad)

	return s.db.Tx(func(tx *db.DB) error {
		if err := s.balances.AddCoin(ctx, tx, src, rad.Neg(), decimal.Zero); err != nil {
			return err
		}

		return s.balances.AddCoin(ctx, tx, dst, rad, decimal.Zero)
	})
}

// ModifyVaultCollateralization applies (deltaCollateral, deltaDebt) to the
// vault together with the paired pool and coin entries. Risk-increasing
// changes must leave the vault safe against the safety price and are gated
// on the owner's delegation registry; collateral inflows and debt repayments
// are gated on the respective counter-account.
func (s *ledgerService) ModifyVaultCollateralization(ctx context.Context, caller, symbol, vaultOwner, collateralSource, debtDestination string, deltaCollateral, deltaDebt decimal.Decimal) error {
	log := logger.FromContext(ctx).WithField("service", "ledger")

	state, err := s.enabledState(ctx)
	if err != nil {
		return err
	}

	collateral, err := s.collaterals.Find(ctx, symbol)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return core.ErrCollateralNotInitialized
		}
		return err
	}
	if !collateral.AccumulatedRate.IsPositive() {
		return core.ErrCollateralNotInitialized
	}

	deltaCollateral = number.Wad(deltaCollateral)
	deltaDebt = number.Wad(deltaDebt)

	vault, err := s.vaults.FindOrZero(ctx, symbol, vaultOwner)
	if err != nil {
		return err
	}

	newLocked := vault.LockedCollateral.Add(deltaCollateral)
	newDebt := vault.GeneratedDebt.Add(deltaDebt)
	if newLocked.IsNegative() || newDebt.IsNegative() {
		return core.ErrInvalidAmount
	}

	newTotalDebt := collateral.TotalDebt.Add(deltaDebt)
	deltaAdjustedDebt := number.WadMulRay(deltaDebt, collateral.AccumulatedRate)
	newGlobalDebt := state.GlobalDebt.Add(deltaAdjustedDebt)

	if deltaDebt.IsPositive() {
		if number.WadMulRay(newTotalDebt, collateral.AccumulatedRate).GreaterThan(collateral.DebtCeiling) ||
			newGlobalDebt.GreaterThan(state.GlobalDebtCeiling) {
			return core.ErrCeilingExceeded
		}
	}

	// risk-increasing on the vault's side
	risky := deltaDebt.IsPositive() || deltaCollateral.IsNegative()

	if risky {
		debtValue := number.WadMulRay(newDebt, collateral.AccumulatedRate)
		collateralValue := number.WadMulRay(newLocked, collateral.SafetyPrice)
		if debtValue.GreaterThan(collateralValue) {
			return core.ErrVaultNotSafe
		}

		if ok, err := s.CanModifyVault(ctx, vaultOwner, caller); err != nil {
			return err
		} else if !ok {
			return core.ErrNotAllowedToModifyVault
		}
	}

	if deltaCollateral.IsPositive() {
		if ok, err := s.canUseAccount(ctx, collateralSource, caller); err != nil {
			return err
		} else if !ok {
			return core.ErrNotAllowedToUseAccount
		}
	}

	if deltaDebt.IsNegative() {
		if ok, err := s.canUseAccount(ctx, debtDestination, caller); err != nil {
			return err
		} else if !ok {
			return core.ErrNotAllowedToUseAccount
		}
	}

	if newDebt.IsPositive() &&
		number.WadMulRay(newDebt, collateral.AccumulatedRate).LessThan(collateral.DebtFloor) {
		return core.ErrDustVault
	}

	return s.db.Tx(func(tx *db.DB) error {
		if vault.ID == 0 {
			if err := s.vaults.Create(ctx, tx, vault); err != nil {
				return err
			}
		}

		vault.LockedCollateral = newLocked
		vault.GeneratedDebt = newDebt
		if err := s.vaults.Update(ctx, tx, vault); err != nil {
			return err
		}

		// locking collateral draws down the source's free balance
		if err := s.balances.AddCollateral(ctx, tx, symbol, collateralSource, deltaCollateral.Neg()); err != nil {
			return err
		}

		// generated coins accrue to the destination; repayments draw it down
		if err := s.balances.AddCoin(ctx, tx, debtDestination, deltaAdjustedDebt, decimal.Zero); err != nil {
			return err
		}

		collateral.TotalDebt = newTotalDebt
		if err := s.collaterals.Update(ctx, tx, collateral); err != nil {
			return err
		}

		state.GlobalDebt = newGlobalDebt
		if err := s.states.Update(ctx, tx, state); err != nil {
			return err
		}

		log.WithField("vault", symbol+"/"+vaultOwner).Debugln("vault modified")
		return nil
	})
}

// ConfiscateVaultCollateralization is the liquidation-gated forced variant:
// seized collateral moves to the collateral counterparty's free balance and
// the cancelled debt is booked as unbacked debt of the debt counterparty.
// Solvency and delegation checks are bypassed; conservation still holds.
func (s *ledgerService) ConfiscateVaultCollateralization(ctx context.Context, caller, symbol, vaultOwner, collateralCounterparty, debtCounterparty string, deltaCollateral, deltaDebt decimal.Decimal) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	collateral, err := s.collaterals.Find(ctx, symbol)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return core.ErrCollateralNotInitialized
		}
		return err
	}

	deltaCollateral = number.Wad(deltaCollateral)
	deltaDebt = number.Wad(deltaDebt)

	vault, err := s.vaults.FindOrZero(ctx, symbol, vaultOwner)
	if err != nil {
		return err
	}

	newLocked := vault.LockedCollateral.Add(deltaCollateral)
	newDebt := vault.GeneratedDebt.Add(deltaDebt)
	if newLocked.IsNegative() || newDebt.IsNegative() {
		return core.ErrInvalidAmount
	}

	deltaAdjustedDebt := number.WadMulRay(deltaDebt, collateral.AccumulatedRate)

	state, err := s.states.Get(ctx)
	if err != nil {
		return err
	}

	return s.db.Tx(func(tx *db.DB) error {
		if vault.ID == 0 {
			if err := s.vaults.Create(ctx, tx, vault); err != nil {
				return err
			}
		}

		vault.LockedCollateral = newLocked
		vault.GeneratedDebt = newDebt
		if err := s.vaults.Update(ctx, tx, vault); err != nil {
			return err
		}

		if err := s.balances.AddCollateral(ctx, tx, symbol, collateralCounterparty, deltaCollateral.Neg()); err != nil {
			return err
		}

		// cancelled vault debt becomes unbacked debt of the counterparty
		if err := s.balances.AddCoin(ctx, tx, debtCounterparty, decimal.Zero, deltaAdjustedDebt.Neg()); err != nil {
			return err
		}

		collateral.TotalDebt = collateral.TotalDebt.Add(deltaDebt)
		if err := s.collaterals.Update(ctx, tx, collateral); err != nil {
			return err
		}

		state.GlobalUnbackedDebt = state.GlobalUnbackedDebt.Sub(deltaAdjustedDebt)
		if err := s.states.Update(ctx, tx, state); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventConfiscate, symbol+"/"+vaultOwner, map[string]interface{}{
			"delta_collateral": deltaCollateral,
			"delta_debt":       deltaDebt,
			"caller":           caller,
		}))
	})
}

// SettleDebt burns rad of the caller's coins against the caller's unbacked
// debt, shrinking both global totals.
func (s *ledgerService) SettleDebt(ctx context.Context, caller string, rad decimal.Decimal) error {
	if !rad.IsPositive() {
		return core.ErrInvalidAmount
	}

	rad = number.Rad(rad)

	state, err := s.states.Get(ctx)
	if err != nil {
		return err
	}

	return s.db.Tx(func(tx *db.DB) error {
		if err := s.balances.AddCoin(ctx, tx, caller, rad.Neg(), rad.Neg()); err != nil {
			return err
		}

		state.GlobalDebt = state.GlobalDebt.Sub(rad)
		state.GlobalUnbackedDebt = state.GlobalUnbackedDebt.Sub(rad)
		if err := s.states.Update(ctx, tx, state); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventSettleDebt, caller, map[string]interface{}{
			"amount": rad,
		}))
	})
}

func (s *ledgerService) CreateUnbackedDebt(ctx context.Context, caller, debtDestination, coinDestination string, rad decimal.Decimal) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}
	if !rad.IsPositive() {
		return core.ErrInvalidAmount
	}

	rad = number.Rad(rad)

	state, err := s.states.Get(ctx)
	if err != nil {
		return err
	}

	return s.db.Tx(func(tx *db.DB) error {
		if err := s.balances.AddCoin(ctx, tx, debtDestination, decimal.Zero, rad); err != nil {
			return err
		}

		if err := s.balances.AddCoin(ctx, tx, coinDestination, rad, decimal.Zero); err != nil {
			return err
		}

		state.GlobalDebt = state.GlobalDebt.Add(rad)
		state.GlobalUnbackedDebt = state.GlobalUnbackedDebt.Add(rad)
		return s.states.Update(ctx, tx, state)
	})
}

// UpdateAccumulatedRate advances a collateral's rate by rateDelta and mints
// the implied surplus to the destination. The rate never decreases.
func (s *ledgerService) UpdateAccumulatedRate(ctx context.Context, caller, symbol, surplusDestination string, rateDelta decimal.Decimal) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	state, err := s.enabledState(ctx)
	if err != nil {
		return err
	}

	collateral, err := s.collaterals.Find(ctx, symbol)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return core.ErrCollateralNotInitialized
		}
		return err
	}

	rateDelta = number.Ray(rateDelta)
	if rateDelta.IsNegative() {
		return core.ErrInvalidAmount
	}

	surplus := number.WadMulRay(collateral.TotalDebt, rateDelta)

	return s.db.Tx(func(tx *db.DB) error {
		collateral.AccumulatedRate = collateral.AccumulatedRate.Add(rateDelta)
		if err := s.collaterals.Update(ctx, tx, collateral); err != nil {
			return err
		}

		if err := s.balances.AddCoin(ctx, tx, surplusDestination, surplus, decimal.Zero); err != nil {
			return err
		}

		state.GlobalDebt = state.GlobalDebt.Add(surplus)
		if err := s.states.Update(ctx, tx, state); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventUpdateAccumulatedRate, symbol, map[string]interface{}{
			"rate_delta": rateDelta,
			"surplus":    surplus,
		}))
	})
}

func (s *ledgerService) ApproveVaultModification(ctx context.Context, owner, delegate string) error {
	return s.db.Tx(func(tx *db.DB) error {
		return s.vaults.Approve(ctx, tx, owner, delegate)
	})
}

func (s *ledgerService) DenyVaultModification(ctx context.Context, owner, delegate string) error {
	return s.db.Tx(func(tx *db.DB) error {
		return s.vaults.Deny(ctx, tx, owner, delegate)
	})
}

func (s *ledgerService) CanModifyVault(ctx context.Context, owner, caller string) (bool, error) {
	if owner == caller {
		return true, nil
	}

	return s.vaults.Allowed(ctx, owner, caller)
}

func (s *ledgerService) DisableLedger(ctx context.Context, caller string) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	state, err := s.enabledState(ctx)
	if err != nil {
		return err
	}

	return s.db.Tx(func(tx *db.DB) error {
		state.Enabled = false
		if err := s.states.Update(ctx, tx, state); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventDisableLedger, caller, nil))
	})
}
