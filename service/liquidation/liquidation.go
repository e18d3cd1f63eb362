package liquidation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"keel/core"
	"keel/internal/cdp"
	"keel/pkg/id"
	"keel/pkg/number"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/fox-one/pkg/uuid"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

type liquidationService struct {
	db           *db.DB
	system       *core.System
	ledger       core.Ledger
	collaterals  core.CollateralStore
	vaults       core.VaultStore
	liquidations core.LiquidationStore
	accounting   core.AccountingEngine
	venues       *core.VenueRegistry
	events       core.EventStore
	auth         *core.AuthSet

	mu           sync.RWMutex
	saviours     map[string]core.Saviour
	saviourOrder []string

	inFlight int32
}

// New new liquidation engine
func New(
	db *db.DB,
	system *core.System,
	ledger core.Ledger,
	collaterals core.CollateralStore,
	vaults core.VaultStore,
	liquidations core.LiquidationStore,
	accounting core.AccountingEngine,
	venues *core.VenueRegistry,
	events core.EventStore,
) core.LiquidationEngine {
	return &liquidationService{
		db:           db,
		system:       system,
		ledger:       ledger,
		collaterals:  collaterals,
		vaults:       vaults,
		liquidations: liquidations,
		accounting:   accounting,
		venues:       venues,
		events:       events,
		auth:         core.NewAuthSet(),
		saviours:     make(map[string]core.Saviour),
	}
}

func (s *liquidationService) AllowCaller(caller string) {
	s.auth.Allow(caller)
}

func (s *liquidationService) DenyCaller(caller string) {
	s.auth.Deny(caller)
}

func (s *liquidationService) authorized(caller string) bool {
	return s.system.IsAdmin(caller) || s.auth.Contains(caller)
}

// Liquidate runs the decision flow for one vault: eligibility, the saviour's
// last chance, sizing, confiscation and auction kick-off. It returns the new
// auction id, or zero when a rescue made the vault safe again.
func (s *liquidationService) Liquidate(ctx context.Context, caller, symbol, vaultOwner string) (uint64, error) {
	if !atomic.CompareAndSwapInt32(&s.inFlight, 0, 1) {
		return 0, core.ErrLiquidationReentry
	}
	defer atomic.StoreInt32(&s.inFlight, 0)

	log := logger.FromContext(ctx).WithField("vault", symbol+"/"+vaultOwner)

	collateral, err := s.collaterals.Find(ctx, symbol)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return 0, core.ErrCollateralNotInitialized
		}
		return 0, err
	}
	if !collateral.LiquidationPrice.IsPositive() {
		return 0, core.ErrNoLiquidationPrice
	}

	vault, err := s.vaults.FindOrZero(ctx, symbol, vaultOwner)
	if err != nil {
		return 0, err
	}

	if !cdp.IsUnsafe(vault.LockedCollateral, collateral.LiquidationPrice, vault.GeneratedDebt, collateral.AccumulatedRate) {
		return 0, core.ErrVaultSafe
	}

	params, err := s.liquidations.FindParams(ctx, symbol)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return 0, core.ErrCollateralNotInitialized
		}
		return 0, err
	}

	state, err := s.liquidations.GetState(ctx)
	if err != nil {
		return 0, err
	}

	// the limit gate comes before the saviour gets a say: untrusted rescue
	// code never runs for a liquidation that could not proceed anyway
	headroom := state.OnAuctionCoinLimit.Sub(state.CurrentOnAuctionCoins)
	if headroom.LessThan(collateral.DebtFloor) {
		return 0, core.ErrOnAuctionLimitHit
	}

	vault, collateral, rescued, err := s.trySaveVault(ctx, caller, vault, collateral)
	if err != nil {
		return 0, err
	}
	if rescued {
		return 0, nil
	}

	limitAdjustedDebt := cdp.LimitAdjustedDebt(vault.GeneratedDebt, collateral.AccumulatedRate, params.Penalty, params.Quantity, headroom)
	if !limitAdjustedDebt.IsPositive() {
		return 0, core.ErrNullAuction
	}
	if cdp.LeavesDust(vault.GeneratedDebt, limitAdjustedDebt, collateral.AccumulatedRate, collateral.DebtFloor) {
		return 0, core.ErrDustyAuction
	}

	collateralToSell := cdp.CollateralToSell(vault.LockedCollateral, vault.GeneratedDebt, limitAdjustedDebt)
	if !collateralToSell.IsPositive() {
		return 0, core.ErrNullCollateralToSell
	}

	amountToRaise := cdp.AmountToRaise(limitAdjustedDebt, collateral.AccumulatedRate, params.Penalty)

	house, ok := s.venues.Find(params.Venue)
	if !ok {
		return 0, core.ErrUnrecognizedParameter
	}

	if err := s.ledger.ConfiscateVaultCollateralization(
		ctx, core.LiquidationEngineAccount, symbol, vaultOwner,
		house.Account(), s.accounting.Account(),
		collateralToSell.Neg(), limitAdjustedDebt.Neg(),
	); err != nil {
		return 0, err
	}

	if err := s.accounting.PushDebtToQueue(ctx, number.WadMulRay(limitAdjustedDebt, collateral.AccumulatedRate)); err != nil {
		return 0, err
	}

	if err := s.db.Tx(func(tx *db.DB) error {
		state.CurrentOnAuctionCoins = state.CurrentOnAuctionCoins.Add(amountToRaise)
		return s.liquidations.UpdateState(ctx, tx, state)
	}); err != nil {
		return 0, err
	}

	auctionID, err := house.StartAuction(ctx, core.LiquidationEngineAccount, core.StartAuctionParams{
		CollateralSymbol:          symbol,
		CollateralToSell:          collateralToSell,
		AmountToRaise:             amountToRaise,
		ForgoneCollateralReceiver: vaultOwner,
		InitialBidder:             s.accounting.Account(),
	})
	if err != nil {
		// no auction exists to release the reserved headroom later; give it
		// back here
		if rerr := s.db.Tx(func(tx *db.DB) error {
			state.CurrentOnAuctionCoins = state.CurrentOnAuctionCoins.Sub(amountToRaise)
			return s.liquidations.UpdateState(ctx, tx, state)
		}); rerr != nil {
			log.WithError(rerr).Errorln("release reserved on-auction coins")
		}
		return 0, err
	}

	// deterministic trace: a replay of the same liquidation maps to the
	// same event id
	trace := id.TraceIDFrom(fmt.Sprintf("liquidate-%s-%s-%d", symbol, vaultOwner, auctionID))

	if err := s.db.Tx(func(tx *db.DB) error {
		return s.events.Create(ctx, tx, core.NewEvent(trace, core.EventLiquidate, symbol+"/"+vaultOwner, map[string]interface{}{
			"keeper":             caller,
			"auction_id":         auctionID,
			"collateral_to_sell": collateralToSell,
			"debt_to_cover":      limitAdjustedDebt,
			"amount_to_raise":    amountToRaise,
		}))
	}); err != nil {
		return 0, err
	}

	log.WithField("auction", auctionID).Infoln("vault liquidated")
	return auctionID, nil
}

// trySaveVault gives the vault's designated saviour one chance to restore
// safety. Callback failures are recorded and never escalate; a callback that
// took collateral or added debt aborts the whole liquidation.
func (s *liquidationService) trySaveVault(ctx context.Context, keeper string, vault *core.Vault, collateral *core.CollateralType) (*core.Vault, *core.CollateralType, bool, error) {
	if vault.Saviour == "" {
		return vault, collateral, false, nil
	}

	s.mu.RLock()
	saviour, ok := s.saviours[vault.Saviour]
	s.mu.RUnlock()
	if !ok {
		return vault, collateral, false, nil
	}

	log := logger.FromContext(ctx).WithField("saviour", vault.Saviour)

	saved, reportedCollateral, reportedDebt, err := callSaviour(ctx, saviour, keeper, vault.CollateralSymbol, vault.Owner)
	if err != nil || !saved {
		log.WithError(err).Infoln("saviour did not act")
		_ = s.db.Tx(func(tx *db.DB) error {
			return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventFailedSaviour, vault.CollateralSymbol+"/"+vault.Owner, map[string]interface{}{
				"saviour": vault.Saviour,
			}))
		})
		return vault, collateral, false, nil
	}

	// reported amounts are advisory; the real deltas are recomputed from
	// ledger state before the rescue is accepted
	if reportedCollateral.IsPositive() || reportedDebt.IsPositive() {
		before := *vault

		reloaded, err := s.vaults.FindOrZero(ctx, vault.CollateralSymbol, vault.Owner)
		if err != nil {
			return vault, collateral, false, err
		}

		actualCollateralAdded := reloaded.LockedCollateral.Sub(before.LockedCollateral)
		actualDebtRepaid := before.GeneratedDebt.Sub(reloaded.GeneratedDebt)
		if actualCollateralAdded.IsNegative() || actualDebtRepaid.IsNegative() {
			return vault, collateral, false, core.ErrInvalidSaviourOperation
		}

		vault = reloaded
		if collateral, err = s.collaterals.Find(ctx, vault.CollateralSymbol); err != nil {
			return vault, collateral, false, err
		}

		if !cdp.IsUnsafe(vault.LockedCollateral, collateral.LiquidationPrice, vault.GeneratedDebt, collateral.AccumulatedRate) {
			log.Infoln("vault rescued")
			_ = s.db.Tx(func(tx *db.DB) error {
				return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventSaveVault, vault.CollateralSymbol+"/"+vault.Owner, map[string]interface{}{
					"saviour":          vault.Saviour,
					"collateral_added": actualCollateralAdded,
					"debt_repaid":      actualDebtRepaid,
				}))
			})
			return vault, collateral, true, nil
		}
	}

	return vault, collateral, false, nil
}

// callSaviour isolates the callback: a panic inside the saviour is reported
// as a failed call, not a crashed engine.
func callSaviour(ctx context.Context, saviour core.Saviour, keeper, symbol, owner string) (ok bool, collateralAdded, debtRepaid decimal.Decimal, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = core.ErrSaviourCallFailed
		}
	}()

	return saviour.SaveVault(ctx, keeper, symbol, owner)
}

// GetLimitAdjustedDebtToCover previews the sizing of a liquidation without
// touching any state.
func (s *liquidationService) GetLimitAdjustedDebtToCover(ctx context.Context, symbol, vaultOwner string) (decimal.Decimal, error) {
	collateral, err := s.collaterals.Find(ctx, symbol)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return decimal.Zero, core.ErrCollateralNotInitialized
		}
		return decimal.Zero, err
	}

	vault, err := s.vaults.FindOrZero(ctx, symbol, vaultOwner)
	if err != nil {
		return decimal.Zero, err
	}

	params, err := s.liquidations.FindParams(ctx, symbol)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return decimal.Zero, core.ErrCollateralNotInitialized
		}
		return decimal.Zero, err
	}

	state, err := s.liquidations.GetState(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	headroom := state.OnAuctionCoinLimit.Sub(state.CurrentOnAuctionCoins)
	if headroom.IsNegative() {
		headroom = decimal.Zero
	}

	return cdp.LimitAdjustedDebt(vault.GeneratedDebt, collateral.AccumulatedRate, params.Penalty, params.Quantity, headroom), nil
}

// RemoveCoinsFromAuction releases on-auction headroom as auctions raise
// coins or settle short.
func (s *liquidationService) RemoveCoinsFromAuction(ctx context.Context, caller string, rad decimal.Decimal) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}
	if !rad.IsPositive() {
		return core.ErrInvalidAmount
	}

	state, err := s.liquidations.GetState(ctx)
	if err != nil {
		return err
	}

	next := state.CurrentOnAuctionCoins.Sub(number.Rad(rad))
	if next.IsNegative() {
		return core.ErrOnAuctionUnderflow
	}

	return s.db.Tx(func(tx *db.DB) error {
		state.CurrentOnAuctionCoins = next
		return s.liquidations.UpdateState(ctx, tx, state)
	})
}

func (s *liquidationService) InitCollateral(ctx context.Context, caller, symbol string, penalty, quantity decimal.Decimal) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	if penalty.LessThan(number.One) {
		return core.ErrInvalidRatio
	}
	if quantity.IsNegative() {
		return core.ErrInvalidAmount
	}

	return s.db.Tx(func(tx *db.DB) error {
		params := &core.LiquidationParams{
			CollateralSymbol: symbol,
			Penalty:          number.Ray(penalty),
			Quantity:         number.Rad(quantity),
			Venue:            core.AuctionHouseAccount,
		}
		return s.liquidations.CreateParams(ctx, tx, params)
	})
}

func (s *liquidationService) ModifyParameters(ctx context.Context, caller, symbol, key, value string) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	if symbol == "" {
		if key != "onAuctionSystemCoinLimit" {
			return core.ErrUnrecognizedParameter
		}

		amount, err := decimal.NewFromString(value)
		if err != nil {
			return core.ErrInvalidAmount
		}

		state, err := s.liquidations.GetState(ctx)
		if err != nil {
			return err
		}

		return s.db.Tx(func(tx *db.DB) error {
			state.OnAuctionCoinLimit = number.Rad(amount)
			return s.liquidations.UpdateState(ctx, tx, state)
		})
	}

	params, err := s.liquidations.FindParams(ctx, symbol)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return core.ErrCollateralNotInitialized
		}
		return err
	}

	switch key {
	case "liquidationPenalty":
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return core.ErrInvalidAmount
		}
		if amount.LessThan(number.One) {
			return core.ErrInvalidRatio
		}
		params.Penalty = number.Ray(amount)
	case "liquidationQuantity":
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return core.ErrInvalidAmount
		}
		if amount.IsNegative() {
			return core.ErrInvalidAmount
		}
		params.Quantity = number.Rad(amount)
	case "auctionVenue":
		house, ok := s.venues.Find(value)
		if !ok {
			return core.ErrUnrecognizedParameter
		}
		// confiscation proceeds land on the venue account; move the
		// ledger rights along with the wiring
		s.ledger.DenyCaller(params.Venue)
		s.ledger.AllowCaller(house.Account())
		params.Venue = value
	default:
		return core.ErrUnrecognizedParameter
	}

	return s.db.Tx(func(tx *db.DB) error {
		if err := s.liquidations.UpdateParams(ctx, tx, params); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventModifyParameters, symbol+"/"+key, map[string]interface{}{
			"value": value,
		}))
	})
}

// ConnectSaviour admits a saviour after the sentinel probe: SaveVault with
// empty handles must claim success with both amounts equal to the sentinel.
func (s *liquidationService) ConnectSaviour(ctx context.Context, caller string, saviour core.Saviour) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	ok, collateralAdded, debtRepaid, err := callSaviour(ctx, saviour, core.LiquidationEngineAccount, "", "")
	if err != nil || !ok ||
		!collateralAdded.Equal(core.RescueSentinel) || !debtRepaid.Equal(core.RescueSentinel) {
		return core.ErrSaviourProbeFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := saviour.Name()
	if _, exists := s.saviours[name]; !exists {
		s.saviourOrder = append(s.saviourOrder, name)
	}
	s.saviours[name] = saviour

	return nil
}

func (s *liquidationService) DisconnectSaviour(ctx context.Context, caller, name string) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.saviours[name]; !ok {
		return core.ErrSaviourNotConnected
	}

	delete(s.saviours, name)
	for i, n := range s.saviourOrder {
		if n == name {
			s.saviourOrder = append(s.saviourOrder[:i], s.saviourOrder[i+1:]...)
			break
		}
	}

	return nil
}

// ProtectVault chooses a saviour for a vault. An empty name clears the
// protection.
func (s *liquidationService) ProtectVault(ctx context.Context, caller, symbol, vaultOwner, saviourName string) error {
	if ok, err := s.ledger.CanModifyVault(ctx, vaultOwner, caller); err != nil {
		return err
	} else if !ok {
		return core.ErrNotAllowedToModifyVault
	}

	if saviourName != "" {
		s.mu.RLock()
		_, ok := s.saviours[saviourName]
		s.mu.RUnlock()
		if !ok {
			return core.ErrSaviourNotConnected
		}
	}

	vault, err := s.vaults.FindOrZero(ctx, symbol, vaultOwner)
	if err != nil {
		return err
	}

	return s.db.Tx(func(tx *db.DB) error {
		if vault.ID == 0 {
			if err := s.vaults.Create(ctx, tx, vault); err != nil {
				return err
			}
		}

		vault.Saviour = saviourName
		if err := s.vaults.Update(ctx, tx, vault); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventProtectVault, symbol+"/"+vaultOwner, map[string]interface{}{
			"saviour": saviourName,
		}))
	})
}

func (s *liquidationService) Saviours() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.saviourOrder))
	copy(out, s.saviourOrder)
	return out
}
