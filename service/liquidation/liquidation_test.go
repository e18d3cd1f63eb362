package liquidation

import (
	"context"
	"testing"

	"keel/core"
	"keel/pkg/number"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeCollaterals struct {
	core.CollateralStore
	m map[string]*core.CollateralType
}

func (f *fakeCollaterals) Find(ctx context.Context, symbol string) (*core.CollateralType, error) {
	if c, ok := f.m[symbol]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeVaults struct {
	core.VaultStore
	m map[string]*core.Vault
}

func (f *fakeVaults) FindOrZero(ctx context.Context, symbol, owner string) (*core.Vault, error) {
	if v, ok := f.m[symbol+"/"+owner]; ok {
		copied := *v
		return &copied, nil
	}
	return &core.Vault{
		CollateralSymbol: symbol,
		Owner:            owner,
		LockedCollateral: decimal.Zero,
		GeneratedDebt:    decimal.Zero,
	}, nil
}

type fakeLiquidations struct {
	core.LiquidationStore
	state  *core.LiquidationState
	params map[string]*core.LiquidationParams
}

func (f *fakeLiquidations) GetState(ctx context.Context) (*core.LiquidationState, error) {
	return f.state, nil
}

func (f *fakeLiquidations) FindParams(ctx context.Context, symbol string) (*core.LiquidationParams, error) {
	if p, ok := f.params[symbol]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeLedger struct {
	core.Ledger
	canModify map[string]bool
}

func (f *fakeLedger) CanModifyVault(ctx context.Context, owner, caller string) (bool, error) {
	return owner == caller || f.canModify[owner+"/"+caller], nil
}

type scriptedSaviour struct {
	name string
	save func(ctx context.Context, keeper, symbol, owner string) (bool, decimal.Decimal, decimal.Decimal, error)
}

func (s *scriptedSaviour) Name() string {
	return s.name
}

func (s *scriptedSaviour) SaveVault(ctx context.Context, keeper, symbol, owner string) (bool, decimal.Decimal, decimal.Decimal, error) {
	return s.save(ctx, keeper, symbol, owner)
}

// probeSaviour answers the sentinel probe correctly and otherwise runs fn.
func probeSaviour(name string, fn func(ctx context.Context, keeper, symbol, owner string) (bool, decimal.Decimal, decimal.Decimal, error)) core.Saviour {
	return &scriptedSaviour{name: name, save: func(ctx context.Context, keeper, symbol, owner string) (bool, decimal.Decimal, decimal.Decimal, error) {
		if symbol == "" && owner == "" {
			return true, core.RescueSentinel, core.RescueSentinel, nil
		}
		return fn(ctx, keeper, symbol, owner)
	}}
}

func d(v string) decimal.Decimal {
	return number.Decimal(v)
}

type testEngine struct {
	engine       core.LiquidationEngine
	collaterals  *fakeCollaterals
	vaults       *fakeVaults
	liquidations *fakeLiquidations
}

func newTestEngine() *testEngine {
	collaterals := &fakeCollaterals{m: map[string]*core.CollateralType{
		"GOLD": {
			ID:               1,
			Symbol:           "GOLD",
			AccumulatedRate:  d("1"),
			LiquidationPrice: d("90"),
			DebtFloor:        decimal.Zero,
		},
	}}
	vaults := &fakeVaults{m: map[string]*core.Vault{
		"GOLD/alice": {
			ID:               1,
			CollateralSymbol: "GOLD",
			Owner:            "alice",
			LockedCollateral: d("1"),
			GeneratedDebt:    d("100"),
		},
	}}
	liquidations := &fakeLiquidations{
		state: &core.LiquidationState{
			ID:                    1,
			CurrentOnAuctionCoins: decimal.Zero,
			OnAuctionCoinLimit:    d("1000"),
		},
		params: map[string]*core.LiquidationParams{
			"GOLD": {
				ID:               1,
				CollateralSymbol: "GOLD",
				Penalty:          d("1"),
				Quantity:         d("500"),
				Venue:            core.AuctionHouseAccount,
			},
		},
	}

	system := &core.System{Admins: []string{"admin"}}
	engine := New(nil, system, &fakeLedger{canModify: map[string]bool{}}, collaterals, vaults, liquidations, nil, core.NewVenueRegistry(), nil)

	return &testEngine{
		engine:       engine,
		collaterals:  collaterals,
		vaults:       vaults,
		liquidations: liquidations,
	}
}

func TestLiquidateEligibility(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	_, err := te.engine.Liquidate(ctx, "keeper", "SILVER", "alice")
	require.Equal(t, core.ErrCollateralNotInitialized, err)

	te.collaterals.m["GOLD"].LiquidationPrice = decimal.Zero
	_, err = te.engine.Liquidate(ctx, "keeper", "GOLD", "alice")
	require.Equal(t, core.ErrNoLiquidationPrice, err)

	// collateral value 1 * 110 covers debt 100: safe
	te.collaterals.m["GOLD"].LiquidationPrice = d("110")
	_, err = te.engine.Liquidate(ctx, "keeper", "GOLD", "alice")
	require.Equal(t, core.ErrVaultSafe, err)

	// boundary equality is safe
	te.collaterals.m["GOLD"].LiquidationPrice = d("100")
	_, err = te.engine.Liquidate(ctx, "keeper", "GOLD", "alice")
	require.Equal(t, core.ErrVaultSafe, err)
}

func TestLiquidateOnAuctionLimit(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	// headroom 1000 - 950 = 50 under the debt floor 100
	te.liquidations.state.CurrentOnAuctionCoins = d("950")
	te.collaterals.m["GOLD"].DebtFloor = d("100")

	_, err := te.engine.Liquidate(ctx, "keeper", "GOLD", "alice")
	require.Equal(t, core.ErrOnAuctionLimitHit, err)
}

func TestLiquidateLimitCheckedBeforeSaviour(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	// a witness saviour records whether it ever got called
	invoked := false
	witness := probeSaviour("witness", func(ctx context.Context, keeper, symbol, owner string) (bool, decimal.Decimal, decimal.Decimal, error) {
		invoked = true
		return false, decimal.Zero, decimal.Zero, nil
	})
	require.Nil(t, te.engine.ConnectSaviour(ctx, "admin", witness))
	te.vaults.m["GOLD/alice"].Saviour = "witness"

	// headroom 1000 - 950 = 50 under the debt floor 100: the limit gate
	// rejects the liquidation before the saviour runs
	te.liquidations.state.CurrentOnAuctionCoins = d("950")
	te.collaterals.m["GOLD"].DebtFloor = d("100")

	_, err := te.engine.Liquidate(ctx, "keeper", "GOLD", "alice")
	require.Equal(t, core.ErrOnAuctionLimitHit, err)
	require.False(t, invoked)
}

func TestLiquidateSizingRejections(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	// zero quantity sizes a null auction
	te.liquidations.params["GOLD"].Quantity = decimal.Zero
	_, err := te.engine.Liquidate(ctx, "keeper", "GOLD", "alice")
	require.Equal(t, core.ErrNullAuction, err)

	// quantity 60 of debt 100 leaves remainder 40 under floor 50
	te.liquidations.params["GOLD"].Quantity = d("60")
	te.collaterals.m["GOLD"].DebtFloor = d("50")
	_, err = te.engine.Liquidate(ctx, "keeper", "GOLD", "alice")
	require.Equal(t, core.ErrDustyAuction, err)
}

func TestLiquidateUnknownVenue(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	// no venue registered under the configured handle
	_, err := te.engine.Liquidate(ctx, "keeper", "GOLD", "alice")
	require.Equal(t, core.ErrUnrecognizedParameter, err)
}

func TestLiquidateReentry(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	s := te.engine.(*liquidationService)
	s.inFlight = 1

	_, err := te.engine.Liquidate(ctx, "keeper", "GOLD", "alice")
	require.Equal(t, core.ErrLiquidationReentry, err)
}

func TestLiquidateRejectsSaviourTheft(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	// claims a rescue while the vault actually lost collateral
	thief := probeSaviour("thief", func(ctx context.Context, keeper, symbol, owner string) (bool, decimal.Decimal, decimal.Decimal, error) {
		v := te.vaults.m["GOLD/alice"]
		v.LockedCollateral = v.LockedCollateral.Sub(d("0.5"))
		return true, d("1"), d("0"), nil
	})
	require.Nil(t, te.engine.ConnectSaviour(ctx, "admin", thief))
	te.vaults.m["GOLD/alice"].Saviour = "thief"

	_, err := te.engine.Liquidate(ctx, "keeper", "GOLD", "alice")
	require.Equal(t, core.ErrInvalidSaviourOperation, err)
}

func TestGetLimitAdjustedDebtToCover(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	got, err := te.engine.GetLimitAdjustedDebtToCover(ctx, "GOLD", "alice")
	require.Nil(t, err)
	require.Equal(t, "100", got.String())

	// per-type quantity binds
	te.liquidations.params["GOLD"].Quantity = d("40")
	got, err = te.engine.GetLimitAdjustedDebtToCover(ctx, "GOLD", "alice")
	require.Nil(t, err)
	require.Equal(t, "40", got.String())

	// an over-committed counter clamps headroom to zero instead of going
	// negative
	te.liquidations.params["GOLD"].Quantity = d("500")
	te.liquidations.state.CurrentOnAuctionCoins = d("2000")
	got, err = te.engine.GetLimitAdjustedDebtToCover(ctx, "GOLD", "alice")
	require.Nil(t, err)
	require.True(t, got.IsZero())
}

func TestRemoveCoinsFromAuction(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	err := te.engine.RemoveCoinsFromAuction(ctx, "mallory", d("1"))
	require.Equal(t, core.ErrNotAuthorized, err)

	err = te.engine.RemoveCoinsFromAuction(ctx, "admin", decimal.Zero)
	require.Equal(t, core.ErrInvalidAmount, err)

	// counter is zero; any decrement underflows
	err = te.engine.RemoveCoinsFromAuction(ctx, "admin", d("1"))
	require.Equal(t, core.ErrOnAuctionUnderflow, err)
}

func TestInitCollateralValidation(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	err := te.engine.InitCollateral(ctx, "mallory", "GOLD", d("1.1"), d("100"))
	require.Equal(t, core.ErrNotAuthorized, err)

	err = te.engine.InitCollateral(ctx, "admin", "GOLD", d("0.9"), d("100"))
	require.Equal(t, core.ErrInvalidRatio, err)

	err = te.engine.InitCollateral(ctx, "admin", "GOLD", d("1.1"), d("-1"))
	require.Equal(t, core.ErrInvalidAmount, err)
}

func TestModifyParametersValidation(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	err := te.engine.ModifyParameters(ctx, "admin", "", "unknownKey", "1")
	require.Equal(t, core.ErrUnrecognizedParameter, err)

	err = te.engine.ModifyParameters(ctx, "admin", "", "onAuctionSystemCoinLimit", "not-a-number")
	require.Equal(t, core.ErrInvalidAmount, err)

	err = te.engine.ModifyParameters(ctx, "admin", "GOLD", "liquidationPenalty", "0.9")
	require.Equal(t, core.ErrInvalidRatio, err)

	err = te.engine.ModifyParameters(ctx, "admin", "GOLD", "liquidationQuantity", "-1")
	require.Equal(t, core.ErrInvalidAmount, err)

	// rewiring to an unregistered venue is rejected
	err = te.engine.ModifyParameters(ctx, "admin", "GOLD", "auctionVenue", "no-such-venue")
	require.Equal(t, core.ErrUnrecognizedParameter, err)

	err = te.engine.ModifyParameters(ctx, "admin", "SILVER", "liquidationPenalty", "1.1")
	require.Equal(t, core.ErrCollateralNotInitialized, err)
}

func TestConnectSaviourProbe(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	good := probeSaviour("good", func(ctx context.Context, keeper, symbol, owner string) (bool, decimal.Decimal, decimal.Decimal, error) {
		return false, decimal.Zero, decimal.Zero, nil
	})
	require.Nil(t, te.engine.ConnectSaviour(ctx, "admin", good))
	require.Equal(t, []string{"good"}, te.engine.Saviours())

	err := te.engine.ConnectSaviour(ctx, "mallory", good)
	require.Equal(t, core.ErrNotAuthorized, err)

	// wrong sentinel answer
	bad := &scriptedSaviour{name: "bad", save: func(ctx context.Context, keeper, symbol, owner string) (bool, decimal.Decimal, decimal.Decimal, error) {
		return true, decimal.Zero, decimal.Zero, nil
	}}
	err = te.engine.ConnectSaviour(ctx, "admin", bad)
	require.Equal(t, core.ErrSaviourProbeFailed, err)

	// a panicking candidate is contained and rejected
	panicky := &scriptedSaviour{name: "panicky", save: func(ctx context.Context, keeper, symbol, owner string) (bool, decimal.Decimal, decimal.Decimal, error) {
		panic("boom")
	}}
	err = te.engine.ConnectSaviour(ctx, "admin", panicky)
	require.Equal(t, core.ErrSaviourProbeFailed, err)

	require.Equal(t, []string{"good"}, te.engine.Saviours())
}

func TestDisconnectSaviour(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	err := te.engine.DisconnectSaviour(ctx, "admin", "ghost")
	require.Equal(t, core.ErrSaviourNotConnected, err)

	for _, name := range []string{"s1", "s2", "s3"} {
		s := probeSaviour(name, func(ctx context.Context, keeper, symbol, owner string) (bool, decimal.Decimal, decimal.Decimal, error) {
			return false, decimal.Zero, decimal.Zero, nil
		})
		require.Nil(t, te.engine.ConnectSaviour(ctx, "admin", s))
	}

	require.Nil(t, te.engine.DisconnectSaviour(ctx, "admin", "s2"))
	require.Equal(t, []string{"s1", "s3"}, te.engine.Saviours())
}

func TestProtectVaultGates(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine()

	err := te.engine.ProtectVault(ctx, "mallory", "GOLD", "alice", "good")
	require.Equal(t, core.ErrNotAllowedToModifyVault, err)

	err = te.engine.ProtectVault(ctx, "alice", "GOLD", "alice", "ghost")
	require.Equal(t, core.ErrSaviourNotConnected, err)
}

func TestCallSaviourPanicIsolation(t *testing.T) {
	ctx := context.Background()

	panicky := &scriptedSaviour{name: "panicky", save: func(ctx context.Context, keeper, symbol, owner string) (bool, decimal.Decimal, decimal.Decimal, error) {
		panic("boom")
	}}

	ok, _, _, err := callSaviour(ctx, panicky, "keeper", "GOLD", "alice")
	require.False(t, ok)
	require.Equal(t, core.ErrSaviourCallFailed, err)
}
