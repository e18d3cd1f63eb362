package cdp

import (
	"keel/pkg/number"

	"github.com/shopspring/decimal"
)

// IsUnsafe reports whether a position is under-collateralized:
// lockedCollateral * liquidationPrice < generatedDebt * accumulatedRate.
// Equality is safe.
func IsUnsafe(lockedCollateral, liquidationPrice, generatedDebt, accumulatedRate decimal.Decimal) bool {
	collateralValue := number.WadMulRay(lockedCollateral, liquidationPrice)
	debtValue := number.WadMulRay(generatedDebt, accumulatedRate)
	return collateralValue.LessThan(debtValue)
}

// LimitAdjustedDebt sizes the debt slice to liquidate, in wad debt units.
// The slice is capped by three independent limits converted into debt
// units after the penalty multiplier:
//
//	min(generatedDebt, min(liquidationQuantity, auctionHeadroom) / rate / penalty)
func LimitAdjustedDebt(generatedDebt, accumulatedRate, penalty, liquidationQuantity, auctionHeadroom decimal.Decimal) decimal.Decimal {
	cap := number.Min(liquidationQuantity, auctionHeadroom)
	capDebt := number.RadDivRay(cap, number.RayMul(accumulatedRate, penalty))
	return number.Min(generatedDebt, capDebt)
}

// CollateralToSell computes the proportional collateral slice backing the
// liquidated debt, capped at the total locked amount to guard against
// rounding overshoot.
func CollateralToSell(lockedCollateral, generatedDebt, limitAdjustedDebt decimal.Decimal) decimal.Decimal {
	if !generatedDebt.IsPositive() {
		return decimal.Zero
	}
	slice := number.Wad(lockedCollateral.Mul(limitAdjustedDebt).Div(generatedDebt))
	return number.Min(lockedCollateral, slice)
}

// LeavesDust reports whether liquidating limitAdjustedDebt would leave a
// non-zero remainder below the debt floor. Dust positions must be
// liquidated in full, never partially.
func LeavesDust(generatedDebt, limitAdjustedDebt, accumulatedRate, debtFloor decimal.Decimal) bool {
	remainder := generatedDebt.Sub(limitAdjustedDebt)
	if !remainder.IsPositive() {
		return false
	}
	return number.WadMulRay(remainder, accumulatedRate).LessThan(debtFloor)
}

// AmountToRaise the auction raise target for a liquidated slice:
// debt * rate * penalty, rad.
func AmountToRaise(limitAdjustedDebt, accumulatedRate, penalty decimal.Decimal) decimal.Decimal {
	return number.Rad(number.WadMulRay(limitAdjustedDebt, accumulatedRate).Mul(penalty))
}
