package cdp

import (
	"keel/pkg/number"

	"github.com/shopspring/decimal"
)

// CurrentDiscount the auction discount after elapsed seconds: the discount
// starts at minDiscount and decays multiplicatively per second, never past
// maxDiscount. A smaller discount means cheaper collateral, so
// maxDiscount <= minDiscount <= 1.
func CurrentDiscount(minDiscount, maxDiscount, perSecondUpdateRate decimal.Decimal, elapsed int64) decimal.Decimal {
	if elapsed <= 0 {
		return minDiscount
	}
	decayed := number.RayMul(minDiscount, number.RayPow(perSecondUpdateRate, elapsed))
	if decayed.LessThan(maxDiscount) {
		return maxDiscount
	}
	return decayed
}

// DiscountedPrice the clearing price of collateral in accounting units:
// marketPrice / redemptionPrice * discount, ray.
func DiscountedPrice(marketPrice, redemptionPrice, discount decimal.Decimal) decimal.Decimal {
	return number.RayMul(number.RayDiv(marketPrice, redemptionPrice), discount)
}

// CollateralBought how much collateral a wad payment buys at the given
// clearing price.
func CollateralBought(payment, discountedPrice decimal.Decimal) decimal.Decimal {
	if !discountedPrice.IsPositive() {
		return decimal.Zero
	}
	return number.Wad(payment.DivRound(discountedPrice, number.WadPrecision+1))
}
