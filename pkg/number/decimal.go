package number

import (
	"github.com/shopspring/decimal"
)

// The system keeps amounts at three precision tiers. Quantities of
// collateral and coins live at the Wad tier, per-second rates and
// risk-adjusted prices at the Ray tier, and system-wide debt totals at the
// amplified Rad tier. Values must never cross tiers except through the
// named conversions below.
const (
	// WadPrecision whole-unit quantity tier
	WadPrecision int32 = 8
	// RayPrecision rate tier
	RayPrecision int32 = 16
	// RadPrecision precision-amplified debt tier
	RadPrecision int32 = 24
)

var (
	// One 1 at every tier
	One = decimal.New(1, 0)
	// RaySmallest the smallest representable Ray unit
	RaySmallest = decimal.New(1, -RayPrecision)
)

// Decimal parse decimal from string, ignoring errors
func Decimal(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

// Ceil rounds d up at the given precision
func Ceil(d decimal.Decimal, precision int32) decimal.Decimal {
	return d.Shift(precision).Ceil().Shift(-precision)
}

// Wad truncates d to the quantity tier
func Wad(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(WadPrecision)
}

// Ray truncates d to the rate tier
func Ray(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(RayPrecision)
}

// Rad truncates d to the amplified debt tier
func Rad(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(RadPrecision)
}

// WadMulRay multiplies a quantity by a rate or price, producing a Rad
func WadMulRay(w, r decimal.Decimal) decimal.Decimal {
	return Rad(w.Mul(r))
}

// RayMul multiplies two rate-tier values
func RayMul(a, b decimal.Decimal) decimal.Decimal {
	return Ray(a.Mul(b))
}

// RayDiv divides two rate-tier values
func RayDiv(a, b decimal.Decimal) decimal.Decimal {
	return Ray(a.DivRound(b, RayPrecision+1))
}

// RadDivRay divides an amplified debt value by a rate, producing a quantity
func RadDivRay(rad, ray decimal.Decimal) decimal.Decimal {
	return Wad(rad.DivRound(ray, WadPrecision+1))
}

// RadToWad truncates an amplified debt value down to the quantity tier
func RadToWad(rad decimal.Decimal) decimal.Decimal {
	return Wad(rad)
}

// RadToWadCeil rounds an amplified debt value up to the quantity tier, so
// that paying the resulting quantity always covers the full Rad value.
func RadToWadCeil(rad decimal.Decimal) decimal.Decimal {
	return Ceil(rad, WadPrecision)
}

// WadDiv divides two quantities, producing a Ray ratio
func WadDiv(a, b decimal.Decimal) decimal.Decimal {
	return Ray(a.DivRound(b, RayPrecision+1))
}

// RayPow raises a rate-tier value to an integer power by squaring,
// truncating back to the rate tier after every multiplication so the
// operands stay bounded. n < 0 is treated as 0 and returns One.
func RayPow(r decimal.Decimal, n int64) decimal.Decimal {
	result := One
	base := Ray(r)
	for n > 0 {
		if n&1 == 1 {
			result = RayMul(result, base)
		}
		base = RayMul(base, base)
		n >>= 1
	}
	return result
}

// Min returns the smaller of a and b
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
