package cdp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCurrentDiscount(t *testing.T) {
	min := d("0.95")
	max := d("0.90")
	// roughly -0.2%/minute
	rate := d("0.99996")

	// no time elapsed: discount at its starting value
	require.Equal(t, "0.95", CurrentDiscount(min, max, rate, 0).String())

	// decays monotonically
	prev := CurrentDiscount(min, max, rate, 0)
	for _, elapsed := range []int64{10, 60, 300, 1200} {
		cur := CurrentDiscount(min, max, rate, elapsed)
		require.True(t, cur.LessThanOrEqual(prev), "elapsed %d", elapsed)
		prev = cur
	}

	// never decays past the floor
	require.Equal(t, "0.9", CurrentDiscount(min, max, rate, 1_000_000).String())
}

func TestDiscountedPrice(t *testing.T) {
	// market 100, redemption 2, discount 0.95 -> 47.5
	got := DiscountedPrice(d("100"), d("2"), d("0.95"))
	require.Equal(t, "47.5", got.String())
}

func TestCollateralBought(t *testing.T) {
	// 95 coins at price 47.5 buys 2 units
	got := CollateralBought(d("95"), d("47.5"))
	require.Equal(t, "2", got.String())

	// zero price buys nothing rather than dividing by zero
	require.True(t, CollateralBought(d("95"), d("0")).IsZero())

	// payment * price round trip never exceeds the payment
	price := d("33.3333333333333333")
	bought := CollateralBought(d("10"), price)
	require.True(t, bought.Mul(price).LessThanOrEqual(d("10.0000000034")))
}
