package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type stubVenue struct {
	AuctionHouse
	account string
}

func (s *stubVenue) Account() string {
	return s.account
}

func TestAuctionIsTerminal(t *testing.T) {
	a := &Auction{
		CollateralToSell: decimal.NewFromInt(1),
		AmountToRaise:    decimal.NewFromInt(100),
	}
	assert.False(t, a.IsTerminal())

	a.CollateralToSell = decimal.Zero
	assert.True(t, a.IsTerminal())

	a.CollateralToSell = decimal.NewFromInt(1)
	a.AmountToRaise = decimal.Zero
	assert.True(t, a.IsTerminal())
}

func TestVenueRegistry(t *testing.T) {
	r := NewVenueRegistry()

	_, ok := r.Find(AuctionHouseAccount)
	assert.False(t, ok)

	house := &stubVenue{account: AuctionHouseAccount}
	r.Register(house)

	got, ok := r.Find(AuctionHouseAccount)
	assert.True(t, ok)
	assert.Equal(t, AuctionHouseAccount, got.Account())

	// re-registering replaces the venue under the same handle
	other := &stubVenue{account: AuctionHouseAccount}
	r.Register(other)
	got, _ = r.Find(AuctionHouseAccount)
	assert.Equal(t, other, got)
}
