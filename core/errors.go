package core

import "strconv"

// ErrorCode int
type ErrorCode int

// Codes are grouped by failure class: 11xx are precondition violations
// (authorization, eligibility, shutdown — nothing mutated yet), 12xx are
// liquidation sizing violations, 13xx are isolated external-call failures,
// 14xx are post-callback invariant violations that abort the whole
// transition.
const (
	// ErrUnknown unknown
	ErrUnknown ErrorCode = 100000
	// ErrOptimisticLock concurrent update lost the version race
	ErrOptimisticLock ErrorCode = 100001

	// ErrNotAuthorized caller is not in the component's authorized set
	ErrNotAuthorized ErrorCode = 110001
	// ErrLedgerDisabled ledger is shut down
	ErrLedgerDisabled ErrorCode = 110002
	// ErrCollateralAlreadyInitialized collateral type init is one-time
	ErrCollateralAlreadyInitialized ErrorCode = 110003
	// ErrCollateralNotInitialized unknown collateral type
	ErrCollateralNotInitialized ErrorCode = 110004
	// ErrUnrecognizedParameter modifyParameter got an unknown key
	ErrUnrecognizedParameter ErrorCode = 110005
	// ErrNotAllowedToModifyVault caller lacks rights on the vault
	ErrNotAllowedToModifyVault ErrorCode = 110006
	// ErrNotAllowedToUseAccount caller lacks rights on a counter-account
	ErrNotAllowedToUseAccount ErrorCode = 110007
	// ErrCeilingExceeded per-collateral or global debt ceiling hit
	ErrCeilingExceeded ErrorCode = 110008
	// ErrVaultNotSafe mutation would leave the vault under-collateralized
	ErrVaultNotSafe ErrorCode = 110009
	// ErrDustVault non-zero debt below the collateral debt floor
	ErrDustVault ErrorCode = 110010
	// ErrVaultSafe liquidation target is not under-collateralized
	ErrVaultSafe ErrorCode = 110011
	// ErrNoLiquidationPrice collateral has no valid liquidation price
	ErrNoLiquidationPrice ErrorCode = 110012
	// ErrOnAuctionLimitHit global on-auction headroom below debt floor
	ErrOnAuctionLimitHit ErrorCode = 110013
	// ErrOnAuctionUnderflow decrement larger than coins on auction
	ErrOnAuctionUnderflow ErrorCode = 110014
	// ErrRedemptionPriceNotUpdated rate change before price refresh
	ErrRedemptionPriceNotUpdated ErrorCode = 110015
	// ErrRedemptionRateOutOfBounds rate outside configured interval
	ErrRedemptionRateOutOfBounds ErrorCode = 110016
	// ErrLiquidationReentry nested liquidate call
	ErrLiquidationReentry ErrorCode = 110017
	// ErrAuctionNotFound unknown auction id
	ErrAuctionNotFound ErrorCode = 110018
	// ErrAuctionSettled bid on a terminal auction
	ErrAuctionSettled ErrorCode = 110019
	// ErrInvalidPrice feed observation invalid or non-positive
	ErrInvalidPrice ErrorCode = 110020
	// ErrInsufficientBalance account balance would go negative
	ErrInsufficientBalance ErrorCode = 110021
	// ErrSaviourProbeFailed candidate saviour failed the capability probe
	ErrSaviourProbeFailed ErrorCode = 110022
	// ErrSaviourNotConnected chosen saviour is not on the registry
	ErrSaviourNotConnected ErrorCode = 110023
	// ErrInvalidAmount non-positive or mis-signed amount
	ErrInvalidAmount ErrorCode = 110024
	// ErrInvalidRatio safety ratio below liquidation ratio, or below one
	ErrInvalidRatio ErrorCode = 110025

	// ErrNullAuction nothing sizeable to liquidate
	ErrNullAuction ErrorCode = 120001
	// ErrDustyAuction partial liquidation would leave a dusty vault
	ErrDustyAuction ErrorCode = 120002
	// ErrNullCollateralToSell proportional collateral slice is zero
	ErrNullCollateralToSell ErrorCode = 120003
	// ErrNullBid bid amount is zero
	ErrNullBid ErrorCode = 120004

	// ErrSaviourCallFailed saviour reverted; recorded, never escalated
	ErrSaviourCallFailed ErrorCode = 130001

	// ErrInvalidSaviourOperation saviour took collateral or added debt
	ErrInvalidSaviourOperation ErrorCode = 140001
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}
