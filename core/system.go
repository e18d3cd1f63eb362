package core

// Well-known internal account handles. Components move collateral and coins
// between these accounts through the ledger like any other party; what sets
// them apart is membership in the authorized-caller sets.
const (
	// AccountingEngineAccount absorbs unbacked debt and auction proceeds
	AccountingEngineAccount = "accounting-engine"
	// LiquidationEngineAccount the liquidation decision engine
	LiquidationEngineAccount = "liquidation-engine"
	// AuctionHouseAccount default collateral auction venue
	AuctionHouseAccount = "collateral-auction-house"
	// OracleRelayAccount the price relay
	OracleRelayAccount = "oracle-relay"
)

// System stores system information.
type System struct {
	Admins   []string
	Genesis  int64
	Location string
	Version  string
}

// IsAdmin is admin
func (s *System) IsAdmin(userID string) bool {
	if len(s.Admins) == 0 {
		return false
	}

	for _, a := range s.Admins {
		if a == userID {
			return true
		}
	}

	return false
}

// AuthSet is an instance-scoped authorized-caller set with deterministic
// insertion-order iteration.
type AuthSet struct {
	members map[string]bool
	order   []string
}

// NewAuthSet new auth set seeded with the given callers
func NewAuthSet(callers ...string) *AuthSet {
	s := &AuthSet{members: make(map[string]bool)}
	for _, c := range callers {
		s.Allow(c)
	}
	return s
}

// Allow adds a caller
func (s *AuthSet) Allow(caller string) {
	if s.members[caller] {
		return
	}
	s.members[caller] = true
	s.order = append(s.order, caller)
}

// Deny removes a caller
func (s *AuthSet) Deny(caller string) {
	if !s.members[caller] {
		return
	}
	delete(s.members, caller)
	for i, c := range s.order {
		if c == caller {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Contains reports membership
func (s *AuthSet) Contains(caller string) bool {
	return s.members[caller]
}

// Callers lists members in insertion order
func (s *AuthSet) Callers() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
