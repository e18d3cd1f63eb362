package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fox-one/pkg/store/db"
)

// Event types. The event log is an append-only audit trail for external
// indexing, not authoritative state.
const (
	EventCollateralInit        = "collateral_init"
	EventPriceUpdate           = "price_update"
	EventRedemptionPrice       = "redemption_price_update"
	EventModifyParameters      = "modify_parameters"
	EventConfiscate            = "confiscate"
	EventLiquidate             = "liquidate"
	EventSaveVault             = "save_vault"
	EventFailedSaviour         = "failed_saviour"
	EventProtectVault          = "protect_vault"
	EventStartAuction          = "start_auction"
	EventBuyCollateral         = "buy_collateral"
	EventSettleAuction         = "settle_auction"
	EventPushDebtToQueue       = "push_debt_to_queue"
	EventSettleDebt            = "settle_debt"
	EventUpdateAccumulatedRate = "update_accumulated_rate"
	EventDisableLedger         = "disable_ledger"
)

// Event structured side-effect record emitted for every state change.
type Event struct {
	ID      uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	TraceID string `sql:"size:36;index:event_trace_idx" json:"trace_id"`
	Type    string `sql:"size:64;index:event_type_idx" json:"type"`
	// Subject the primary entity the event concerns, e.g. "GOLD/alice"
	Subject string `sql:"size:128" json:"subject"`
	Payload string `sql:"type:text" json:"payload"`

	CreatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// EventStore append-only event log
type EventStore interface {
	Create(ctx context.Context, tx *db.DB, event *Event) error
	List(ctx context.Context, fromID uint64, limit int) ([]*Event, error)
	ListByType(ctx context.Context, eventType string, fromID uint64, limit int) ([]*Event, error)
}

// NewEvent builds an event with a json-encoded payload
func NewEvent(traceID, eventType, subject string, payload map[string]interface{}) *Event {
	data, _ := json.Marshal(payload)
	return &Event{
		TraceID: traceID,
		Type:    eventType,
		Subject: subject,
		Payload: string(data),
	}
}
