package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// WebhookEvent is the persisted record of one inbound notification. The
// unique (event_type, correlation_key) pair is the idempotency guard: a
// replay can never insert a second row, so it can never re-apply effects.
type WebhookEvent struct {
	ID             snowflake.ID   `json:"id" gorm:"primaryKey"`
	EventType      string         `json:"event_type" gorm:"type:text;not null;uniqueIndex:ux_webhook_events_dedupe,priority:1"`
	CorrelationKey string         `json:"correlation_key" gorm:"type:text;not null;uniqueIndex:ux_webhook_events_dedupe,priority:2"`
	Payload        datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	Processed      bool           `json:"processed" gorm:"not null;default:false"`
	CreatedAt      time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	ProcessedAt    *time.Time     `json:"processed_at"`
}

// TableName sets the database table name.
func (WebhookEvent) TableName() string { return "webhook_events" }

const (
	EventTypeTransactionConfirmed = "transaction_confirmed"
	EventTypePaymentCompleted     = "payment_completed"
	EventTypePaymentFailed        = "payment_failed"
	EventTypeRefundProcessed      = "refund_processed"
	EventTypeContractEvent        = "contract_event"
	EventTypeBlockMined           = "block_mined"
	EventTypeLoanFunded           = "loan_funded"
	EventTypeLoanDefaulted        = "loan_defaulted"
)

// Event is the closed set of inbound notification kinds. Each variant
// carries only the fields its handler needs; the dispatcher switches over
// them exhaustively.
type Event interface {
	EventType() string
	CorrelationKey() string
}

// TransactionConfirmed reports an on-chain transfer reaching finality.
type TransactionConfirmed struct {
	TxHash      string
	BlockNumber int64
}

func (TransactionConfirmed) EventType() string        { return EventTypeTransactionConfirmed }
func (e TransactionConfirmed) CorrelationKey() string { return e.TxHash }

// PaymentCompleted reports a processor-side payment settling off-chain.
type PaymentCompleted struct {
	PaymentID string
	UserID    snowflake.ID
	Amount    int64
	Currency  string
	// TxHash is optionally reported by some processors. It is recorded but
	// never used for deduplication; see the dispatcher's overlap warning.
	TxHash string
}

func (PaymentCompleted) EventType() string        { return EventTypePaymentCompleted }
func (e PaymentCompleted) CorrelationKey() string { return e.PaymentID }

// PaymentFailed is recorded without any ledger credit.
type PaymentFailed struct {
	PaymentID string
	UserID    snowflake.ID
}

func (PaymentFailed) EventType() string        { return EventTypePaymentFailed }
func (e PaymentFailed) CorrelationKey() string { return e.PaymentID }

// RefundProcessed is recorded without any ledger credit.
type RefundProcessed struct {
	PaymentID string
	UserID    snowflake.ID
	Amount    int64
}

func (RefundProcessed) EventType() string        { return EventTypeRefundProcessed }
func (e RefundProcessed) CorrelationKey() string { return e.PaymentID }

// ContractEvent is pass-through contract metadata.
type ContractEvent struct {
	ContractAddress string
	BlockNumber     int64
}

func (ContractEvent) EventType() string { return EventTypeContractEvent }
func (e ContractEvent) CorrelationKey() string {
	return e.ContractAddress + ":" + formatInt(e.BlockNumber)
}

// BlockMined is pass-through chain metadata.
type BlockMined struct {
	BlockNumber int64
}

func (BlockMined) EventType() string        { return EventTypeBlockMined }
func (e BlockMined) CorrelationKey() string { return "block:" + formatInt(e.BlockNumber) }

// LoanFunded moves a requested loan to active once its funding transaction
// confirms.
type LoanFunded struct {
	LoanID snowflake.ID
	TxHash string
}

func (LoanFunded) EventType() string        { return EventTypeLoanFunded }
func (e LoanFunded) CorrelationKey() string { return e.TxHash }

// LoanDefaulted moves an active loan to defaulted after its deadline passes
// unpaid, as decided by the external monitor.
type LoanDefaulted struct {
	LoanID snowflake.ID
	UserID snowflake.ID
}

func (LoanDefaulted) EventType() string        { return EventTypeLoanDefaulted }
func (e LoanDefaulted) CorrelationKey() string { return "loan:" + e.LoanID.String() }
