package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// MinorUnitsPerUnit converts whole currency units to the integer minor
// units stored in the ledger. All arithmetic stays in int64 minor units to
// avoid floating-point drift.
const MinorUnitsPerUnit = 100

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is one entry in the user's on-platform ledger. TxHash is set
// for entries that mirror an on-chain transfer and is unique when present.
type Transaction struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	UserID      snowflake.ID      `json:"user_id" gorm:"not null;index"`
	TxHash      *string           `json:"tx_hash" gorm:"type:text;uniqueIndex:ux_transactions_hash"`
	ExternalRef *string           `json:"external_ref" gorm:"type:text;uniqueIndex:ux_transactions_external_ref"`
	Type        TransactionType   `json:"type" gorm:"type:text;not null"`
	Status      TransactionStatus `json:"status" gorm:"type:text;not null;index"`
	Amount      int64             `json:"amount" gorm:"not null"`
	Currency    string            `json:"currency" gorm:"type:text;not null"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	CompletedAt *time.Time        `json:"completed_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "transactions" }

// SavingsBalance holds the additive savings position per user. Within the
// settlement engine it is only ever credited, and only inside a transaction.
type SavingsBalance struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID    snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:ux_savings_balances_user"`
	Amount    int64        `json:"amount" gorm:"not null;default:0"`
	Currency  string       `json:"currency" gorm:"type:text;not null;default:'USD'"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SavingsBalance) TableName() string { return "savings_balances" }
