package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	MinDurationSeconds = 86400    // 1 day
	MaxDurationSeconds = 31536000 // 365 days
	SecondsPerYear     = 31536000

	// MinCollateralRatio is the collateral/principal floor, in percent.
	MinCollateralRatio = 150.0
)

type LoanStatus string

const (
	LoanStatusRequested LoanStatus = "requested"
	LoanStatusActive    LoanStatus = "active"
	LoanStatusRepaid    LoanStatus = "repaid"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// Loan carries the terms fixed at creation. Principal and Collateral are in
// minor units; InterestRate is an annual percentage fixed by the pricing
// rules and never recomputed.
type Loan struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID          snowflake.ID `json:"user_id" gorm:"not null;index"`
	Principal       int64        `json:"principal" gorm:"not null"`
	InterestRate    int          `json:"interest_rate" gorm:"not null"`
	DurationSeconds int64        `json:"duration_seconds" gorm:"not null"`
	Collateral      int64        `json:"collateral" gorm:"not null"`
	Status          LoanStatus   `json:"status" gorm:"type:text;not null;index"`
	DueDate         time.Time    `json:"due_date" gorm:"not null"`
	RepaidAt        *time.Time   `json:"repaid_at"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Loan) TableName() string { return "loans" }

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
)

// LoanPayment records one settled repayment. ExternalID is the external
// transaction that funded it and is unique across all payments.
type LoanPayment struct {
	ID         snowflake.ID  `json:"id" gorm:"primaryKey"`
	LoanID     snowflake.ID  `json:"loan_id" gorm:"not null;index"`
	UserID     snowflake.ID  `json:"user_id" gorm:"not null;index"`
	Amount     int64         `json:"amount" gorm:"not null"`
	Status     PaymentStatus `json:"status" gorm:"type:text;not null"`
	ExternalID string        `json:"external_id" gorm:"type:text;not null;uniqueIndex:ux_loan_payments_external"`
	CreatedAt  time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LoanPayment) TableName() string { return "loan_payments" }
