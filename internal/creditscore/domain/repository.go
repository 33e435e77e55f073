package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// LoanStats aggregates the user's loan book for factor computation.
type LoanStats struct {
	Total     int64
	Repaid    int64
	Defaulted int64
}

// PaymentStats aggregates completed loan payments; OnTime counts payments
// made no later than the loan's due date.
type PaymentStats struct {
	Total  int64
	OnTime int64
}

type Repository interface {
	EnsureScore(ctx context.Context, db *gorm.DB, score *CreditScore) error
	FindScore(ctx context.Context, db *gorm.DB, userID snowflake.ID, forUpdate bool) (*CreditScore, error)
	UpdateScore(ctx context.Context, db *gorm.DB, userID snowflake.ID, newScore int, at time.Time) error

	InsertUpdate(ctx context.Context, db *gorm.DB, update *CreditScoreUpdate) (bool, error)
	InsertHistory(ctx context.Context, db *gorm.DB, entry *CreditScoreHistory) error

	LoanStats(ctx context.Context, db *gorm.DB, userID snowflake.ID) (LoanStats, error)
	PaymentStats(ctx context.Context, db *gorm.DB, userID snowflake.ID) (PaymentStats, error)
}
