package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository methods take an explicit db handle so callers can compose
// several mutations into one transaction.
type Repository interface {
	InsertTransaction(ctx context.Context, db *gorm.DB, tx *Transaction) error
	FindPendingByHash(ctx context.Context, db *gorm.DB, txHash string) (*Transaction, error)
	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, completedAt time.Time) error
	CountCompletedByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)

	CreditBalance(ctx context.Context, db *gorm.DB, balance *SavingsBalance) error
	FindBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*SavingsBalance, error)
}
