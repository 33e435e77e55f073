package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, loan *Loan) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*Loan, error)
	List(ctx context.Context, db *gorm.DB, userID snowflake.ID, afterID int64, limit int) ([]*Loan, error)

	// Transition methods guard on the expected source status and report
	// whether the row moved.
	MarkActive(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	MarkRepaid(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	MarkDefaulted(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)

	InsertPayment(ctx context.Context, db *gorm.DB, payment *LoanPayment) error
}
