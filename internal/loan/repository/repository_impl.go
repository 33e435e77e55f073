package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lumafi/lumafi/internal/loan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, loan *domain.Loan) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO loans (
			id, user_id, principal, interest_rate, duration_seconds, collateral,
			status, due_date, repaid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID,
		loan.UserID,
		loan.Principal,
		loan.InterestRate,
		loan.DurationSeconds,
		loan.Collateral,
		loan.Status,
		loan.DueDate,
		loan.RepaidAt,
		loan.CreatedAt,
		loan.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Loan, error) {
	query := `SELECT id, user_id, principal, interest_rate, duration_seconds, collateral,
			status, due_date, repaid_at, created_at, updated_at
		 FROM loans
		 WHERE id = ?
		 LIMIT 1`
	if forUpdate && supportsRowLock(db) {
		query += " FOR UPDATE"
	}

	var item domain.Loan
	err := db.WithContext(ctx).Raw(query, id).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, userID snowflake.ID, afterID int64, limit int) ([]*domain.Loan, error) {
	var items []*domain.Loan
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, principal, interest_rate, duration_seconds, collateral,
			status, due_date, repaid_at, created_at, updated_at
		 FROM loans
		 WHERE user_id = ? AND id > ?
		 ORDER BY id
		 LIMIT ?`,
		userID,
		afterID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkActive(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	return r.transition(ctx, db, id, domain.LoanStatusRequested, domain.LoanStatusActive, nil, at)
}

func (r *repo) MarkRepaid(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	return r.transition(ctx, db, id, domain.LoanStatusActive, domain.LoanStatusRepaid, &at, at)
}

func (r *repo) MarkDefaulted(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	return r.transition(ctx, db, id, domain.LoanStatusActive, domain.LoanStatusDefaulted, nil, at)
}

func (r *repo) transition(
	ctx context.Context,
	db *gorm.DB,
	id snowflake.ID,
	from, to domain.LoanStatus,
	repaidAt *time.Time,
	at time.Time,
) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE loans
		 SET status = ?, repaid_at = COALESCE(?, repaid_at), updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		repaidAt,
		at,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.LoanPayment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO loan_payments (id, loan_id, user_id, amount, status, external_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.LoanID,
		payment.UserID,
		payment.Amount,
		payment.Status,
		payment.ExternalID,
		payment.CreatedAt,
	).Error
}

func supportsRowLock(db *gorm.DB) bool {
	if db == nil || db.Dialector == nil {
		return false
	}
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		return true
	default:
		return false
	}
}
