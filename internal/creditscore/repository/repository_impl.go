package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lumafi/lumafi/internal/creditscore/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) EnsureScore(ctx context.Context, db *gorm.DB, score *domain.CreditScore) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_scores (id, user_id, score, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		score.ID,
		score.UserID,
		score.Score,
		score.CreatedAt,
		score.UpdatedAt,
	).Error
}

// FindScore reads the score row. With forUpdate it takes a row lock on
// dialects that support it; sqlite's writer lock already serializes there.
func (r *repo) FindScore(ctx context.Context, db *gorm.DB, userID snowflake.ID, forUpdate bool) (*domain.CreditScore, error) {
	query := `SELECT id, user_id, score, created_at, updated_at
		 FROM credit_scores
		 WHERE user_id = ?
		 LIMIT 1`
	if forUpdate && supportsRowLock(db) {
		query += " FOR UPDATE"
	}

	var item domain.CreditScore
	err := db.WithContext(ctx).Raw(query, userID).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpdateScore(ctx context.Context, db *gorm.DB, userID snowflake.ID, newScore int, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE credit_scores
		 SET score = ?, updated_at = ?
		 WHERE user_id = ?`,
		newScore,
		at,
		userID,
	).Error
}

func (r *repo) InsertUpdate(ctx context.Context, db *gorm.DB, update *domain.CreditScoreUpdate) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO credit_score_updates (
			id, user_id, old_score, new_score, delta, action, external_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id, action) DO NOTHING`,
		update.ID,
		update.UserID,
		update.OldScore,
		update.NewScore,
		update.Delta,
		update.Action,
		update.ExternalID,
		update.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, entry *domain.CreditScoreHistory) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_score_history (id, user_id, score, recorded_at)
		 VALUES (?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.Score,
		entry.RecordedAt,
	).Error
}

func (r *repo) LoanStats(ctx context.Context, db *gorm.DB, userID snowflake.ID) (domain.LoanStats, error) {
	var row struct {
		Total     int64
		Repaid    int64
		Defaulted int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(1) AS total,
			COALESCE(SUM(CASE WHEN status = 'repaid' THEN 1 ELSE 0 END), 0) AS repaid,
			COALESCE(SUM(CASE WHEN status = 'defaulted' THEN 1 ELSE 0 END), 0) AS defaulted
		 FROM loans
		 WHERE user_id = ?`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return domain.LoanStats{}, err
	}
	return domain.LoanStats{Total: row.Total, Repaid: row.Repaid, Defaulted: row.Defaulted}, nil
}

func (r *repo) PaymentStats(ctx context.Context, db *gorm.DB, userID snowflake.ID) (domain.PaymentStats, error) {
	var row struct {
		Total  int64
		OnTime int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(1) AS total,
			COALESCE(SUM(CASE WHEN lp.created_at <= l.due_date THEN 1 ELSE 0 END), 0) AS on_time
		 FROM loan_payments lp
		 JOIN loans l ON l.id = lp.loan_id
		 WHERE lp.user_id = ? AND lp.status = 'completed'`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return domain.PaymentStats{}, err
	}
	return domain.PaymentStats{Total: row.Total, OnTime: row.OnTime}, nil
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
