package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lumafi/lumafi/internal/wallet/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, tx *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, user_id, tx_hash, external_ref, type, status, amount, currency,
			created_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.UserID,
		tx.TxHash,
		tx.ExternalRef,
		tx.Type,
		tx.Status,
		tx.Amount,
		tx.Currency,
		tx.CreatedAt,
		tx.CompletedAt,
	).Error
}

func (r *repo) FindPendingByHash(ctx context.Context, db *gorm.DB, txHash string) (*domain.Transaction, error) {
	var item domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, tx_hash, external_ref, type, status, amount, currency,
			created_at, completed_at
		 FROM transactions
		 WHERE tx_hash = ? AND status = ?
		 LIMIT 1`,
		txHash,
		domain.TransactionStatusPending,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, completedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE transactions
		 SET status = ?, completed_at = ?
		 WHERE id = ?`,
		domain.TransactionStatusCompleted,
		completedAt,
		id,
	).Error
}

func (r *repo) CountCompletedByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM transactions
		 WHERE user_id = ? AND status = ?`,
		userID,
		domain.TransactionStatusCompleted,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CreditBalance adds to the user's savings position, creating the row on
// first credit. The additive UPDATE keeps concurrent credits lossless.
func (r *repo) CreditBalance(ctx context.Context, db *gorm.DB, balance *domain.SavingsBalance) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO savings_balances (id, user_id, amount, currency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			amount = savings_balances.amount + excluded.amount,
			updated_at = excluded.updated_at`,
		balance.ID,
		balance.UserID,
		balance.Amount,
		balance.Currency,
		balance.CreatedAt,
		balance.UpdatedAt,
	).Error
}

func (r *repo) FindBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.SavingsBalance, error) {
	var item domain.SavingsBalance
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, amount, currency, created_at, updated_at
		 FROM savings_balances
		 WHERE user_id = ?
		 LIMIT 1`,
		userID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
