package domain

import (
	"context"

	webhookdomain "github.com/lumafi/lumafi/internal/webhook/domain"
	"gorm.io/gorm"
)

// Dispatcher applies confirmed external events as ledger mutations. Every
// method runs inside the transaction the ingestion guard opened, so its
// writes commit or roll back together with the event row itself.
type Dispatcher interface {
	ApplyTransactionConfirmation(ctx context.Context, tx *gorm.DB, ev webhookdomain.TransactionConfirmed) error
	ApplyPaymentCompleted(ctx context.Context, tx *gorm.DB, ev webhookdomain.PaymentCompleted) error
	ApplyLoanFunded(ctx context.Context, tx *gorm.DB, ev webhookdomain.LoanFunded) error
	ApplyLoanDefaulted(ctx context.Context, tx *gorm.DB, ev webhookdomain.LoanDefaulted) error
}
