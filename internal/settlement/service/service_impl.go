package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	creditscoredomain "github.com/lumafi/lumafi/internal/creditscore/domain"
	loandomain "github.com/lumafi/lumafi/internal/loan/domain"
	"github.com/lumafi/lumafi/internal/settlement/domain"
	"github.com/lumafi/lumafi/internal/telemetry"
	walletdomain "github.com/lumafi/lumafi/internal/wallet/domain"
	webhookdomain "github.com/lumafi/lumafi/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	WalletRepo walletdomain.Repository
	LoanRepo   loandomain.Repository
	ScoreSvc   creditscoredomain.Service
	Metrics    *telemetry.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	walletRepo walletdomain.Repository
	loanRepo   loandomain.Repository
	scoreSvc   creditscoredomain.Service
	metrics    *telemetry.Metrics
}

func New(p Params) domain.Dispatcher {
	return &Service{
		log:        p.Log.Named("settlement.service"),
		genID:      p.GenID,
		walletRepo: p.WalletRepo,
		loanRepo:   p.LoanRepo,
		scoreSvc:   p.ScoreSvc,
		metrics:    p.Metrics,
	}
}

// ApplyTransactionConfirmation settles a confirmed on-chain transaction. A
// hash with no pending transaction belongs to a foreign transfer and is a
// no-op.
func (s *Service) ApplyTransactionConfirmation(ctx context.Context, tx *gorm.DB, ev webhookdomain.TransactionConfirmed) error {
	pending, err := s.walletRepo.FindPendingByHash(ctx, tx, ev.TxHash)
	if err != nil {
		return err
	}
	if pending == nil {
		s.log.Debug("ignoring confirmation for unknown hash", zap.String("tx_hash", ev.TxHash))
		return nil
	}

	now := time.Now().UTC()
	if err := s.walletRepo.MarkCompleted(ctx, tx, pending.ID, now); err != nil {
		return err
	}

	if pending.Type != walletdomain.TransactionTypeDeposit {
		// Withdrawals and transfers settle elsewhere; completion is all
		// this path records.
		s.metrics.RecordSettlement("transaction_completed")
		return nil
	}

	if err := s.walletRepo.CreditBalance(ctx, tx, &walletdomain.SavingsBalance{
		ID:        s.genID.Generate(),
		UserID:    pending.UserID,
		Amount:    pending.Amount,
		Currency:  pending.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return err
	}

	if _, err := s.scoreSvc.ApplyChange(ctx, tx, creditscoredomain.Change{
		UserID:     pending.UserID,
		Action:     creditscoredomain.ActionSavingsDeposit,
		ExternalID: ev.TxHash,
	}); err != nil {
		return err
	}

	s.metrics.RecordSettlement("deposit_confirmed")
	s.log.Info("deposit settled",
		zap.String("tx_hash", ev.TxHash),
		zap.Int64("user_id", int64(pending.UserID)),
		zap.Int64("amount", pending.Amount),
	)
	return nil
}

// ApplyPaymentCompleted settles an off-chain processor payment as a new
// completed deposit. Deduplication is the ingestion guard's job alone;
// amounts are never compared.
func (s *Service) ApplyPaymentCompleted(ctx context.Context, tx *gorm.DB, ev webhookdomain.PaymentCompleted) error {
	if ev.TxHash != "" {
		// The chain confirmation path may credit the same logical transfer
		// under its own correlation key. There is no reconciliation rule
		// yet, so this is surfaced rather than resolved.
		s.log.Warn("payment event carries a transaction hash, possible double credit with chain confirmation",
			zap.String("payment_id", ev.PaymentID),
			zap.String("tx_hash", ev.TxHash),
		)
	}

	now := time.Now().UTC()
	ref := ev.PaymentID
	deposit := walletdomain.Transaction{
		ID:          s.genID.Generate(),
		UserID:      ev.UserID,
		ExternalRef: &ref,
		Type:        walletdomain.TransactionTypeDeposit,
		Status:      walletdomain.TransactionStatusCompleted,
		Amount:      ev.Amount,
		Currency:    ev.Currency,
		CreatedAt:   now,
		CompletedAt: &now,
	}
	if err := s.walletRepo.InsertTransaction(ctx, tx, &deposit); err != nil {
		return err
	}

	if err := s.walletRepo.CreditBalance(ctx, tx, &walletdomain.SavingsBalance{
		ID:        s.genID.Generate(),
		UserID:    ev.UserID,
		Amount:    ev.Amount,
		Currency:  ev.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return err
	}

	if _, err := s.scoreSvc.ApplyChange(ctx, tx, creditscoredomain.Change{
		UserID:     ev.UserID,
		Action:     creditscoredomain.ActionSavingsDeposit,
		ExternalID: ev.PaymentID,
	}); err != nil {
		return err
	}

	s.metrics.RecordSettlement("payment_completed")
	s.log.Info("payment settled",
		zap.String("payment_id", ev.PaymentID),
		zap.Int64("user_id", int64(ev.UserID)),
		zap.Int64("amount", ev.Amount),
	)
	return nil
}

// ApplyLoanFunded moves a requested loan to active. A loan already past
// requested is left untouched; redelivery is expected.
func (s *Service) ApplyLoanFunded(ctx context.Context, tx *gorm.DB, ev webhookdomain.LoanFunded) error {
	moved, err := s.loanRepo.MarkActive(ctx, tx, ev.LoanID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !moved {
		s.log.Debug("loan funding skipped, not in requested state",
			zap.Int64("loan_id", int64(ev.LoanID)),
		)
		return nil
	}
	s.metrics.RecordSettlement("loan_funded")
	return nil
}

// ApplyLoanDefaulted moves an active loan to defaulted and applies the
// default score penalty.
func (s *Service) ApplyLoanDefaulted(ctx context.Context, tx *gorm.DB, ev webhookdomain.LoanDefaulted) error {
	moved, err := s.loanRepo.MarkDefaulted(ctx, tx, ev.LoanID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !moved {
		s.log.Debug("loan default skipped, not in active state",
			zap.Int64("loan_id", int64(ev.LoanID)),
		)
		return nil
	}

	if _, err := s.scoreSvc.ApplyChange(ctx, tx, creditscoredomain.Change{
		UserID:     ev.UserID,
		Action:     creditscoredomain.ActionDefault,
		ExternalID: ev.CorrelationKey(),
	}); err != nil {
		return err
	}

	s.metrics.RecordSettlement("loan_defaulted")
	s.log.Info("loan defaulted",
		zap.Int64("loan_id", int64(ev.LoanID)),
		zap.Int64("user_id", int64(ev.UserID)),
	)
	return nil
}
