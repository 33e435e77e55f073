package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	creditscoredomain "github.com/lumafi/lumafi/internal/creditscore/domain"
	"github.com/lumafi/lumafi/internal/loan/domain"
	"github.com/lumafi/lumafi/internal/telemetry"
	walletdomain "github.com/lumafi/lumafi/internal/wallet/domain"
	"github.com/lumafi/lumafi/pkg/db"
	"github.com/lumafi/lumafi/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	ScoreSvc creditscoredomain.Service
	Metrics  *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	scoreSvc creditscoredomain.Service
	metrics  *telemetry.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("loan.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		scoreSvc: p.ScoreSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) RequestLoan(ctx context.Context, req domain.RequestLoanRequest) (domain.Loan, error) {
	if req.Amount <= 0 {
		return domain.Loan{}, domain.ErrInvalidAmount
	}
	if req.Collateral <= 0 {
		return domain.Loan{}, domain.ErrInvalidCollateral
	}
	if req.DurationSeconds < domain.MinDurationSeconds || req.DurationSeconds > domain.MaxDurationSeconds {
		return domain.Loan{}, domain.ErrInvalidDuration
	}

	view, err := s.scoreSvc.GetScore(ctx, req.UserID)
	if err != nil {
		return domain.Loan{}, err
	}
	required := MinCreditScore(req.Amount)
	if view.Score < required {
		s.metrics.RecordLoanOperation("request", "rejected")
		return domain.Loan{}, &domain.InsufficientCreditError{
			Current:  view.Score,
			Required: required,
		}
	}

	rate := PriceInterestRate(view.Score, req.Amount, req.DurationSeconds)

	ratio := CollateralRatio(req.Collateral, req.Amount)
	if ratio < domain.MinCollateralRatio {
		s.metrics.RecordLoanOperation("request", "rejected")
		return domain.Loan{}, &domain.InsufficientCollateralError{
			Ratio:    ratio,
			Required: domain.MinCollateralRatio,
		}
	}

	now := time.Now().UTC()
	loan := domain.Loan{
		ID:              s.genID.Generate(),
		UserID:          req.UserID,
		Principal:       req.Amount,
		InterestRate:    rate,
		DurationSeconds: req.DurationSeconds,
		Collateral:      req.Collateral,
		Status:          domain.LoanStatusRequested,
		DueDate:         now.Add(time.Duration(req.DurationSeconds) * time.Second),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, &loan); err != nil {
		return domain.Loan{}, err
	}

	s.metrics.RecordLoanOperation("request", "accepted")
	s.log.Info("loan requested",
		zap.Int64("loan_id", int64(loan.ID)),
		zap.Int64("user_id", int64(req.UserID)),
		zap.Int64("principal", req.Amount),
		zap.Int("interest_rate", rate),
	)
	return loan, nil
}

func (s *Service) RepayLoan(ctx context.Context, req domain.RepayLoanRequest) (domain.RepayLoanResponse, error) {
	if req.Amount <= 0 {
		return domain.RepayLoanResponse{}, domain.ErrInvalidAmount
	}
	req.ExternalTxID = strings.TrimSpace(req.ExternalTxID)
	if req.ExternalTxID == "" {
		return domain.RepayLoanResponse{}, domain.ErrInvalidExternalID
	}

	var resp domain.RepayLoanResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loan, err := s.repo.FindByID(ctx, tx, req.LoanID, true)
		if err != nil {
			return err
		}
		if loan == nil || loan.UserID != req.UserID {
			return domain.ErrNotFound
		}
		if loan.Status != domain.LoanStatusActive {
			return domain.ErrInvalidState
		}

		due := TotalDue(loan.Principal, loan.InterestRate, loan.DurationSeconds)
		if req.Amount < due {
			return &domain.InsufficientPaymentError{Shortfall: due - req.Amount}
		}

		now := time.Now().UTC()
		moved, err := s.repo.MarkRepaid(ctx, tx, loan.ID, now)
		if err != nil {
			return err
		}
		if !moved {
			return domain.ErrInvalidState
		}

		if err := s.repo.InsertPayment(ctx, tx, &domain.LoanPayment{
			ID:         s.genID.Generate(),
			LoanID:     loan.ID,
			UserID:     req.UserID,
			Amount:     req.Amount,
			Status:     domain.PaymentStatusCompleted,
			ExternalID: req.ExternalTxID,
			CreatedAt:  now,
		}); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrInvalidExternalID
			}
			return err
		}

		if _, err := s.scoreSvc.ApplyChange(ctx, tx, creditscoredomain.Change{
			UserID:     req.UserID,
			Action:     creditscoredomain.ActionLoanRepaid,
			ExternalID: req.ExternalTxID,
		}); err != nil {
			return err
		}

		loan.Status = domain.LoanStatusRepaid
		loan.RepaidAt = &now
		loan.UpdatedAt = now
		resp = domain.RepayLoanResponse{
			Loan:        *loan,
			TotalDue:    due,
			Overpayment: req.Amount - due,
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordLoanOperation("repay", "rejected")
		return domain.RepayLoanResponse{}, err
	}

	s.metrics.RecordLoanOperation("repay", "settled")
	s.log.Info("loan repaid",
		zap.Int64("loan_id", int64(resp.Loan.ID)),
		zap.Int64("user_id", int64(req.UserID)),
		zap.Int64("total_due", resp.TotalDue),
		zap.Int64("overpayment", resp.Overpayment),
	)
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, userID, loanID snowflake.ID) (domain.Loan, error) {
	loan, err := s.repo.FindByID(ctx, s.db, loanID, false)
	if err != nil {
		return domain.Loan{}, err
	}
	if loan == nil || loan.UserID != userID {
		return domain.Loan{}, domain.ErrNotFound
	}
	return *loan, nil
}

func (s *Service) List(ctx context.Context, req domain.ListLoansRequest) (domain.ListLoansResponse, error) {
	limit := req.PageSize
	if limit <= 0 {
		limit = 20
	}

	items, err := s.repo.List(ctx, s.db, req.UserID, pagination.AfterID(req.PageToken), limit+1)
	if err != nil {
		return domain.ListLoansResponse{}, err
	}

	resp := domain.ListLoansResponse{}
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	resp.HasMore = hasMore
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		resp.NextPageToken = pagination.EncodeCursor(pagination.Cursor{ID: last.ID.String()})
	}

	resp.Loans = make([]domain.Loan, 0, len(items))
	for _, item := range items {
		resp.Loans = append(resp.Loans, *item)
	}
	return resp, nil
}

// MinCreditScore is the non-decreasing score tier required for a principal,
// in minor units.
func MinCreditScore(amount int64) int {
	const unit = walletdomain.MinorUnitsPerUnit
	switch {
	case amount <= 1000*unit:
		return 500
	case amount <= 5000*unit:
		return 600
	case amount <= 10000*unit:
		return 650
	default:
		return 700
	}
}

// PriceInterestRate prices the annual rate from the borrower's persisted
// score, principal, and term, clamped to [5, 25] percent.
func PriceInterestRate(score int, amount, durationSeconds int64) int {
	const unit = walletdomain.MinorUnitsPerUnit
	rate := 10

	switch {
	case score >= 750:
		rate -= 3
	case score >= 650:
		rate -= 1
	case score < 550:
		rate += 5
	}

	if amount > 10000*unit {
		rate++
	}
	if amount > 50000*unit {
		rate += 2
	}

	if durationSeconds > 180*86400 {
		rate++
	}
	if durationSeconds > 365*86400 {
		rate += 2
	}

	if rate < 5 {
		return 5
	}
	if rate > 25 {
		return 25
	}
	return rate
}

// CollateralRatio is collateral over principal, in percent.
func CollateralRatio(collateral, amount int64) float64 {
	return float64(collateral) / float64(amount) * 100
}

// TotalDue computes simple interest over the full original term, in minor
// units rounded to the nearest unit.
func TotalDue(principal int64, rate int, durationSeconds int64) int64 {
	interest := float64(rate) / 100 * float64(durationSeconds) / domain.SecondsPerYear
	return int64(math.Round(float64(principal) * (1 + interest)))
}
