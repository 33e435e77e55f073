package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lumafi/lumafi/internal/cache"
	creditscoredomain "github.com/lumafi/lumafi/internal/creditscore/domain"
	creditscorerepo "github.com/lumafi/lumafi/internal/creditscore/repository"
	creditscoreservice "github.com/lumafi/lumafi/internal/creditscore/service"
	"github.com/lumafi/lumafi/internal/loan/domain"
	loanrepo "github.com/lumafi/lumafi/internal/loan/repository"
	walletdomain "github.com/lumafi/lumafi/internal/wallet/domain"
	walletrepo "github.com/lumafi/lumafi/internal/wallet/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const unit = walletdomain.MinorUnitsPerUnit

func newTestService(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Loan{},
		&domain.LoanPayment{},
		&creditscoredomain.CreditScore{},
		&creditscoredomain.CreditScoreUpdate{},
		&creditscoredomain.CreditScoreHistory{},
		&walletdomain.Transaction{},
		&walletdomain.SavingsBalance{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	scoreSvc := creditscoreservice.New(creditscoreservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       creditscorerepo.Provide(),
		WalletRepo: walletrepo.Provide(),
		Cache:      cache.NewNoop(),
	})

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     loanrepo.Provide(),
		ScoreSvc: scoreSvc,
	}).(*Service)

	return svc, db, node
}

func seedScore(t *testing.T, db *gorm.DB, node *snowflake.Node, userID snowflake.ID, score int) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, db.Create(&creditscoredomain.CreditScore{
		ID:        node.Generate(),
		UserID:    userID,
		Score:     score,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
}

func seedActiveLoan(t *testing.T, db *gorm.DB, node *snowflake.Node, userID snowflake.ID, principal int64, rate int, durationSeconds int64) domain.Loan {
	t.Helper()
	now := time.Now().UTC()
	loan := domain.Loan{
		ID:              node.Generate(),
		UserID:          userID,
		Principal:       principal,
		InterestRate:    rate,
		DurationSeconds: durationSeconds,
		Collateral:      principal * 2,
		Status:          domain.LoanStatusActive,
		DueDate:         now.Add(time.Duration(durationSeconds) * time.Second),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, db.Create(&loan).Error)
	return loan
}

func TestRequestLoanFixesTermsAtCreation(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()
	seedScore(t, db, node, userID, 700)

	loan, err := svc.RequestLoan(context.Background(), domain.RequestLoanRequest{
		UserID:          userID,
		Amount:          1000 * unit,
		DurationSeconds: 30 * 86400,
		Collateral:      1500 * unit,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.LoanStatusRequested, loan.Status)
	assert.Equal(t, int64(1000*unit), loan.Principal)
	// score 650..749 lowers the base rate by one
	assert.Equal(t, 9, loan.InterestRate)
	assert.WithinDuration(t, time.Now().UTC().Add(30*86400*time.Second), loan.DueDate, 5*time.Second)

	var stored domain.Loan
	require.NoError(t, db.First(&stored, "id = ?", loan.ID).Error)
	assert.Equal(t, domain.LoanStatusRequested, stored.Status)
}

func TestRequestLoanRejectsLowScore(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()
	seedScore(t, db, node, userID, 450)

	_, err := svc.RequestLoan(context.Background(), domain.RequestLoanRequest{
		UserID:          userID,
		Amount:          1000 * unit,
		DurationSeconds: 30 * 86400,
		Collateral:      1500 * unit,
	})

	var insufficient *domain.InsufficientCreditError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 450, insufficient.Current)
	assert.Equal(t, 500, insufficient.Required)
}

func TestRequestLoanRejectsThinCollateral(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()
	seedScore(t, db, node, userID, 700)

	_, err := svc.RequestLoan(context.Background(), domain.RequestLoanRequest{
		UserID:          userID,
		Amount:          1000 * unit,
		DurationSeconds: 30 * 86400,
		Collateral:      1499 * unit,
	})

	var insufficient *domain.InsufficientCollateralError
	require.ErrorAs(t, err, &insufficient)
	assert.InDelta(t, 149.9, insufficient.Ratio, 0.001)
}

func TestRequestLoanRejectsBadDuration(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()
	seedScore(t, db, node, userID, 700)

	for _, duration := range []int64{0, 3600, domain.MaxDurationSeconds + 1} {
		_, err := svc.RequestLoan(context.Background(), domain.RequestLoanRequest{
			UserID:          userID,
			Amount:          1000 * unit,
			DurationSeconds: duration,
			Collateral:      2000 * unit,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidDuration)
	}
}

func TestRepayLoanSettlesActiveLoan(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()
	loan := seedActiveLoan(t, db, node, userID, 1000*unit, 10, domain.SecondsPerYear)

	due := TotalDue(loan.Principal, loan.InterestRate, loan.DurationSeconds)
	assert.Equal(t, int64(1100*unit), due)

	resp, err := svc.RepayLoan(context.Background(), domain.RepayLoanRequest{
		LoanID:       loan.ID,
		UserID:       userID,
		Amount:       due + 5*unit,
		ExternalTxID: "0xrepay1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusRepaid, resp.Loan.Status)
	assert.Equal(t, due, resp.TotalDue)
	assert.Equal(t, int64(5*unit), resp.Overpayment)
	require.NotNil(t, resp.Loan.RepaidAt)

	var score creditscoredomain.CreditScore
	require.NoError(t, db.Where("user_id = ?", userID).First(&score).Error)
	assert.Equal(t, 20, score.Score)

	var payment domain.LoanPayment
	require.NoError(t, db.Where("loan_id = ?", loan.ID).First(&payment).Error)
	assert.Equal(t, "0xrepay1", payment.ExternalID)
}

func TestRepayLoanRejectsShortfallAtomically(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()
	loan := seedActiveLoan(t, db, node, userID, 1000*unit, 10, domain.SecondsPerYear)

	_, err := svc.RepayLoan(context.Background(), domain.RepayLoanRequest{
		LoanID:       loan.ID,
		UserID:       userID,
		Amount:       1000 * unit,
		ExternalTxID: "0xshort",
	})

	var insufficient *domain.InsufficientPaymentError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(100*unit), insufficient.Shortfall)

	var stored domain.Loan
	require.NoError(t, db.First(&stored, "id = ?", loan.ID).Error)
	assert.Equal(t, domain.LoanStatusActive, stored.Status)

	var payments int64
	require.NoError(t, db.Model(&domain.LoanPayment{}).Count(&payments).Error)
	assert.Equal(t, int64(0), payments)
}

func TestRepayLoanRejectsNonActiveLoan(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()
	loan := seedActiveLoan(t, db, node, userID, 1000*unit, 10, domain.SecondsPerYear)
	require.NoError(t, db.Model(&domain.Loan{}).
		Where("id = ?", loan.ID).
		Update("status", domain.LoanStatusRequested).Error)

	_, err := svc.RepayLoan(context.Background(), domain.RepayLoanRequest{
		LoanID:       loan.ID,
		UserID:       userID,
		Amount:       2000 * unit,
		ExternalTxID: "0xearly",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRepayLoanHidesOtherUsersLoans(t *testing.T) {
	svc, db, node := newTestService(t)
	owner := node.Generate()
	loan := seedActiveLoan(t, db, node, owner, 1000*unit, 10, domain.SecondsPerYear)

	_, err := svc.RepayLoan(context.Background(), domain.RepayLoanRequest{
		LoanID:       loan.ID,
		UserID:       node.Generate(),
		Amount:       2000 * unit,
		ExternalTxID: "0xintruder",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepayLoanRejectsReusedExternalID(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()
	first := seedActiveLoan(t, db, node, userID, 1000*unit, 10, domain.SecondsPerYear)
	second := seedActiveLoan(t, db, node, userID, 1000*unit, 10, domain.SecondsPerYear)

	_, err := svc.RepayLoan(context.Background(), domain.RepayLoanRequest{
		LoanID:       first.ID,
		UserID:       userID,
		Amount:       2000 * unit,
		ExternalTxID: "0xshared",
	})
	require.NoError(t, err)

	_, err = svc.RepayLoan(context.Background(), domain.RepayLoanRequest{
		LoanID:       second.ID,
		UserID:       userID,
		Amount:       2000 * unit,
		ExternalTxID: "0xshared",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidExternalID)

	var stored domain.Loan
	require.NoError(t, db.First(&stored, "id = ?", second.ID).Error)
	assert.Equal(t, domain.LoanStatusActive, stored.Status)
}

func TestListLoansPaginates(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()
	for i := 0; i < 3; i++ {
		seedActiveLoan(t, db, node, userID, 1000*unit, 10, domain.SecondsPerYear)
	}

	page, err := svc.List(context.Background(), domain.ListLoansRequest{UserID: userID})
	require.NoError(t, err)
	assert.Len(t, page.Loans, 3)
	assert.False(t, page.HasMore)
}

func TestMinCreditScoreTiers(t *testing.T) {
	assert.Equal(t, 500, MinCreditScore(1000*unit))
	assert.Equal(t, 600, MinCreditScore(1000*unit+1))
	assert.Equal(t, 600, MinCreditScore(5000*unit))
	assert.Equal(t, 650, MinCreditScore(10000*unit))
	assert.Equal(t, 700, MinCreditScore(10000*unit+1))
}

func TestPriceInterestRateStaysInBounds(t *testing.T) {
	for _, score := range []int{0, 540, 560, 640, 660, 740, 760, 850} {
		for _, amount := range []int64{unit, 1000 * unit, 20000 * unit, 60000 * unit} {
			for _, duration := range []int64{86400, 200 * 86400, domain.MaxDurationSeconds} {
				rate := PriceInterestRate(score, amount, duration)
				assert.GreaterOrEqual(t, rate, 5)
				assert.LessOrEqual(t, rate, 25)
			}
		}
	}
}

func TestPriceInterestRateAdjustments(t *testing.T) {
	base := PriceInterestRate(600, 1000*unit, 30*86400)
	assert.Equal(t, 10, base)

	assert.Equal(t, 7, PriceInterestRate(800, 1000*unit, 30*86400))
	assert.Equal(t, 15, PriceInterestRate(500, 1000*unit, 30*86400))
	assert.Equal(t, 11, PriceInterestRate(600, 20000*unit, 30*86400))
	assert.Equal(t, 11, PriceInterestRate(600, 1000*unit, 200*86400))
}

func TestTotalDueSimpleInterest(t *testing.T) {
	// one year at 10%
	assert.Equal(t, int64(1100*unit), TotalDue(1000*unit, 10, domain.SecondsPerYear))
	// half year at 10%
	assert.Equal(t, int64(105000), TotalDue(100000, 10, domain.SecondsPerYear/2))
	// zero interest never lowers the principal
	assert.Equal(t, int64(1000*unit), TotalDue(1000*unit, 0, domain.SecondsPerYear))
}

func TestRepayLoanValidatesInput(t *testing.T) {
	svc, _, node := newTestService(t)

	_, err := svc.RepayLoan(context.Background(), domain.RepayLoanRequest{
		LoanID: node.Generate(),
		UserID: node.Generate(),
		Amount: 0,
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidAmount))

	_, err = svc.RepayLoan(context.Background(), domain.RepayLoanRequest{
		LoanID:       node.Generate(),
		UserID:       node.Generate(),
		Amount:       unit,
		ExternalTxID: "   ",
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidExternalID))
}
