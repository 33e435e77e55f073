package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lumafi/lumafi/internal/cache"
	"github.com/lumafi/lumafi/internal/config"
	creditscoredomain "github.com/lumafi/lumafi/internal/creditscore/domain"
	creditscorerepo "github.com/lumafi/lumafi/internal/creditscore/repository"
	creditscoreservice "github.com/lumafi/lumafi/internal/creditscore/service"
	loandomain "github.com/lumafi/lumafi/internal/loan/domain"
	loanrepo "github.com/lumafi/lumafi/internal/loan/repository"
	settlementservice "github.com/lumafi/lumafi/internal/settlement/service"
	"github.com/lumafi/lumafi/internal/webhook/domain"
	webhookrepo "github.com/lumafi/lumafi/internal/webhook/repository"
	walletdomain "github.com/lumafi/lumafi/internal/wallet/domain"
	walletrepo "github.com/lumafi/lumafi/internal/wallet/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "test-webhook-secret"

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.WebhookEvent{},
		&walletdomain.Transaction{},
		&walletdomain.SavingsBalance{},
		&creditscoredomain.CreditScore{},
		&creditscoredomain.CreditScoreUpdate{},
		&creditscoredomain.CreditScoreHistory{},
		&loandomain.Loan{},
		&loandomain.LoanPayment{},
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

	dispatcher := settlementservice.New(settlementservice.Params{
		Log:        zap.NewNop(),
		GenID:      node,
		WalletRepo: walletrepo.Provide(),
		LoanRepo:   loanrepo.Provide(),
		ScoreSvc:   scoreSvc,
	})

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Cfg:        config.Config{WebhookSecret: testSecret},
		Repo:       webhookrepo.Provide(),
		Dispatcher: dispatcher,
	})

	return svc, db, node
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func testTxHash(seed string) string {
	return "0x" + strings.Repeat(seed, 64/len(seed))
}

func TestIngestRejectsBadSignature(t *testing.T) {
	svc, db, _ := newTestService(t)
	body := []byte(`{"eventType":"block_mined","blockNumber":10}`)

	_, err := svc.Ingest(context.Background(), body, "deadbeef")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	_, err = svc.Ingest(context.Background(), body, "")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	var events int64
	require.NoError(t, db.Model(&domain.WebhookEvent{}).Count(&events).Error)
	assert.Equal(t, int64(0), events)
}

func TestIngestRequiresConfiguredSecret(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.WebhookEvent{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Cfg:   config.Config{},
		Repo:  webhookrepo.Provide(),
	})

	body := []byte(`{"eventType":"block_mined","blockNumber":10}`)
	_, err = svc.Ingest(context.Background(), body, sign(body))
	assert.ErrorIs(t, err, domain.ErrSecretMissing)
}

func TestIngestRejectsUnsupportedEventType(t *testing.T) {
	svc, _, _ := newTestService(t)
	body := []byte(`{"eventType":"solar_flare"}`)

	_, err := svc.Ingest(context.Background(), body, sign(body))
	assert.ErrorIs(t, err, domain.ErrUnsupportedEvent)
}

func TestIngestRejectsMalformedPayload(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, body := range []string{
		`{not json`,
		`{"eventType":"transaction_confirmed","transactionHash":"nope","blockNumber":1}`,
		`{"eventType":"transaction_confirmed","transactionHash":"` + testTxHash("ab") + `"}`,
		`{"eventType":"payment_completed","paymentId":"p1","userId":5,"amount":"-3.00","currency":"USD"}`,
		`{"eventType":"payment_completed","paymentId":"p1","userId":5,"amount":"3.00","currency":"DOLLARS"}`,
	} {
		raw := []byte(body)
		_, err := svc.Ingest(context.Background(), raw, sign(raw))
		assert.ErrorIs(t, err, domain.ErrInvalidPayload, body)
	}
}

func TestIngestSettlesPendingDeposit(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()
	hash := testTxHash("1a")

	require.NoError(t, db.Create(&walletdomain.Transaction{
		ID:       node.Generate(),
		UserID:   userID,
		TxHash:   &hash,
		Type:     walletdomain.TransactionTypeDeposit,
		Status:   walletdomain.TransactionStatusPending,
		Amount:   250 * walletdomain.MinorUnitsPerUnit,
		Currency: "USD",
	}).Error)

	body := []byte(fmt.Sprintf(
		`{"eventType":"transaction_confirmed","transactionHash":"%s","blockNumber":42}`, hash))
	receipt, err := svc.Ingest(context.Background(), body, sign(body))
	require.NoError(t, err)
	assert.False(t, receipt.Duplicate)
	assert.Equal(t, domain.EventTypeTransactionConfirmed, receipt.EventType)

	var tx walletdomain.Transaction
	require.NoError(t, db.Where("tx_hash = ?", hash).First(&tx).Error)
	assert.Equal(t, walletdomain.TransactionStatusCompleted, tx.Status)
	require.NotNil(t, tx.CompletedAt)

	var balance walletdomain.SavingsBalance
	require.NoError(t, db.Where("user_id = ?", userID).First(&balance).Error)
	assert.Equal(t, int64(250*walletdomain.MinorUnitsPerUnit), balance.Amount)

	var score creditscoredomain.CreditScore
	require.NoError(t, db.Where("user_id = ?", userID).First(&score).Error)
	assert.Equal(t, 2, score.Score)

	var event domain.WebhookEvent
	require.NoError(t, db.Where("correlation_key = ?", hash).First(&event).Error)
	assert.True(t, event.Processed)
	require.NotNil(t, event.ProcessedAt)
}

func TestIngestReplayAppliesNothing(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()
	hash := testTxHash("2b")

	require.NoError(t, db.Create(&walletdomain.Transaction{
		ID:       node.Generate(),
		UserID:   userID,
		TxHash:   &hash,
		Type:     walletdomain.TransactionTypeDeposit,
		Status:   walletdomain.TransactionStatusPending,
		Amount:   100 * walletdomain.MinorUnitsPerUnit,
		Currency: "USD",
	}).Error)

	body := []byte(fmt.Sprintf(
		`{"eventType":"transaction_confirmed","transactionHash":"%s","blockNumber":7}`, hash))

	first, err := svc.Ingest(context.Background(), body, sign(body))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		replay, err := svc.Ingest(context.Background(), body, sign(body))
		require.NoError(t, err)
		assert.True(t, replay.Duplicate)
		assert.Equal(t, first.EventID, replay.EventID)
	}

	var balance walletdomain.SavingsBalance
	require.NoError(t, db.Where("user_id = ?", userID).First(&balance).Error)
	assert.Equal(t, int64(100*walletdomain.MinorUnitsPerUnit), balance.Amount)

	var score creditscoredomain.CreditScore
	require.NoError(t, db.Where("user_id = ?", userID).First(&score).Error)
	assert.Equal(t, 2, score.Score)

	var events int64
	require.NoError(t, db.Model(&domain.WebhookEvent{}).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestIngestForeignHashIsRecordedWithoutEffects(t *testing.T) {
	svc, db, _ := newTestService(t)
	hash := testTxHash("3c")

	body := []byte(fmt.Sprintf(
		`{"eventType":"transaction_confirmed","transactionHash":"%s","blockNumber":9}`, hash))
	receipt, err := svc.Ingest(context.Background(), body, sign(body))
	require.NoError(t, err)
	assert.False(t, receipt.Duplicate)

	var balances int64
	require.NoError(t, db.Model(&walletdomain.SavingsBalance{}).Count(&balances).Error)
	assert.Equal(t, int64(0), balances)

	var event domain.WebhookEvent
	require.NoError(t, db.Where("correlation_key = ?", hash).First(&event).Error)
	assert.True(t, event.Processed)
}

func TestIngestPaymentCompletedCreditsSavings(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()

	body := []byte(fmt.Sprintf(
		`{"eventType":"payment_completed","paymentId":"pay_9","userId":%d,"amount":"12.50","currency":"usd"}`,
		userID))
	receipt, err := svc.Ingest(context.Background(), body, sign(body))
	require.NoError(t, err)
	assert.False(t, receipt.Duplicate)

	var tx walletdomain.Transaction
	require.NoError(t, db.Where("external_ref = ?", "pay_9").First(&tx).Error)
	assert.Equal(t, walletdomain.TransactionStatusCompleted, tx.Status)
	assert.Equal(t, int64(1250), tx.Amount)
	assert.Equal(t, "USD", tx.Currency)

	var balance walletdomain.SavingsBalance
	require.NoError(t, db.Where("user_id = ?", userID).First(&balance).Error)
	assert.Equal(t, int64(1250), balance.Amount)

	var score creditscoredomain.CreditScore
	require.NoError(t, db.Where("user_id = ?", userID).First(&score).Error)
	assert.Equal(t, 2, score.Score)
}

func TestIngestPaymentFailedLeavesLedgerUntouched(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()

	body := []byte(fmt.Sprintf(
		`{"eventType":"payment_failed","paymentId":"pay_fail","userId":%d}`, userID))
	receipt, err := svc.Ingest(context.Background(), body, sign(body))
	require.NoError(t, err)
	assert.False(t, receipt.Duplicate)

	var transactions, balances int64
	require.NoError(t, db.Model(&walletdomain.Transaction{}).Count(&transactions).Error)
	require.NoError(t, db.Model(&walletdomain.SavingsBalance{}).Count(&balances).Error)
	assert.Equal(t, int64(0), transactions)
	assert.Equal(t, int64(0), balances)

	var event domain.WebhookEvent
	require.NoError(t, db.Where("correlation_key = ?", "pay_fail").First(&event).Error)
	assert.True(t, event.Processed)
}

func TestIngestLoanFundedActivatesLoan(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()
	now := time.Now().UTC()

	loan := loandomain.Loan{
		ID:              node.Generate(),
		UserID:          userID,
		Principal:       100000,
		InterestRate:    10,
		DurationSeconds: 30 * 86400,
		Collateral:      200000,
		Status:          loandomain.LoanStatusRequested,
		DueDate:         now.Add(30 * 86400 * time.Second),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, db.Create(&loan).Error)

	body := []byte(fmt.Sprintf(
		`{"eventType":"loan_funded","loanId":%d,"transactionHash":"%s"}`, loan.ID, testTxHash("4d")))
	_, err := svc.Ingest(context.Background(), body, sign(body))
	require.NoError(t, err)

	var stored loandomain.Loan
	require.NoError(t, db.First(&stored, "id = ?", loan.ID).Error)
	assert.Equal(t, loandomain.LoanStatusActive, stored.Status)
}

func TestIngestLoanDefaultedPenalizesScore(t *testing.T) {
	svc, db, node := newTestService(t)
	userID := node.Generate()
	now := time.Now().UTC()

	require.NoError(t, db.Create(&creditscoredomain.CreditScore{
		ID:        node.Generate(),
		UserID:    userID,
		Score:     400,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)

	loan := loandomain.Loan{
		ID:              node.Generate(),
		UserID:          userID,
		Principal:       100000,
		InterestRate:    10,
		DurationSeconds: 30 * 86400,
		Collateral:      200000,
		Status:          loandomain.LoanStatusActive,
		DueDate:         now.Add(-time.Hour),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, db.Create(&loan).Error)

	body := []byte(fmt.Sprintf(
		`{"eventType":"loan_defaulted","loanId":%d,"userId":%d}`, loan.ID, userID))
	_, err := svc.Ingest(context.Background(), body, sign(body))
	require.NoError(t, err)

	var stored loandomain.Loan
	require.NoError(t, db.First(&stored, "id = ?", loan.ID).Error)
	assert.Equal(t, loandomain.LoanStatusDefaulted, stored.Status)

	var score creditscoredomain.CreditScore
	require.NoError(t, db.Where("user_id = ?", userID).First(&score).Error)
	assert.Equal(t, 350, score.Score)
}

func TestIngestAcceptsUppercaseSignature(t *testing.T) {
	svc, _, _ := newTestService(t)
	body := []byte(`{"eventType":"block_mined","blockNumber":100}`)

	_, err := svc.Ingest(context.Background(), body, strings.ToUpper(sign(body)))
	assert.NoError(t, err)
}
