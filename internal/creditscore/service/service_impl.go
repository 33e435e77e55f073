package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lumafi/lumafi/internal/cache"
	"github.com/lumafi/lumafi/internal/creditscore/domain"
	"github.com/lumafi/lumafi/internal/telemetry"
	walletdomain "github.com/lumafi/lumafi/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const scoreViewTTL = time.Minute

var (
	errInvalidUser     = fmt.Errorf("invalid_user")
	errInvalidExternal = fmt.Errorf("invalid_external_id")
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	WalletRepo walletdomain.Repository
	Cache      cache.Cache
	Metrics    *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	walletRepo walletdomain.Repository
	cache      cache.Cache
	metrics    *telemetry.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("creditscore.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		walletRepo: p.WalletRepo,
		cache:      p.Cache,
		metrics:    p.Metrics,
	}
}

// snapshot is the raw multi-domain activity the factor formulas consume.
type snapshot struct {
	payments     domain.PaymentStats
	loans        domain.LoanStats
	balanceUnits int64
	balanceAge   time.Duration
	txCount      int64
}

func (s *Service) ComputeFactors(ctx context.Context, userID snowflake.ID) (domain.Factors, error) {
	if userID == 0 {
		return domain.Factors{}, errInvalidUser
	}
	snap, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return domain.Factors{}, err
	}
	return computeFactors(snap), nil
}

func (s *Service) loadSnapshot(ctx context.Context, userID snowflake.ID) (snapshot, error) {
	payments, err := s.repo.PaymentStats(ctx, s.db, userID)
	if err != nil {
		return snapshot{}, err
	}
	loans, err := s.repo.LoanStats(ctx, s.db, userID)
	if err != nil {
		return snapshot{}, err
	}
	txCount, err := s.walletRepo.CountCompletedByUser(ctx, s.db, userID)
	if err != nil {
		return snapshot{}, err
	}

	snap := snapshot{
		payments: payments,
		loans:    loans,
		txCount:  txCount,
	}

	balance, err := s.walletRepo.FindBalance(ctx, s.db, userID)
	if err != nil {
		return snapshot{}, err
	}
	if balance != nil {
		snap.balanceUnits = balance.Amount / walletdomain.MinorUnitsPerUnit
		snap.balanceAge = time.Since(balance.CreatedAt)
	}

	return snap, nil
}

func computeFactors(snap snapshot) domain.Factors {
	ph := paymentHistoryScore(snap.payments)
	lh := loanHistoryScore(snap.loans)
	sb := savingsBehaviorScore(snap.balanceUnits, snap.balanceAge)
	pa := protocolActivityScore(snap.txCount)

	overall := int(math.Round(0.35*float64(ph) + 0.30*float64(lh) + 0.20*float64(sb) + 0.15*float64(pa)))

	return domain.Factors{
		PaymentHistory:   ph,
		LoanHistory:      lh,
		SavingsBehavior:  sb,
		ProtocolActivity: pa,
		OverallScore:     overall,
	}
}

// paymentHistoryScore is the on-time share of loan payments. No history is
// neutral, not penalized.
func paymentHistoryScore(stats domain.PaymentStats) int {
	if stats.Total == 0 {
		return 100
	}
	return int(math.Round(100 * float64(stats.OnTime) / float64(stats.Total)))
}

func loanHistoryScore(stats domain.LoanStats) int {
	if stats.Total == 0 {
		return 100
	}
	score := math.Round(100*float64(stats.Repaid)/float64(stats.Total)) - 20*float64(stats.Defaulted)
	if score < 0 {
		return 0
	}
	return int(score)
}

func savingsBehaviorScore(balanceUnits int64, age time.Duration) int {
	score := 50
	if balanceUnits > 1000 {
		score += 20
	}
	if balanceUnits > 10000 {
		score += 15
	}
	if age > 30*24*time.Hour {
		score += 10
	}
	if age > 90*24*time.Hour {
		score += 5
	}
	if score > 100 {
		return 100
	}
	return score
}

func protocolActivityScore(txCount int64) int {
	score := 2 * int(txCount)
	if score > 50 {
		score = 50
	}
	if txCount > 10 {
		score += 10
	}
	if txCount > 50 {
		score += 10
	}
	if score > 100 {
		return 100
	}
	return score
}

func recommendationsFor(snap snapshot, factors domain.Factors) []domain.Recommendation {
	recs := make([]domain.Recommendation, 0, 3)
	if factors.PaymentHistory < 80 {
		recs = append(recs, domain.Recommendation{
			Action:   "pay your loans on time",
			Priority: domain.PriorityHigh,
			Horizon:  "3-6 months",
		})
	}
	if snap.balanceUnits < 1000 {
		recs = append(recs, domain.Recommendation{
			Action:   "increase your savings balance",
			Priority: domain.PriorityMedium,
			Horizon:  "1-3 months",
		})
	}
	if snap.txCount < 10 {
		recs = append(recs, domain.Recommendation{
			Action:   "increase your protocol activity",
			Priority: domain.PriorityLow,
			Horizon:  "1-2 months",
		})
	}
	return recs
}

func (s *Service) ApplyChange(ctx context.Context, tx *gorm.DB, change domain.Change) (domain.ChangeResult, error) {
	if change.UserID == 0 {
		return domain.ChangeResult{}, errInvalidUser
	}
	change.ExternalID = strings.TrimSpace(change.ExternalID)
	if change.ExternalID == "" {
		return domain.ChangeResult{}, errInvalidExternal
	}

	delta := domain.DeltaFor(change.Action)
	if delta == 0 {
		// Unknown action: deliberate no-op, not an error.
		s.log.Debug("ignoring unknown score action",
			zap.String("action", string(change.Action)),
			zap.Int64("user_id", int64(change.UserID)),
		)
		return domain.ChangeResult{}, nil
	}

	now := time.Now().UTC()
	if err := s.repo.EnsureScore(ctx, tx, &domain.CreditScore{
		ID:        s.genID.Generate(),
		UserID:    change.UserID,
		Score:     0,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return domain.ChangeResult{}, err
	}

	current, err := s.repo.FindScore(ctx, tx, change.UserID, true)
	if err != nil {
		return domain.ChangeResult{}, err
	}
	if current == nil {
		return domain.ChangeResult{}, gorm.ErrRecordNotFound
	}

	newScore := clampScore(current.Score + delta)

	inserted, err := s.repo.InsertUpdate(ctx, tx, &domain.CreditScoreUpdate{
		ID:         s.genID.Generate(),
		UserID:     change.UserID,
		OldScore:   current.Score,
		NewScore:   newScore,
		Delta:      delta,
		Action:     change.Action,
		ExternalID: change.ExternalID,
		CreatedAt:  now,
	})
	if err != nil {
		return domain.ChangeResult{}, err
	}
	if !inserted {
		// Already applied for this (external_id, action); replay is success.
		return domain.ChangeResult{
			OldScore: current.Score,
			NewScore: current.Score,
			Delta:    0,
			Applied:  false,
		}, nil
	}

	if err := s.repo.UpdateScore(ctx, tx, change.UserID, newScore, now); err != nil {
		return domain.ChangeResult{}, err
	}
	if err := s.repo.InsertHistory(ctx, tx, &domain.CreditScoreHistory{
		ID:         s.genID.Generate(),
		UserID:     change.UserID,
		Score:      newScore,
		RecordedAt: now,
	}); err != nil {
		return domain.ChangeResult{}, err
	}

	s.metrics.RecordScoreUpdate(string(change.Action))
	// Dropping the cached view after a rolled-back transaction is harmless,
	// so invalidation does not wait for commit.
	if err := s.cache.Invalidate(ctx, scoreViewKey(change.UserID)); err != nil {
		s.log.Warn("score cache invalidation failed", zap.Error(err))
	}

	return domain.ChangeResult{
		OldScore: current.Score,
		NewScore: newScore,
		Delta:    delta,
		Applied:  true,
	}, nil
}

func (s *Service) ApplyScoreChange(ctx context.Context, change domain.Change) (domain.ChangeResult, error) {
	var result domain.ChangeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.ApplyChange(ctx, tx, change)
		return txErr
	})
	if err != nil {
		return domain.ChangeResult{}, err
	}
	return result, nil
}

func (s *Service) GetScore(ctx context.Context, userID snowflake.ID) (domain.ScoreView, error) {
	if userID == 0 {
		return domain.ScoreView{}, errInvalidUser
	}

	key := scoreViewKey(userID)
	if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var view domain.ScoreView
		if err := json.Unmarshal(cached, &view); err == nil {
			return view, nil
		}
	}

	score, err := s.repo.FindScore(ctx, s.db, userID, false)
	if err != nil {
		return domain.ScoreView{}, err
	}
	persisted := 0
	if score != nil {
		persisted = score.Score
	}

	snap, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return domain.ScoreView{}, err
	}
	factors := computeFactors(snap)

	view := domain.ScoreView{
		UserID:          userID,
		Score:           persisted,
		Rating:          domain.RatingFor(persisted),
		Factors:         factors,
		Recommendations: recommendationsFor(snap, factors),
	}

	if encoded, err := json.Marshal(view); err == nil {
		if err := s.cache.Set(ctx, key, encoded, scoreViewTTL); err != nil {
			s.log.Warn("score cache write failed", zap.Error(err))
		}
	}

	return view, nil
}

func clampScore(score int) int {
	if score < domain.ScoreFloor {
		return domain.ScoreFloor
	}
	if score > domain.ScoreCeiling {
		return domain.ScoreCeiling
	}
	return score
}

func scoreViewKey(userID snowflake.ID) string {
	return fmt.Sprintf("credit_score:%d", userID)
}
