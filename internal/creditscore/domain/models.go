package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	// ScoreFloor and ScoreCeiling bound the persisted score at all times.
	ScoreFloor   = 0
	ScoreCeiling = 850
)

// ScoreAction identifies the discrete event a score delta belongs to.
type ScoreAction string

const (
	ActionPayment        ScoreAction = "payment"
	ActionLoanRepaid     ScoreAction = "loan_repaid"
	ActionSavingsDeposit ScoreAction = "savings_deposit"
	ActionDefault        ScoreAction = "default"
)

// DeltaFor returns the score delta for an action. Unknown actions map to
// zero and are applied as a no-op rather than rejected.
func DeltaFor(action ScoreAction) int {
	switch action {
	case ActionPayment:
		return 5
	case ActionLoanRepaid:
		return 20
	case ActionSavingsDeposit:
		return 2
	case ActionDefault:
		return -50
	default:
		return 0
	}
}

// CreditScore is the slow, persisted score mutated only through ApplyChange.
// It is created at zero and clamped to [ScoreFloor, ScoreCeiling].
type CreditScore struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID    snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:ux_credit_scores_user"`
	Score     int          `json:"score" gorm:"not null;default:0"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditScore) TableName() string { return "credit_scores" }

// CreditScoreUpdate is the append-only delta journal. The unique
// (external_id, action) pair is what makes every delta apply at most once.
type CreditScoreUpdate struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID     snowflake.ID `json:"user_id" gorm:"not null;index"`
	OldScore   int          `json:"old_score" gorm:"not null"`
	NewScore   int          `json:"new_score" gorm:"not null"`
	Delta      int          `json:"delta" gorm:"not null"`
	Action     ScoreAction  `json:"action" gorm:"type:text;not null;uniqueIndex:ux_credit_score_updates_dedupe,priority:2"`
	ExternalID string       `json:"external_id" gorm:"type:text;not null;uniqueIndex:ux_credit_score_updates_dedupe,priority:1"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditScoreUpdate) TableName() string { return "credit_score_updates" }

// CreditScoreHistory is an append-only time series of score snapshots for
// trend queries. Rows are never mutated after insert.
type CreditScoreHistory struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID     snowflake.ID `json:"user_id" gorm:"not null;index"`
	Score      int          `json:"score" gorm:"not null"`
	RecordedAt time.Time    `json:"recorded_at" gorm:"not null;index"`
}

// TableName sets the database table name.
func (CreditScoreHistory) TableName() string { return "credit_score_history" }

type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingVeryGood  Rating = "very_good"
	RatingGood      Rating = "good"
	RatingFair      Rating = "fair"
	RatingPoor      Rating = "poor"
)

// RatingFor maps a persisted score to its band.
func RatingFor(score int) Rating {
	switch {
	case score >= 800:
		return RatingExcellent
	case score >= 740:
		return RatingVeryGood
	case score >= 670:
		return RatingGood
	case score >= 580:
		return RatingFair
	default:
		return RatingPoor
	}
}

// Factors is the fast, recomputed composite. OverallScore is advisory and
// deliberately kept apart from the persisted CreditScore.
type Factors struct {
	PaymentHistory   int `json:"payment_history"`
	LoanHistory      int `json:"loan_history"`
	SavingsBehavior  int `json:"savings_behavior"`
	ProtocolActivity int `json:"protocol_activity"`
	OverallScore     int `json:"overall_score"`
}

type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

type Recommendation struct {
	Action   string                 `json:"action"`
	Priority RecommendationPriority `json:"priority"`
	Horizon  string                 `json:"horizon"`
}
