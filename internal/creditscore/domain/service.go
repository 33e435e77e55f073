package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Change is one discrete score mutation keyed by the external identifier of
// the event that caused it.
type Change struct {
	UserID     snowflake.ID
	Action     ScoreAction
	ExternalID string
}

// ChangeResult reports the applied delta. Applied is false when the same
// (ExternalID, Action) pair was seen before; the score is left untouched.
type ChangeResult struct {
	OldScore int  `json:"old_score"`
	NewScore int  `json:"new_score"`
	Delta    int  `json:"delta"`
	Applied  bool `json:"applied"`
}

// ScoreView is the read model: persisted score, derived rating, factor
// breakdown, and improvement recommendations. Reads never mutate.
type ScoreView struct {
	UserID          snowflake.ID     `json:"user_id"`
	Score           int              `json:"score"`
	Rating          Rating           `json:"rating"`
	Factors         Factors          `json:"factors"`
	Recommendations []Recommendation `json:"recommendations"`
}

type Service interface {
	// ComputeFactors recomputes the advisory composite from current
	// multi-domain activity. Pure read, no side effects.
	ComputeFactors(ctx context.Context, userID snowflake.ID) (Factors, error)

	// ApplyChange applies one score delta inside the caller's transaction.
	// At most one application per (ExternalID, Action) pair.
	ApplyChange(ctx context.Context, tx *gorm.DB, change Change) (ChangeResult, error)

	// ApplyScoreChange is ApplyChange wrapped in its own transaction.
	ApplyScoreChange(ctx context.Context, change Change) (ChangeResult, error)

	GetScore(ctx context.Context, userID snowflake.ID) (ScoreView, error)
}
