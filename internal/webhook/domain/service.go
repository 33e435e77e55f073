package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Receipt reports the stored event. A replayed envelope gets the first
// delivery's receipt back with Duplicate set; duplicates are success.
type Receipt struct {
	EventID   snowflake.ID `json:"event_id"`
	EventType string       `json:"event_type"`
	Duplicate bool         `json:"duplicate"`
}

type Service interface {
	// Ingest authenticates, deduplicates, and applies one inbound envelope.
	// Persisting the event and applying its effects happen in one atomic
	// unit; a handler failure leaves no trace of the event.
	Ingest(ctx context.Context, body []byte, signature string) (Receipt, error)
}

type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, event *WebhookEvent) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, eventType, correlationKey string) (*WebhookEvent, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrUnsupportedEvent = errors.New("unsupported_event_type")
	ErrSecretMissing    = errors.New("webhook_secret_missing")
)
