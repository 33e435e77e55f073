package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lumafi/lumafi/internal/config"
	settlementdomain "github.com/lumafi/lumafi/internal/settlement/domain"
	"github.com/lumafi/lumafi/internal/telemetry"
	"github.com/lumafi/lumafi/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Cfg        config.Config
	Repo       domain.Repository
	Dispatcher settlementdomain.Dispatcher
	Metrics    *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	secret     []byte
	repo       domain.Repository
	dispatcher settlementdomain.Dispatcher
	metrics    *telemetry.Metrics
}

func New(p Params) domain.Service {
	var secret []byte
	if s := strings.TrimSpace(p.Cfg.WebhookSecret); s != "" {
		secret = []byte(s)
	}

	return &Service{
		db:         p.DB,
		log:        p.Log.Named("webhook.service"),
		genID:      p.GenID,
		secret:     secret,
		repo:       p.Repo,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
	}
}

func (s *Service) Ingest(ctx context.Context, body []byte, signature string) (domain.Receipt, error) {
	if err := s.verify(body, signature); err != nil {
		s.metrics.RecordWebhookEvent("unknown", "unauthorized")
		return domain.Receipt{}, err
	}

	event, err := domain.ParseEnvelope(body)
	if err != nil {
		s.metrics.RecordWebhookEvent("unknown", "invalid")
		return domain.Receipt{}, err
	}

	var receipt domain.Receipt
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		record := domain.WebhookEvent{
			ID:             s.genID.Generate(),
			EventType:      event.EventType(),
			CorrelationKey: event.CorrelationKey(),
			Payload:        datatypes.JSON(body),
			Processed:      false,
			CreatedAt:      now,
		}

		inserted, err := s.repo.InsertEvent(ctx, tx, &record)
		if err != nil {
			return err
		}
		if !inserted {
			// Replay: hand back the first delivery's outcome, apply nothing.
			stored, err := s.repo.FindEvent(ctx, tx, record.EventType, record.CorrelationKey)
			if err != nil {
				return err
			}
			if stored == nil {
				return gorm.ErrRecordNotFound
			}
			receipt = domain.Receipt{
				EventID:   stored.ID,
				EventType: stored.EventType,
				Duplicate: true,
			}
			return nil
		}

		if err := s.dispatch(ctx, tx, event); err != nil {
			return err
		}

		if err := s.repo.MarkProcessed(ctx, tx, record.ID, now); err != nil {
			return err
		}

		receipt = domain.Receipt{
			EventID:   record.ID,
			EventType: record.EventType,
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordWebhookEvent(event.EventType(), "failed")
		return domain.Receipt{}, err
	}

	if receipt.Duplicate {
		s.metrics.RecordWebhookEvent(event.EventType(), "duplicate")
	} else {
		s.metrics.RecordWebhookEvent(event.EventType(), "applied")
	}
	return receipt, nil
}

func (s *Service) verify(body []byte, signature string) error {
	if len(s.secret) == 0 {
		s.log.Error("webhook secret not configured, refusing envelope")
		return domain.ErrSecretMissing
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event domain.Event) error {
	switch ev := event.(type) {
	case domain.TransactionConfirmed:
		return s.dispatcher.ApplyTransactionConfirmation(ctx, tx, ev)
	case domain.PaymentCompleted:
		return s.dispatcher.ApplyPaymentCompleted(ctx, tx, ev)
	case domain.PaymentFailed:
		// Recorded for audit, no ledger credit.
		s.log.Info("payment failed",
			zap.String("payment_id", ev.PaymentID),
			zap.Int64("user_id", int64(ev.UserID)),
		)
		return nil
	case domain.RefundProcessed:
		// Recorded for audit, no ledger credit.
		s.log.Info("refund processed",
			zap.String("payment_id", ev.PaymentID),
			zap.Int64("user_id", int64(ev.UserID)),
			zap.Int64("amount", ev.Amount),
		)
		return nil
	case domain.ContractEvent:
		// Pass-through metadata; the stored event row is the record.
		return nil
	case domain.BlockMined:
		return nil
	case domain.LoanFunded:
		return s.dispatcher.ApplyLoanFunded(ctx, tx, ev)
	case domain.LoanDefaulted:
		return s.dispatcher.ApplyLoanDefaulted(ctx, tx, ev)
	default:
		return domain.ErrUnsupportedEvent
	}
}
