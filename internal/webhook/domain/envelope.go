package domain

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	walletdomain "github.com/lumafi/lumafi/internal/wallet/domain"
)

var (
	txHashPattern   = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	contractPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Envelope is the raw inbound notification shape. Field presence depends on
// the event type; ParseEnvelope validates per type and narrows to an Event.
type Envelope struct {
	EventType       string `json:"eventType"`
	TransactionHash string `json:"transactionHash,omitempty"`
	BlockNumber     *int64 `json:"blockNumber,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
	PaymentID       string `json:"paymentId,omitempty"`
	Amount          string `json:"amount,omitempty"`
	Currency        string `json:"currency,omitempty"`
	UserID          int64  `json:"userId,omitempty"`
	LoanID          int64  `json:"loanId,omitempty"`
}

// ParseEnvelope decodes and validates a raw body into its event variant.
func ParseEnvelope(body []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrInvalidPayload
	}

	switch strings.TrimSpace(env.EventType) {
	case EventTypeTransactionConfirmed:
		if !txHashPattern.MatchString(env.TransactionHash) {
			return nil, ErrInvalidPayload
		}
		block, err := requireBlockNumber(env.BlockNumber)
		if err != nil {
			return nil, err
		}
		return TransactionConfirmed{TxHash: env.TransactionHash, BlockNumber: block}, nil

	case EventTypePaymentCompleted:
		userID, err := requireUserID(env.UserID)
		if err != nil {
			return nil, err
		}
		amount, err := ParseAmount(env.Amount)
		if err != nil {
			return nil, err
		}
		currency := strings.ToUpper(strings.TrimSpace(env.Currency))
		if !currencyPattern.MatchString(currency) {
			return nil, ErrInvalidPayload
		}
		if strings.TrimSpace(env.PaymentID) == "" {
			return nil, ErrInvalidPayload
		}
		if env.TransactionHash != "" && !txHashPattern.MatchString(env.TransactionHash) {
			return nil, ErrInvalidPayload
		}
		return PaymentCompleted{
			PaymentID: env.PaymentID,
			UserID:    userID,
			Amount:    amount,
			Currency:  currency,
			TxHash:    env.TransactionHash,
		}, nil

	case EventTypePaymentFailed:
		if strings.TrimSpace(env.PaymentID) == "" {
			return nil, ErrInvalidPayload
		}
		return PaymentFailed{PaymentID: env.PaymentID, UserID: snowflake.ID(env.UserID)}, nil

	case EventTypeRefundProcessed:
		if strings.TrimSpace(env.PaymentID) == "" {
			return nil, ErrInvalidPayload
		}
		amount := int64(0)
		if env.Amount != "" {
			parsed, err := ParseAmount(env.Amount)
			if err != nil {
				return nil, err
			}
			amount = parsed
		}
		return RefundProcessed{PaymentID: env.PaymentID, UserID: snowflake.ID(env.UserID), Amount: amount}, nil

	case EventTypeContractEvent:
		if !contractPattern.MatchString(env.ContractAddress) {
			return nil, ErrInvalidPayload
		}
		block, err := requireBlockNumber(env.BlockNumber)
		if err != nil {
			return nil, err
		}
		return ContractEvent{ContractAddress: env.ContractAddress, BlockNumber: block}, nil

	case EventTypeBlockMined:
		block, err := requireBlockNumber(env.BlockNumber)
		if err != nil {
			return nil, err
		}
		return BlockMined{BlockNumber: block}, nil

	case EventTypeLoanFunded:
		if env.LoanID <= 0 || !txHashPattern.MatchString(env.TransactionHash) {
			return nil, ErrInvalidPayload
		}
		return LoanFunded{LoanID: snowflake.ID(env.LoanID), TxHash: env.TransactionHash}, nil

	case EventTypeLoanDefaulted:
		if env.LoanID <= 0 {
			return nil, ErrInvalidPayload
		}
		userID, err := requireUserID(env.UserID)
		if err != nil {
			return nil, err
		}
		return LoanDefaulted{LoanID: snowflake.ID(env.LoanID), UserID: userID}, nil

	default:
		return nil, ErrUnsupportedEvent
	}
}

// ParseAmount narrows a positive decimal amount string to minor units,
// mapping malformed values onto the envelope's own error.
func ParseAmount(raw string) (int64, error) {
	amount, err := walletdomain.ParseAmount(raw)
	if err != nil {
		return 0, ErrInvalidPayload
	}
	return amount, nil
}

func requireBlockNumber(block *int64) (int64, error) {
	if block == nil || *block < 0 {
		return 0, ErrInvalidPayload
	}
	return *block, nil
}

func requireUserID(raw int64) (snowflake.ID, error) {
	if raw <= 0 {
		return 0, ErrInvalidPayload
	}
	return snowflake.ID(raw), nil
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
