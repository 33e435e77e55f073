package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	loandomain "github.com/lumafi/lumafi/internal/loan/domain"
	userdomain "github.com/lumafi/lumafi/internal/user/domain"
	webhookdomain "github.com/lumafi/lumafi/internal/webhook/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware maps domain errors pushed via c.Error onto HTTP
// responses. Storage errors deliberately surface as a generic failure; the
// diagnostic detail stays in the logs.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var credit *loandomain.InsufficientCreditError
	if errors.As(err, &credit) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "insufficient_credit",
			Message: credit.Error(),
			Details: credit,
		}
	}
	var collateral *loandomain.InsufficientCollateralError
	if errors.As(err, &collateral) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "insufficient_collateral",
			Message: collateral.Error(),
			Details: collateral,
		}
	}
	var payment *loandomain.InsufficientPaymentError
	if errors.As(err, &payment) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "insufficient_payment",
			Message: payment.Error(),
			Details: payment,
		}
	}

	switch {
	case errors.Is(err, webhookdomain.ErrInvalidSignature),
		errors.Is(err, webhookdomain.ErrSecretMissing):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, webhookdomain.ErrInvalidPayload),
		errors.Is(err, webhookdomain.ErrUnsupportedEvent),
		errors.Is(err, loandomain.ErrInvalidAmount),
		errors.Is(err, loandomain.ErrInvalidCollateral),
		errors.Is(err, loandomain.ErrInvalidDuration),
		errors.Is(err, loandomain.ErrInvalidExternalID),
		errors.Is(err, userdomain.ErrInvalidWallet):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, loandomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, loandomain.ErrInvalidState),
		errors.Is(err, userdomain.ErrUserExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
