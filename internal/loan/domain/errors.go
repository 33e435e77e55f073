package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidCollateral = errors.New("invalid_collateral")
	ErrInvalidDuration   = errors.New("invalid_duration")
	ErrInvalidExternalID = errors.New("invalid_external_id")
	ErrNotFound          = errors.New("loan_not_found")
	ErrInvalidState      = errors.New("invalid_loan_state")
)

// InsufficientCreditError rejects a loan request whose owner scores below
// the tier required for the requested principal.
type InsufficientCreditError struct {
	Current  int `json:"current"`
	Required int `json:"required"`
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient_credit: score %d below required %d", e.Current, e.Required)
}

// InsufficientCollateralError rejects a request below the collateral floor.
type InsufficientCollateralError struct {
	Ratio    float64 `json:"ratio"`
	Required float64 `json:"required"`
}

func (e *InsufficientCollateralError) Error() string {
	return fmt.Sprintf("insufficient_collateral: ratio %.1f%% below required %.1f%%", e.Ratio, e.Required)
}

// InsufficientPaymentError rejects a repayment short of the total due.
type InsufficientPaymentError struct {
	Shortfall int64 `json:"shortfall"`
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient_payment: short by %d", e.Shortfall)
}
