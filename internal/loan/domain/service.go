package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/lumafi/lumafi/pkg/db/pagination"
)

type RequestLoanRequest struct {
	UserID          snowflake.ID `json:"user_id"`
	Amount          int64        `json:"amount"`
	DurationSeconds int64        `json:"duration_seconds"`
	Collateral      int64        `json:"collateral"`
}

type RepayLoanRequest struct {
	LoanID       snowflake.ID `json:"loan_id"`
	UserID       snowflake.ID `json:"user_id"`
	Amount       int64        `json:"amount"`
	ExternalTxID string       `json:"external_tx_id"`
}

// RepayLoanResponse reports the settled totals; Overpayment is never
// negative.
type RepayLoanResponse struct {
	Loan        Loan  `json:"loan"`
	TotalDue    int64 `json:"total_due"`
	Overpayment int64 `json:"overpayment"`
}

type ListLoansRequest struct {
	UserID snowflake.ID
	pagination.Pagination
}

type ListLoansResponse struct {
	pagination.PageInfo
	Loans []Loan `json:"loans"`
}

type Service interface {
	RequestLoan(ctx context.Context, req RequestLoanRequest) (Loan, error)
	RepayLoan(ctx context.Context, req RepayLoanRequest) (RepayLoanResponse, error)
	GetByID(ctx context.Context, userID, loanID snowflake.ID) (Loan, error)
	List(ctx context.Context, req ListLoansRequest) (ListLoansResponse, error)
}
