package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	loandomain "github.com/lumafi/lumafi/internal/loan/domain"
	walletdomain "github.com/lumafi/lumafi/internal/wallet/domain"
	"github.com/lumafi/lumafi/pkg/db/pagination"
)

type requestLoanBody struct {
	UserID          string `json:"user_id" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
	DurationSeconds int64  `json:"duration_seconds" binding:"required"`
	Collateral      string `json:"collateral" binding:"required"`
}

func (s *Server) handleRequestLoan(c *gin.Context) {
	var body requestLoanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, loandomain.ErrInvalidAmount)
		return
	}

	userID, err := snowflake.ParseString(body.UserID)
	if err != nil {
		AbortWithError(c, loandomain.ErrNotFound)
		return
	}
	amount, err := walletdomain.ParseAmount(body.Amount)
	if err != nil {
		AbortWithError(c, loandomain.ErrInvalidAmount)
		return
	}
	collateral, err := walletdomain.ParseAmount(body.Collateral)
	if err != nil {
		AbortWithError(c, loandomain.ErrInvalidCollateral)
		return
	}

	loan, err := s.loanSvc.RequestLoan(c.Request.Context(), loandomain.RequestLoanRequest{
		UserID:          userID,
		Amount:          amount,
		DurationSeconds: body.DurationSeconds,
		Collateral:      collateral,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, loan)
}

type repayLoanBody struct {
	UserID       string `json:"user_id" binding:"required"`
	Amount       string `json:"amount" binding:"required"`
	ExternalTxID string `json:"external_tx_id" binding:"required"`
}

func (s *Server) handleRepayLoan(c *gin.Context) {
	loanID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, loandomain.ErrNotFound)
		return
	}

	var body repayLoanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, loandomain.ErrInvalidAmount)
		return
	}

	userID, err := snowflake.ParseString(body.UserID)
	if err != nil {
		AbortWithError(c, loandomain.ErrNotFound)
		return
	}
	amount, err := walletdomain.ParseAmount(body.Amount)
	if err != nil {
		AbortWithError(c, loandomain.ErrInvalidAmount)
		return
	}

	resp, err := s.loanSvc.RepayLoan(c.Request.Context(), loandomain.RepayLoanRequest{
		LoanID:       loanID,
		UserID:       userID,
		Amount:       amount,
		ExternalTxID: body.ExternalTxID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetLoan(c *gin.Context) {
	loanID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, loandomain.ErrNotFound)
		return
	}
	userID, err := snowflake.ParseString(c.Query("user_id"))
	if err != nil {
		AbortWithError(c, loandomain.ErrNotFound)
		return
	}

	loan, err := s.loanSvc.GetByID(c.Request.Context(), userID, loanID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, loan)
}

func (s *Server) handleListLoans(c *gin.Context) {
	userID, err := snowflake.ParseString(c.Query("user_id"))
	if err != nil {
		AbortWithError(c, loandomain.ErrNotFound)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, loandomain.ErrInvalidAmount)
		return
	}

	resp, err := s.loanSvc.List(c.Request.Context(), loandomain.ListLoansRequest{
		UserID:     userID,
		Pagination: page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
