package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateUserRequest struct {
	WalletAddress string `json:"wallet_address"`
}

type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (User, error)
	GetByID(ctx context.Context, id snowflake.ID) (User, error)
	GetByWallet(ctx context.Context, wallet string) (User, error)
}

var (
	ErrInvalidWallet = errors.New("invalid_wallet_address")
	ErrUserExists    = errors.New("user_exists")
	ErrNotFound      = errors.New("user_not_found")
)
