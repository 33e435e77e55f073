package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lumafi/lumafi/internal/user/domain"
	"github.com/lumafi/lumafi/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	wallet := strings.ToLower(strings.TrimSpace(req.WalletAddress))
	if !walletPattern.MatchString(wallet) {
		return domain.User{}, domain.ErrInvalidWallet
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:            s.genID.Generate(),
		WalletAddress: wallet,
		Status:        domain.UserStatusActive,
		Role:          domain.UserRoleMember,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrUserExists
		}
		return domain.User{}, err
	}

	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.User, error) {
	if id == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) GetByWallet(ctx context.Context, wallet string) (domain.User, error) {
	wallet = strings.ToLower(strings.TrimSpace(wallet))
	if !walletPattern.MatchString(wallet) {
		return domain.User{}, domain.ErrInvalidWallet
	}
	user, err := s.repo.FindByWallet(ctx, s.db, wallet)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}
