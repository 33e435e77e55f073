package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lumafi/lumafi/internal/user/domain"
	userrepo "github.com/lumafi/lumafi/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  userrepo.Provide(),
	})
}

func testWallet() string { return "0x" + strings.Repeat("AB", 20) }

func TestCreateUserNormalizesWallet(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.Create(context.Background(), domain.CreateUserRequest{
		WalletAddress: testWallet(),
	})
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(testWallet()), user.WalletAddress)
	assert.Equal(t, domain.UserStatusActive, user.Status)

	fetched, err := svc.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, fetched.ID)
}

func TestCreateUserRejectsBadWallet(t *testing.T) {
	svc := newTestService(t)

	for _, wallet := range []string{"", "0x123", "abc", "0x" + strings.Repeat("zz", 20)} {
		_, err := svc.Create(context.Background(), domain.CreateUserRequest{WalletAddress: wallet})
		assert.ErrorIs(t, err, domain.ErrInvalidWallet, wallet)
	}
}

func TestCreateUserRejectsDuplicateWallet(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateUserRequest{WalletAddress: testWallet()})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), domain.CreateUserRequest{
		WalletAddress: strings.ToUpper(testWallet()),
	})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestGetByWalletMatchesAnyCasing(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), domain.CreateUserRequest{WalletAddress: testWallet()})
	require.NoError(t, err)

	found, err := svc.GetByWallet(context.Background(), testWallet())
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.GetByWallet(context.Background(), "0x"+strings.Repeat("cd", 20))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetByIDUnknownUser(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetByID(context.Background(), snowflake.ID(12345))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
