package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func newAuthService() *AuthService {
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}}
	return NewAuthService(cfg, memory.NewStore().Users())
}

func TestCreateUserAndLogin(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, NewUserInput{Username: "admin", Password: "s3cret-pass", IsStaff: true})
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	_, err = svc.CreateUser(ctx, NewUserInput{Username: "admin", Password: "another-pass"})
	assert.Equal(t, apperrors.CodeValidation, domainCode(t, err))

	_, err = svc.CreateUser(ctx, NewUserInput{Username: "short", Password: "123"})
	assert.Equal(t, apperrors.CodeValidation, domainCode(t, err))

	got, token, err := svc.Login(ctx, "admin", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, domain.SubjectTypeStaff, token.Subject)

	claims, err := svc.TokenManager().ParseToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, _, err = svc.Login(ctx, "admin", "wrong")
	assert.Equal(t, apperrors.CodeUnauthorized, domainCode(t, err))
	_, _, err = svc.Login(ctx, "nobody", "wrong")
	assert.Equal(t, apperrors.CodeUnauthorized, domainCode(t, err))
}

func TestListUsersRequiresStaff(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()
	staff, err := svc.CreateUser(ctx, NewUserInput{Username: "zed", Password: "password1", IsStaff: true})
	require.NoError(t, err)
	viewer, err := svc.CreateUser(ctx, NewUserInput{Username: "amy", Password: "password1"})
	require.NoError(t, err)

	users, err := svc.ListUsers(ctx, staff)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "amy", users[0].Username)

	_, err = svc.ListUsers(ctx, viewer)
	assert.Equal(t, apperrors.CodeForbidden, domainCode(t, err))
}
