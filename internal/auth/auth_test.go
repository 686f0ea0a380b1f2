package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken(42, domain.SubjectTypeStaff)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, domain.SubjectTypeStaff, claims.Subject)
	assert.Equal(t, "42", claims.RegisteredClaims.Subject)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.GenerateToken(1, domain.SubjectTypeUser)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 1).ParseToken(token)
	assert.Error(t, err)
}

func TestCapabilityFor(t *testing.T) {
	assert.Equal(t, CapabilityRead, CapabilityFor(http.MethodGet))
	assert.Equal(t, CapabilityRead, CapabilityFor(http.MethodHead))
	assert.Equal(t, CapabilityRead, CapabilityFor(http.MethodOptions))
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		assert.Equal(t, CapabilityWrite, CapabilityFor(m), m)
	}
}

func TestPolicies(t *testing.T) {
	staff := &Principal{User: &domain.User{ID: 1, IsStaff: true}}
	regular := &Principal{User: &domain.User{ID: 2}}

	cases := []struct {
		name      string
		policy    Policy
		principal *Principal
		cap       Capability
		code      string
	}{
		{"public anonymous write", Public, nil, CapabilityWrite, ""},
		{"auth read anonymous", AuthenticatedReadStaffWrite, nil, CapabilityRead, apperrors.CodeUnauthorized},
		{"auth read regular", AuthenticatedReadStaffWrite, regular, CapabilityRead, ""},
		{"auth write regular", AuthenticatedReadStaffWrite, regular, CapabilityWrite, apperrors.CodeForbidden},
		{"auth write staff", AuthenticatedReadStaffWrite, staff, CapabilityWrite, ""},
		{"staff read regular", StaffOnly, regular, CapabilityRead, apperrors.CodeForbidden},
		{"staff read anonymous", StaffOnly, nil, CapabilityRead, apperrors.CodeUnauthorized},
		{"staff write staff", StaffOnly, staff, CapabilityWrite, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Authorize(tc.principal, tc.cap)
			if tc.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestMiddlewareLoadsPrincipal(t *testing.T) {
	store := memory.NewStore()
	users := store.Users()
	staff := &domain.User{Username: "admin", IsStaff: true, IsActive: true}
	require.NoError(t, users.Create(context.Background(), staff))
	inactive := &domain.User{Username: "gone", IsActive: false}
	require.NoError(t, users.Create(context.Background(), inactive))

	tm := NewTokenManager("secret", 5)
	mw := NewAuthMiddleware(tm, users)

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).SendString(de.Code)
	}})
	app.Get("/who", mw.Handle, Enforce(StaffOnly), func(c *fiber.Ctx) error {
		return c.SendString(UserFromContext(c).Username)
	})
	app.Get("/anon", mw.Handle, func(c *fiber.Ctx) error {
		if UserFromContext(c) == nil {
			return c.SendString("anonymous")
		}
		return c.SendString("known")
	})

	call := func(path, header string) (int, string) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	token, _, err := tm.GenerateToken(staff.ID, domain.SubjectTypeStaff)
	require.NoError(t, err)
	status, body := call("/who", "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin", body)

	status, body = call("/anon", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "anonymous", body)

	status, _ = call("/who", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call("/anon", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call("/anon", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, status)

	inactiveToken, _, err := tm.GenerateToken(inactive.ID, domain.SubjectTypeUser)
	require.NoError(t, err)
	status, _ = call("/anon", "Bearer "+inactiveToken)
	assert.Equal(t, http.StatusUnauthorized, status)
}
