package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	auth "github.com/bienesraices/go-auth"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newHTTPConfig() *MockConfig {
	cfg := new(MockConfig)
	cfg.On("GetTokenExpiration").Return(24)
	cfg.On("GetContextKey").Return("_token")
	cfg.On("GetRejectedRouteKey").Return("rejected_route")
	cfg.On("GetRejectedRouteDefault").Return("/mis-propiedades")
	return cfg
}

func TestRouteAuthenticatorLogin(t *testing.T) {
	mockAuth := new(MockAuthenticator)
	cfg := newHTTPConfig()

	httpAuth, err := auth.NewHTTPAuthenticator(mockAuth, cfg)
	require.NoError(t, err)
	httpAuth.Logger = testLogger{}

	t.Run("stores the signed credential in the session cookie", func(t *testing.T) {
		mockCtx := new(MockContext)

		mockCtx.On("Context").Return(context.Background())
		mockAuth.On("Login", mock.Anything, "ana@correo.com", "password123").
			Return("signed.jwt.token", nil).Once()

		mockCtx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
			return c.Name == "_token" &&
				c.Value == "signed.jwt.token" &&
				c.HTTPOnly &&
				c.Expires.After(time.Now())
		})).Return().Once()

		err := httpAuth.Login(mockCtx, auth.LoginRequest{
			Email:    "ana@correo.com",
			Password: "password123",
		})
		require.NoError(t, err)

		mockCtx.AssertExpectations(t)
	})

	t.Run("does not touch the cookie when authentication fails", func(t *testing.T) {
		mockCtx := new(MockContext)

		mockCtx.On("Context").Return(context.Background())
		mockAuth.On("Login", mock.Anything, "ana@correo.com", "incorrecto").
			Return("", auth.ErrMismatchedHashAndPassword).Once()

		err := httpAuth.Login(mockCtx, auth.LoginRequest{
			Email:    "ana@correo.com",
			Password: "incorrecto",
		})
		require.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)

		mockCtx.AssertNotCalled(t, "Cookie", mock.Anything)
	})

	mockAuth.AssertExpectations(t)
}

func TestRouteAuthenticatorLogout(t *testing.T) {
	mockAuth := new(MockAuthenticator)
	cfg := newHTTPConfig()

	httpAuth, err := auth.NewHTTPAuthenticator(mockAuth, cfg)
	require.NoError(t, err)

	mockCtx := new(MockContext)
	mockCtx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "_token" && c.Value == "" && c.Expires.Before(time.Now())
	})).Return().Once()

	httpAuth.Logout(mockCtx)

	mockCtx.AssertExpectations(t)
}

func TestProtectedRoute(t *testing.T) {
	t.Run("rejects requests without a session cookie", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		cfg := newHTTPConfig()

		httpAuth, err := auth.NewHTTPAuthenticator(mockAuth, cfg)
		require.NoError(t, err)

		mockCtx := new(MockContext)
		mockCtx.On("Cookies", "_token").Return("")

		var handled error
		mw := httpAuth.ProtectedRoute(cfg, func(c router.Context, err error) error {
			handled = err
			return nil
		})

		called := false
		handler := mw(func(c router.Context) error {
			called = true
			return nil
		})

		require.NoError(t, handler(mockCtx))
		assert.False(t, called)
		require.ErrorIs(t, handled, auth.ErrUnableToFindSession)
	})

	t.Run("rejects requests with an invalid credential", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		cfg := newHTTPConfig()

		httpAuth, err := auth.NewHTTPAuthenticator(mockAuth, cfg)
		require.NoError(t, err)

		mockCtx := new(MockContext)
		mockCtx.On("Cookies", "_token").Return("tampered.jwt")
		mockAuth.On("SessionFromToken", "tampered.jwt").
			Return(nil, errors.New("signature is invalid")).Once()

		var handled error
		mw := httpAuth.ProtectedRoute(cfg, func(c router.Context, err error) error {
			handled = err
			return nil
		})

		handler := mw(func(c router.Context) error { return nil })

		require.NoError(t, handler(mockCtx))
		require.Error(t, handled)
	})

	t.Run("exposes the session to the downstream handler", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		cfg := newHTTPConfig()

		httpAuth, err := auth.NewHTTPAuthenticator(mockAuth, cfg)
		require.NoError(t, err)

		session := &auth.SessionObject{
			UserID:   "c74d702e-64e0-4b41-a7d6-6464e1f1a837",
			UserName: "Ana",
		}

		mockCtx := new(MockContext)
		mockCtx.On("Cookies", "_token").Return("valid.jwt")
		mockAuth.On("SessionFromToken", "valid.jwt").Return(session, nil).Once()
		mockCtx.On("Locals", "_token", session).Return(nil).Once()
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("SetContext", mock.MatchedBy(func(ctx context.Context) bool {
			got, ok := auth.SessionFromContext(ctx)
			return ok && got.GetUserID() == session.UserID
		})).Return().Once()

		mw := httpAuth.ProtectedRoute(cfg, func(c router.Context, err error) error {
			t.Fatalf("unexpected auth error: %v", err)
			return nil
		})

		called := false
		handler := mw(func(c router.Context) error {
			called = true
			return nil
		})

		require.NoError(t, handler(mockCtx))
		assert.True(t, called)

		mockCtx.AssertExpectations(t)
		mockAuth.AssertExpectations(t)
	})
}

func TestRouteAuthenticatorRedirects(t *testing.T) {
	mockAuth := new(MockAuthenticator)
	cfg := newHTTPConfig()

	httpAuth, err := auth.NewHTTPAuthenticator(mockAuth, cfg)
	require.NoError(t, err)
	httpAuth.Logger = testLogger{}

	t.Run("SetRedirect remembers the rejected route", func(t *testing.T) {
		mockCtx := new(MockContext)

		mockCtx.On("OriginalURL").Return("/mis-propiedades")
		mockCtx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
			return c.Name == "rejected_route" && c.Value == "/mis-propiedades" && c.HTTPOnly
		})).Return().Once()

		httpAuth.SetRedirect(mockCtx)

		mockCtx.AssertExpectations(t)
	})

	t.Run("GetRedirect consumes the stored route", func(t *testing.T) {
		mockCtx := new(MockContext)

		mockCtx.On("Cookies", "rejected_route").Return("/propiedades/crear")
		mockCtx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
			return c.Name == "rejected_route" && c.Value == "" && c.Expires.Before(time.Now())
		})).Return().Once()

		redirect := httpAuth.GetRedirect(mockCtx, "/mis-propiedades")
		assert.Equal(t, "/propiedades/crear", redirect)

		mockCtx.AssertExpectations(t)
	})

	t.Run("GetRedirect falls back to the given default", func(t *testing.T) {
		mockCtx := new(MockContext)

		mockCtx.On("Cookies", "rejected_route").Return("")

		redirect := httpAuth.GetRedirect(mockCtx, "/mis-propiedades")
		assert.Equal(t, "/mis-propiedades", redirect)
	})

	t.Run("GetRedirect falls back to the configured default", func(t *testing.T) {
		mockCtx := new(MockContext)

		mockCtx.On("Cookies", "rejected_route").Return("")

		redirect := httpAuth.GetRedirect(mockCtx)
		assert.Equal(t, "/mis-propiedades", redirect)
	})
}
