package middlewarectx_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marlinkeeper/aquatrack/internal/http/middlewarectx"
	"github.com/marlinkeeper/aquatrack/internal/models"
)

type AuthMock struct{ mock.Mock }

func (m *AuthMock) ValidateToken(ctx context.Context, token string) (*models.User, bool, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*models.User)
	return user, args.Bool(1), args.Error(2)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware_ValidTokenFillsContext(t *testing.T) {
	auth := new(AuthMock)
	auth.On("ValidateToken", mock.Anything, "good-token").Return(&models.User{
		Username: "neon", Role: "user", UID: "uid-1",
	}, true, nil)

	handlerCalled := false
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		assert.Equal(t, "neon", r.Context().Value(middlewarectx.User))
		assert.Equal(t, "user", r.Context().Value(middlewarectx.Role))
		assert.Equal(t, "uid-1", r.Context().Value(middlewarectx.UserUID))
	})

	mw := middlewarectx.JWTMiddleware(auth, newNoopLogger())(next)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tanks", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	mw.ServeHTTP(rec, req)
	assert.True(t, handlerCalled)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	mw := middlewarectx.JWTMiddleware(new(AuthMock), newNoopLogger())(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler must not be called")
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tanks", nil)
	rec := httptest.NewRecorder()

	mw.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_InvalidToken(t *testing.T) {
	auth := new(AuthMock)
	auth.On("ValidateToken", mock.Anything, "bad-token").
		Return(nil, false, errors.New("token is expired"))

	mw := middlewarectx.JWTMiddleware(auth, newNoopLogger())(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler must not be called")
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tanks", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()

	mw.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
