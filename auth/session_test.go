package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winterarc/backend/models"
	"github.com/winterarc/backend/storage"
)

func TestCreateSupersedesPriorSessions(t *testing.T) {
	store := storage.NewMemoryStorage()
	sessions := NewSessionManager(store)

	userID := uuid.NewString()

	first, err := sessions.Create(context.Background(), userID, "token-one")
	require.NoError(t, err)
	assert.Equal(t, userID, first.UserID)

	_, err = sessions.Create(context.Background(), userID, "token-two")
	require.NoError(t, err)

	// The old token no longer resolves; only the latest session is live.
	_, err = sessions.Resolve(context.Background(), "token-one")
	assert.ErrorIs(t, err, ErrNoSession)

	resolved, err := sessions.Resolve(context.Background(), "token-two")
	require.NoError(t, err)
	assert.Equal(t, userID, resolved)
}

func TestResolveRejectsExpiredSession(t *testing.T) {
	store := storage.NewMemoryStorage()
	sessions := NewSessionManager(store)

	// A structurally valid session whose expiry has passed.
	expired := &models.Session{
		ID:           uuid.NewString(),
		SessionToken: "stale-token",
		UserID:       uuid.NewString(),
		ExpiresAt:    time.Now().UTC().Add(-time.Minute),
		CreatedAt:    time.Now().UTC().Add(-8 * 24 * time.Hour),
	}
	require.NoError(t, store.AddSession(context.Background(), expired))

	_, err := sessions.Resolve(context.Background(), "stale-token")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestResolveEmptyToken(t *testing.T) {
	sessions := NewSessionManager(storage.NewMemoryStorage())

	_, err := sessions.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestInvalidateIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStorage()
	sessions := NewSessionManager(store)

	userID := uuid.NewString()
	_, err := sessions.Create(context.Background(), userID, "token")
	require.NoError(t, err)

	require.NoError(t, sessions.Invalidate(context.Background(), "token"))
	require.NoError(t, sessions.Invalidate(context.Background(), "token"))
	require.NoError(t, sessions.Invalidate(context.Background(), "never-existed"))

	_, err = sessions.Resolve(context.Background(), "token")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionExpiryIsSevenDays(t *testing.T) {
	store := storage.NewMemoryStorage()
	sessions := NewSessionManager(store)

	before := time.Now().UTC().Add(SessionTTL)
	session, err := sessions.Create(context.Background(), uuid.NewString(), "token")
	require.NoError(t, err)
	after := time.Now().UTC().Add(SessionTTL)

	assert.False(t, session.ExpiresAt.Before(before))
	assert.False(t, session.ExpiresAt.After(after))
}

func TestTokenFromRequestPrefersCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})

	assert.Equal(t, "cookie-token", TokenFromRequest(r))
}

func TestTokenFromRequestFallsBackToBearer(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.Header.Set("Authorization", "Bearer header-token")

	assert.Equal(t, "header-token", TokenFromRequest(r))
}

func TestTokenFromRequestMissing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, "", TokenFromRequest(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", TokenFromRequest(r))
}

func TestReaperSweepsExpiredSessions(t *testing.T) {
	store := storage.NewMemoryStorage()

	require.NoError(t, store.AddSession(context.Background(), &models.Session{
		ID:           uuid.NewString(),
		SessionToken: "stale",
		UserID:       uuid.NewString(),
		ExpiresAt:    time.Now().UTC().Add(-time.Hour),
	}))
	require.NoError(t, store.AddSession(context.Background(), &models.Session{
		ID:           uuid.NewString(),
		SessionToken: "live",
		UserID:       uuid.NewString(),
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}))

	reaper := NewSessionReaper(store)
	reaper.sweep()

	_, err := store.FindSessionByToken(context.Background(), "live", time.Now().UTC())
	assert.NoError(t, err)

	deleted, err := store.DeleteExpiredSessions(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted, "sweep already removed the expired session")
}
