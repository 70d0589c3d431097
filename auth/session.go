package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/winterarc/backend/models"
	"github.com/winterarc/backend/storage"
)

// SessionTTL is how long an app session stays valid after login.
const SessionTTL = 7 * 24 * time.Hour

// SessionCookieName is the name of the cookie carrying the session token.
const SessionCookieName = "session_token"

// ErrNoSession is returned when a token does not resolve to a live session.
var ErrNoSession = errors.New("no valid session")

// SessionManager persists opaque session tokens mapped to user identity and
// expiry, and validates tokens on each request. Expired sessions are left in
// the store; every lookup re-checks expiry instead.
type SessionManager struct {
	store storage.Storage
}

// NewSessionManager creates a SessionManager over the given storage backend.
func NewSessionManager(store storage.Storage) *SessionManager {
	return &SessionManager{store: store}
}

// Create issues a new session for the user with the given token, expiring
// after SessionTTL. All prior sessions for the user are deleted first, so a
// user has at most one live session.
func (s *SessionManager) Create(ctx context.Context, userID, token string) (*models.Session, error) {
	if err := s.store.DeleteSessionsByUser(ctx, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:           uuid.NewString(),
		SessionToken: token,
		UserID:       userID,
		ExpiresAt:    now.Add(SessionTTL),
		CreatedAt:    now,
	}
	if err := s.store.AddSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Resolve returns the user id for a token, or ErrNoSession if the token is
// unknown or the session has expired.
func (s *SessionManager) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNoSession
	}
	session, err := s.store.FindSessionByToken(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrNoSession
		}
		return "", err
	}
	return session.UserID, nil
}

// Invalidate deletes the session with the given token. Idempotent.
func (s *SessionManager) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteSessionByToken(ctx, token)
}

// TokenFromRequest extracts the session token from a request. The session
// cookie takes priority; otherwise a bearer Authorization header is used.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
