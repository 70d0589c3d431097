package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/winterarc/backend/models"
)

// ErrNotFound is returned when a document matching the query does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the set of operations any persistent backend needs to
// implement. One collection per entity type; documents are keyed by a
// generated unique id string.
type Storage interface {
	// Disconnects from the storage backend.
	Disconnect() error

	// Adds a new user to the storage backend.
	AddUser(ctx context.Context, user *models.User) error
	// Finds a user by its id. Returns ErrNotFound if absent.
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	// Finds a user by its email. Returns ErrNotFound if absent.
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// Persists a recomputed total score and winter title for a user.
	SetUserScore(ctx context.Context, id string, score int, title string) error
	// Persists updated streak counters and last-active time for a user.
	SetUserStreak(ctx context.Context, id string, streakDays, longestStreak int, lastActive time.Time) error
	// Lists up to limit users ordered by total score descending. Tie order
	// between equal scores is whatever the backend happens to return.
	ListUsersByScore(ctx context.Context, limit int64) ([]models.User, error)

	// Adds a new habit to the storage backend.
	AddHabit(ctx context.Context, habit *models.Habit) error
	// Finds a habit by its id. Returns ErrNotFound if absent.
	FindHabitByID(ctx context.Context, id string) (*models.Habit, error)
	// Lists all habits belonging to a user.
	ListHabits(ctx context.Context, userID string) ([]models.Habit, error)
	// Deletes a habit by its id. Returns ErrNotFound if nothing was deleted.
	// Logs referencing the habit are left in place.
	DeleteHabit(ctx context.Context, id string) error

	// Adds a new habit log to the storage backend.
	AddHabitLog(ctx context.Context, log *models.HabitLog) error
	// Lists up to limit habit logs for a user, newest first.
	ListHabitLogs(ctx context.Context, userID string, limit int64) ([]models.HabitLog, error)
	// Counts all habit logs for a user.
	CountHabitLogs(ctx context.Context, userID string) (int64, error)
	// Counts habit logs for a user logged at or after the given instant.
	CountHabitLogsSince(ctx context.Context, userID string, since time.Time) (int64, error)

	// Adds a new chat message to the storage backend.
	AddChatMessage(ctx context.Context, msg *models.ChatMessage) error
	// Lists up to limit chat messages for a user, newest first.
	ListChatMessages(ctx context.Context, userID string, limit int64) ([]models.ChatMessage, error)

	// Adds a new session to the storage backend.
	AddSession(ctx context.Context, session *models.Session) error
	// Finds a session whose token matches and whose expiry is after now.
	// Returns ErrNotFound for unknown or expired tokens.
	FindSessionByToken(ctx context.Context, token string, now time.Time) (*models.Session, error)
	// Deletes all sessions belonging to a user.
	DeleteSessionsByUser(ctx context.Context, userID string) error
	// Deletes the session with the given token. No-op if absent.
	DeleteSessionByToken(ctx context.Context, token string) error
	// Deletes every session whose expiry is at or before now and returns
	// the number of sessions removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// NewStorage creates a Storage with a MongoDB backend, using the provided
// URI to connect to the MongoDB server.
func NewStorage(dbName, uri string) (Storage, error) {
	storage := NewMongoStorage()
	err := storage.Connect(dbName, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return storage, nil
}
