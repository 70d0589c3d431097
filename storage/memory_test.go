package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winterarc/backend/models"
)

func TestMemoryListHabitLogsNewestFirst(t *testing.T) {
	store := NewMemoryStorage()
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.AddHabitLog(context.Background(), &models.HabitLog{
			ID:       string(rune('a' + i)),
			UserID:   "u1",
			Value:    "1",
			LoggedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	logs, err := store.ListHabitLogs(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "c", logs[0].ID)
	assert.Equal(t, "a", logs[2].ID)

	logs, err = store.ListHabitLogs(context.Background(), "u1", 2)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestMemoryListUsersByScoreStableTies(t *testing.T) {
	store := NewMemoryStorage()

	for _, u := range []models.User{
		{ID: "first", Email: "a@x", TotalScore: 300},
		{ID: "second", Email: "b@x", TotalScore: 300},
		{ID: "third", Email: "c@x", TotalScore: 100},
	} {
		u := u
		require.NoError(t, store.AddUser(context.Background(), &u))
	}

	users, err := store.ListUsersByScore(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "first", users[0].ID)
	assert.Equal(t, "second", users[1].ID)
	assert.Equal(t, "third", users[2].ID)
}

func TestMemoryDeleteHabitLeavesLogs(t *testing.T) {
	store := NewMemoryStorage()

	require.NoError(t, store.AddHabit(context.Background(), &models.Habit{ID: "h1", UserID: "u1", Name: "Run"}))
	require.NoError(t, store.AddHabitLog(context.Background(), &models.HabitLog{
		ID: "l1", UserID: "u1", HabitID: "h1", LoggedAt: time.Now().UTC(),
	}))

	require.NoError(t, store.DeleteHabit(context.Background(), "h1"))
	assert.ErrorIs(t, store.DeleteHabit(context.Background(), "h1"), ErrNotFound)

	count, err := store.CountHabitLogs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "logs survive habit deletion")
}

func TestMemoryCountHabitLogsSince(t *testing.T) {
	store := NewMemoryStorage()
	now := time.Now().UTC()

	require.NoError(t, store.AddHabitLog(context.Background(), &models.HabitLog{
		ID: "old", UserID: "u1", LoggedAt: now.Add(-48 * time.Hour),
	}))
	require.NoError(t, store.AddHabitLog(context.Background(), &models.HabitLog{
		ID: "new", UserID: "u1", LoggedAt: now,
	}))

	count, err := store.CountHabitLogsSince(context.Background(), "u1", now.Truncate(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
