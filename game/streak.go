package game

import (
	"context"
	"errors"
	"time"

	"github.com/winterarc/backend/storage"
)

// StreakTracker maintains a user's consecutive-day activity streak.
type StreakTracker struct {
	store storage.Storage
	// now is swappable for tests.
	now func() time.Time
}

// NewStreakTracker creates a StreakTracker over the given storage backend.
func NewStreakTracker(store storage.Storage) *StreakTracker {
	return &StreakTracker{store: store, now: time.Now}
}

// UpdateStreak updates the user's streak based on whether any habit was
// logged during the current UTC calendar day. If so, the streak is
// incremented and the longest streak raised to match when exceeded;
// otherwise the streak resets to zero. LastActive is refreshed either way.
//
// The check is "any log exists today", not "today already counted": two
// calls on an active day both increment the streak. Callers invoke this once
// per habit-log write, so the streak counts log writes on active days, not
// distinct days. A missing user is a silent no-op.
func (t *StreakTracker) UpdateStreak(ctx context.Context, userID string) error {
	user, err := t.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}

	now := t.now().UTC()
	todayStart := now.Truncate(24 * time.Hour)

	todayLogs, err := t.store.CountHabitLogsSince(ctx, userID, todayStart)
	if err != nil {
		return err
	}

	streak := user.StreakDays
	longest := user.LongestStreak
	if todayLogs > 0 {
		streak++
		if streak > longest {
			longest = streak
		}
	} else {
		streak = 0
	}

	return t.store.SetUserStreak(ctx, userID, streak, longest, now)
}
