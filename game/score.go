package game

import (
	"context"

	"github.com/winterarc/backend/storage"
)

// PointsPerLog is awarded for every logged habit.
const PointsPerLog = 10

// Scorer derives a user's total score from their habit logs. The score is
// recomputed in full on every call rather than maintained incrementally, so
// each call is O(logs); fine at this scale.
type Scorer struct {
	store storage.Storage
}

// NewScorer creates a Scorer over the given storage backend.
func NewScorer(store storage.Storage) *Scorer {
	return &Scorer{store: store}
}

// ComputeScore returns the user's total score: PointsPerLog per habit log.
func (s *Scorer) ComputeScore(ctx context.Context, userID string) (int, error) {
	count, err := s.store.CountHabitLogs(ctx, userID)
	if err != nil {
		return 0, err
	}
	return int(count) * PointsPerLog, nil
}

// UpdateScore recomputes the user's score, derives the winter title from the
// new score and the user's current streak, and persists both. The
// read-then-write is not guarded; concurrent updates are last-write-wins.
// Returns storage.ErrNotFound if the user does not exist.
func (s *Scorer) UpdateScore(ctx context.Context, userID string) (int, string, error) {
	score, err := s.ComputeScore(ctx, userID)
	if err != nil {
		return 0, "", err
	}

	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return 0, "", err
	}

	title := TitleFor(score, user.StreakDays)

	if err := s.store.SetUserScore(ctx, userID, score, title); err != nil {
		return 0, "", err
	}

	return score, title, nil
}
