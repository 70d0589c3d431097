package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/winterarc/backend/models"
)

// MemoryStorage is an in-memory Storage used in tests and for local
// development without a MongoDB instance. A single mutex guards all
// collections; documents are stored in insertion order.
type MemoryStorage struct {
	mu           sync.Mutex
	users        []models.User
	sessions     []models.Session
	habits       []models.Habit
	habitLogs    []models.HabitLog
	chatMessages []models.ChatMessage
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Disconnect() error { return nil }

func (m *MemoryStorage) AddUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, *user)
	return nil
}

func (m *MemoryStorage) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].Email == email {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) SetUserScore(ctx context.Context, id string, score int, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].TotalScore = score
			m.users[i].WinterTitle = title
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStorage) SetUserStreak(ctx context.Context, id string, streakDays, longestStreak int, lastActive time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].StreakDays = streakDays
			m.users[i].LongestStreak = longestStreak
			m.users[i].LastActive = lastActive
			return nil
		}
	}
	return ErrNotFound
}

// ListUsersByScore sorts stably, so users with equal scores come back in
// insertion order.
func (m *MemoryStorage) ListUsersByScore(ctx context.Context, limit int64) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]models.User, len(m.users))
	copy(users, m.users)
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].TotalScore > users[j].TotalScore
	})
	if int64(len(users)) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (m *MemoryStorage) AddHabit(ctx context.Context, habit *models.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.habits = append(m.habits, *habit)
	return nil
}

func (m *MemoryStorage) FindHabitByID(ctx context.Context, id string) (*models.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.habits {
		if m.habits[i].ID == id {
			h := m.habits[i]
			return &h, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	habits := []models.Habit{}
	for i := range m.habits {
		if m.habits[i].UserID == userID {
			habits = append(habits, m.habits[i])
		}
	}
	return habits, nil
}

func (m *MemoryStorage) DeleteHabit(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.habits {
		if m.habits[i].ID == id {
			m.habits = append(m.habits[:i], m.habits[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStorage) AddHabitLog(ctx context.Context, log *models.HabitLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.habitLogs = append(m.habitLogs, *log)
	return nil
}

func (m *MemoryStorage) ListHabitLogs(ctx context.Context, userID string, limit int64) ([]models.HabitLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	logs := []models.HabitLog{}
	for i := range m.habitLogs {
		if m.habitLogs[i].UserID == userID {
			logs = append(logs, m.habitLogs[i])
		}
	}
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].LoggedAt.After(logs[j].LoggedAt)
	})
	if int64(len(logs)) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (m *MemoryStorage) CountHabitLogs(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for i := range m.habitLogs {
		if m.habitLogs[i].UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStorage) CountHabitLogsSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for i := range m.habitLogs {
		if m.habitLogs[i].UserID == userID && !m.habitLogs[i].LoggedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStorage) AddChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatMessages = append(m.chatMessages, *msg)
	return nil
}

func (m *MemoryStorage) ListChatMessages(ctx context.Context, userID string, limit int64) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	messages := []models.ChatMessage{}
	for i := range m.chatMessages {
		if m.chatMessages[i].UserID == userID {
			messages = append(messages, m.chatMessages[i])
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})
	if int64(len(messages)) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (m *MemoryStorage) AddSession(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, *session)
	return nil
}

func (m *MemoryStorage) FindSessionByToken(ctx context.Context, token string, now time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].SessionToken == token && m.sessions[i].ExpiresAt.After(now) {
			s := m.sessions[i]
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) DeleteSessionsByUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.sessions[:0]
	for i := range m.sessions {
		if m.sessions[i].UserID != userID {
			kept = append(kept, m.sessions[i])
		}
	}
	m.sessions = kept
	return nil
}

func (m *MemoryStorage) DeleteSessionByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].SessionToken == token {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryStorage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	kept := m.sessions[:0]
	for i := range m.sessions {
		if m.sessions[i].ExpiresAt.After(now) {
			kept = append(kept, m.sessions[i])
		} else {
			deleted++
		}
	}
	m.sessions = kept
	return deleted, nil
}
