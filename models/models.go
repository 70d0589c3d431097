package models

import (
	"time"
)

// Habit categories form a closed enumeration.
const (
	CategoryFitness    = "fitness"
	CategoryDiet       = "diet"
	CategoryDiscipline = "discipline"
	CategorySleep      = "sleep"
)

// ValidCategory reports whether the given category is one of the known habit categories.
func ValidCategory(category string) bool {
	switch category {
	case CategoryFitness, CategoryDiet, CategoryDiscipline, CategorySleep:
		return true
	}
	return false
}

// DefaultWinterTitle is the title every user starts with.
const DefaultWinterTitle = "Frozen Recruit"

type User struct {
	ID            string    `bson:"id" json:"id"`
	Email         string    `bson:"email" json:"email"`
	Name          string    `bson:"name" json:"name"`
	Picture       string    `bson:"picture,omitempty" json:"picture,omitempty"`
	WinterTitle   string    `bson:"winter_title" json:"winter_title"`
	TotalScore    int       `bson:"total_score" json:"total_score"`
	StreakDays    int       `bson:"streak_days" json:"streak_days"`
	LongestStreak int       `bson:"longest_streak" json:"longest_streak"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	LastActive    time.Time `bson:"last_active" json:"last_active"`
}

type UserCreate struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// Session maps an opaque session token to a user until it expires.
// Expired sessions are inert rather than deleted; every lookup re-checks expiry.
type Session struct {
	ID           string    `bson:"id" json:"id"`
	SessionToken string    `bson:"session_token" json:"session_token"`
	UserID       string    `bson:"user_id" json:"user_id"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

type Habit struct {
	ID          string    `bson:"id" json:"id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	Name        string    `bson:"name" json:"name"`
	Category    string    `bson:"category" json:"category"`
	TargetValue string    `bson:"target_value,omitempty" json:"target_value,omitempty"`
	Unit        string    `bson:"unit,omitempty" json:"unit,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

type HabitCreate struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	TargetValue string `json:"target_value,omitempty"`
	Unit        string `json:"unit,omitempty"`
}

// HabitLog is a single recorded instance of performing a habit.
// Logs are immutable once written and are never deleted, even when the
// habit they reference is removed.
type HabitLog struct {
	ID         string    `bson:"id" json:"id"`
	UserID     string    `bson:"user_id" json:"user_id"`
	HabitID    string    `bson:"habit_id" json:"habit_id"`
	Value      string    `bson:"value" json:"value"`
	Notes      string    `bson:"notes,omitempty" json:"notes,omitempty"`
	LoggedAt   time.Time `bson:"logged_at" json:"logged_at"`
	AIResponse string    `bson:"ai_response,omitempty" json:"ai_response,omitempty"`
}

type HabitLogCreate struct {
	HabitID string `json:"habit_id"`
	Value   string `json:"value"`
	Notes   string `json:"notes,omitempty"`
}

type ChatMessage struct {
	ID        string    `bson:"id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Message   string    `bson:"message" json:"message"`
	IsUser    bool      `bson:"is_user" json:"is_user"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type ChatMessageCreate struct {
	Message string `json:"message"`
}

type LeaderboardEntry struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Picture     string `json:"picture,omitempty"`
	TotalScore  int    `json:"total_score"`
	StreakDays  int    `json:"streak_days"`
	WinterTitle string `json:"winter_title"`
	Rank        int    `json:"rank"`
}

// SessionRequest carries the one-time session id issued by the external
// identity provider.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}
