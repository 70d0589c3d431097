package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/winterarc/backend/auth"
	"github.com/winterarc/backend/coach"
	"github.com/winterarc/backend/models"
	"github.com/winterarc/backend/storage"
	"github.com/winterarc/backend/storage/cache"
)

const (
	defaultLogLimit         = 50
	defaultChatLimit        = 50
	defaultLeaderboardLimit = 100

	leaderboardCacheTTL = 30 * time.Second
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func limitParam(r *http.Request, fallback int64) int64 {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Winter Arc API - Where discipline is forged in ice",
	})
}

// handleCreateSession exchanges an identity-provider session id for an app
// session: verify the id, find or create the user by email, supersede any
// prior sessions, and hand the token back both as a cookie and in the body.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	data, err := s.identity.FetchSessionData(r.Context(), req.SessionID)
	if err != nil {
		log.Printf("session processing error: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	user, err := s.store.FindUserByEmail(r.Context(), data.Email)
	if errors.Is(err, storage.ErrNotFound) {
		user = newUser(data.Email, data.Name, data.Picture)
		err = s.store.AddUser(r.Context(), user)
	}
	if err != nil {
		log.Printf("session processing error: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	session, err := s.sessions.Create(r.Context(), user.ID, data.SessionToken)
	if err != nil {
		log.Printf("session processing error: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    data.SessionToken,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"id":            user.ID,
		"email":         data.Email,
		"name":          data.Name,
		"picture":       data.Picture,
		"session_token": data.SessionToken,
	})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, err := s.sessions.Resolve(r.Context(), auth.TokenFromRequest(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := s.store.FindUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		if err := s.sessions.Invalidate(r.Context(), cookie.Value); err != nil {
			log.Printf("logout error: %v", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:   auth.SessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// handleCreateUser is idempotent by email: creating a user whose email
// already exists returns the existing user.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	existing, err := s.store.FindUserByEmail(r.Context(), req.Email)
	if err == nil {
		writeJSON(w, http.StatusOK, existing)
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := newUser(req.Email, req.Name, req.Picture)
	if err := s.store.AddUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func newUser(email, name, picture string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:          uuid.NewString(),
		Email:       email,
		Name:        name,
		Picture:     picture,
		WinterTitle: models.DefaultWinterTitle,
		CreatedAt:   now,
		LastActive:  now,
	}
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.FindUserByID(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateScore(w http.ResponseWriter, r *http.Request) {
	score, title, err := s.scorer.UpdateScore(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"score": score,
		"title": title,
	})
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var req models.HabitCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !models.ValidCategory(req.Category) {
		writeError(w, http.StatusBadRequest, "Invalid habit category")
		return
	}

	habit := &models.Habit{
		ID:          uuid.NewString(),
		UserID:      mux.Vars(r)["user_id"],
		Name:        req.Name,
		Category:    req.Category,
		TargetValue: req.TargetValue,
		Unit:        req.Unit,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.AddHabit(r.Context(), habit); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, habit)
}

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := s.store.ListHabits(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteHabit(r.Context(), mux.Vars(r)["habit_id"])
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Habit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Habit deleted"})
}

// handleLogHabit persists a habit log, then updates the streak and score as
// side effects. The three writes are not transactional: a failed derived
// update leaves the log persisted and the counters stale.
func (s *Server) handleLogHabit(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	var req models.HabitLogCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	habit, err := s.store.FindHabitByID(r.Context(), req.HabitID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Habit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	habitLog := &models.HabitLog{
		ID:       uuid.NewString(),
		UserID:   userID,
		HabitID:  req.HabitID,
		Value:    req.Value,
		Notes:    req.Notes,
		LoggedAt: time.Now().UTC(),
	}

	coachContext := fmt.Sprintf("User logged habit '%s' with value '%s'. Category: %s.", habit.Name, req.Value, habit.Category)
	coachMessage := fmt.Sprintf("I just logged %s: %s", habit.Name, req.Value)
	if req.Notes != "" {
		coachMessage += fmt.Sprintf(". Notes: %s", req.Notes)
	}
	habitLog.AIResponse = s.coachReply(r, userID, coachMessage, coachContext)

	if err := s.store.AddHabitLog(r.Context(), habitLog); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := s.streaks.UpdateStreak(r.Context(), userID); err != nil {
		log.Printf("streak update error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if _, _, err := s.scorer.UpdateScore(r.Context(), userID); err != nil {
		// The log is already persisted at this point; a failed derived
		// update leaves the counters stale.
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("score update error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, habitLog)
}

func (s *Server) coachReply(r *http.Request, userID, message, context string) string {
	reply, err := s.coach.Respond(r.Context(), userID, message, context)
	if err != nil {
		log.Printf("coach response error: %v", err)
		return coach.FallbackResponse
	}
	return reply
}

func (s *Server) handleListHabitLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.ListHabitLogs(r.Context(), mux.Vars(r)["user_id"], limitParam(r, defaultLogLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	// Newest first, as stored.
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleSendChatMessage(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	var req models.ChatMessageCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userMessage := &models.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   req.Message,
		IsUser:    true,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AddChatMessage(r.Context(), userMessage); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	coachContext := s.chatContext(r, userID)
	replyText := s.coachReply(r, userID, req.Message, coachContext)

	reply := &models.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   replyText,
		IsUser:    false,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AddChatMessage(r.Context(), reply); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) chatContext(r *http.Request, userID string) string {
	user, err := s.store.FindUserByID(r.Context(), userID)
	if err != nil {
		return ""
	}

	context := fmt.Sprintf("User stats - Score: %d, Streak: %d days, Title: %s",
		user.TotalScore, user.StreakDays, user.WinterTitle)

	recent, err := s.store.ListHabitLogs(r.Context(), userID, 5)
	if err == nil && len(recent) > 0 {
		context += fmt.Sprintf(". Recent activity: %d habits logged recently.", len(recent))
	}
	return context
}

// handleChatHistory reads newest-first from the store and reverses, so chat
// comes back chronological. Habit logs stay newest-first; the asymmetry is
// deliberate.
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	messages, err := s.store.ListChatMessages(r.Context(), mux.Vars(r)["user_id"], limitParam(r, defaultChatLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r, defaultLeaderboardLimit)
	cacheKey := fmt.Sprintf("leaderboard:%d", limit)

	if s.cache != nil {
		if cached, err := s.cache.Get(r.Context(), cacheKey); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("leaderboard cache read error: %v", err)
		}
	}

	users, err := s.store.ListUsersByScore(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	leaderboard := make([]models.LeaderboardEntry, 0, len(users))
	for i, user := range users {
		leaderboard = append(leaderboard, models.LeaderboardEntry{
			UserID:      user.ID,
			Name:        user.Name,
			Picture:     user.Picture,
			TotalScore:  user.TotalScore,
			StreakDays:  user.StreakDays,
			WinterTitle: user.WinterTitle,
			Rank:        i + 1,
		})
	}

	if s.cache != nil {
		if body, err := json.Marshal(leaderboard); err == nil {
			if err := s.cache.Set(r.Context(), cacheKey, body, leaderboardCacheTTL); err != nil {
				log.Printf("leaderboard cache write error: %v", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, leaderboard)
}
