package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winterarc/backend/auth"
	"github.com/winterarc/backend/coach"
	"github.com/winterarc/backend/models"
	"github.com/winterarc/backend/storage"
)

func newTestServer(identityURL string) (*Server, *storage.MemoryStorage) {
	store := storage.NewMemoryStorage()
	srv := New(store, auth.NewIdentityClient(identityURL), coach.NewStaticPlaceholder(), nil)
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}

func createUser(t *testing.T, srv *Server, email, name string) models.User {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/users", models.UserCreate{Email: email, Name: name})
	require.Equal(t, http.StatusOK, w.Code)
	var user models.User
	decode(t, w, &user)
	return user
}

func createHabit(t *testing.T, srv *Server, userID, name, category string) models.Habit {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/users/"+userID+"/habits", models.HabitCreate{Name: name, Category: category})
	require.Equal(t, http.StatusOK, w.Code)
	var habit models.Habit
	decode(t, w, &habit)
	return habit
}

func TestRoot(t *testing.T) {
	srv, _ := newTestServer("")

	w := doJSON(t, srv, http.MethodGet, "/api/", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.Contains(t, body["message"], "Winter Arc")
}

func TestCreateUserIdempotentByEmail(t *testing.T) {
	srv, _ := newTestServer("")

	first := createUser(t, srv, "ice@example.com", "Ice")
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, models.DefaultWinterTitle, first.WinterTitle)

	second := createUser(t, srv, "ice@example.com", "Someone Else")
	assert.Equal(t, first.ID, second.ID, "same email returns the same user")
	assert.Equal(t, "Ice", second.Name)
}

func TestGetUserNotFound(t *testing.T) {
	srv, _ := newTestServer("")

	w := doJSON(t, srv, http.MethodGet, "/api/users/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateHabitRejectsUnknownCategory(t *testing.T) {
	srv, _ := newTestServer("")
	user := createUser(t, srv, "ice@example.com", "Ice")

	w := doJSON(t, srv, http.MethodPost, "/api/users/"+user.ID+"/habits",
		models.HabitCreate{Name: "Juggling", Category: "circus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteHabit(t *testing.T) {
	srv, _ := newTestServer("")
	user := createUser(t, srv, "ice@example.com", "Ice")
	habit := createHabit(t, srv, user.ID, "Run", models.CategoryFitness)

	w := doJSON(t, srv, http.MethodDelete, "/api/habits/"+habit.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/habits/"+habit.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogHabitMissingHabitWritesNothing(t *testing.T) {
	srv, store := newTestServer("")
	user := createUser(t, srv, "ice@example.com", "Ice")

	w := doJSON(t, srv, http.MethodPost, "/api/users/"+user.ID+"/habit-logs",
		models.HabitLogCreate{HabitID: "no-such-habit", Value: "5"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	count, err := store.CountHabitLogs(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	fetched, err := store.FindUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fetched.StreakDays)
	assert.Equal(t, 0, fetched.TotalScore)
}

func TestLogHabitUpdatesStreakAndScore(t *testing.T) {
	srv, store := newTestServer("")
	user := createUser(t, srv, "ice@example.com", "Ice")
	habit := createHabit(t, srv, user.ID, "Cold shower", models.CategoryDiscipline)

	w := doJSON(t, srv, http.MethodPost, "/api/users/"+user.ID+"/habit-logs",
		models.HabitLogCreate{HabitID: habit.ID, Value: "1", Notes: "brutal"})
	require.Equal(t, http.StatusOK, w.Code)

	var logged models.HabitLog
	decode(t, w, &logged)
	assert.Equal(t, habit.ID, logged.HabitID)
	assert.NotEmpty(t, logged.AIResponse, "coach response is attached to the log")

	fetched, err := store.FindUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched.StreakDays)
	assert.Equal(t, 10, fetched.TotalScore)
	assert.Equal(t, models.DefaultWinterTitle, fetched.WinterTitle)

	w = doJSON(t, srv, http.MethodPost, "/api/users/"+user.ID+"/habit-logs",
		models.HabitLogCreate{HabitID: habit.ID, Value: "1"})
	require.Equal(t, http.StatusOK, w.Code)

	fetched, err = store.FindUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fetched.StreakDays)
	assert.Equal(t, 20, fetched.TotalScore)
}

func TestHabitLogsNewestFirstChatChronological(t *testing.T) {
	srv, _ := newTestServer("")
	user := createUser(t, srv, "ice@example.com", "Ice")
	habit := createHabit(t, srv, user.ID, "Read", models.CategoryDiscipline)

	for _, value := range []string{"first", "second"} {
		w := doJSON(t, srv, http.MethodPost, "/api/users/"+user.ID+"/habit-logs",
			models.HabitLogCreate{HabitID: habit.ID, Value: value})
		require.Equal(t, http.StatusOK, w.Code)
		time.Sleep(2 * time.Millisecond)
	}

	w := doJSON(t, srv, http.MethodGet, "/api/users/"+user.ID+"/habit-logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []models.HabitLog
	decode(t, w, &logs)
	require.Len(t, logs, 2)
	assert.Equal(t, "second", logs[0].Value, "habit logs come back newest first")
	assert.Equal(t, "first", logs[1].Value)

	w = doJSON(t, srv, http.MethodPost, "/api/users/"+user.ID+"/chat",
		models.ChatMessageCreate{Message: "Am I doing well?"})
	require.Equal(t, http.StatusOK, w.Code)
	var reply models.ChatMessage
	decode(t, w, &reply)
	assert.False(t, reply.IsUser)
	assert.NotEmpty(t, reply.Message)

	w = doJSON(t, srv, http.MethodGet, "/api/users/"+user.ID+"/chat", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.ChatMessage
	decode(t, w, &history)
	require.Len(t, history, 2)
	assert.True(t, history[0].IsUser, "chat history is chronological: user message first")
	assert.False(t, history[1].IsUser)
	assert.False(t, history[0].Timestamp.After(history[1].Timestamp))
}

func TestHabitLogLimit(t *testing.T) {
	srv, _ := newTestServer("")
	user := createUser(t, srv, "ice@example.com", "Ice")
	habit := createHabit(t, srv, user.ID, "Push-ups", models.CategoryFitness)

	for i := 0; i < 5; i++ {
		w := doJSON(t, srv, http.MethodPost, "/api/users/"+user.ID+"/habit-logs",
			models.HabitLogCreate{HabitID: habit.ID, Value: fmt.Sprint(i)})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, srv, http.MethodGet, "/api/users/"+user.ID+"/habit-logs?limit=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []models.HabitLog
	decode(t, w, &logs)
	assert.Len(t, logs, 3)
}

func TestLeaderboardRanksAndTies(t *testing.T) {
	srv, store := newTestServer("")

	a := createUser(t, srv, "a@example.com", "A")
	b := createUser(t, srv, "b@example.com", "B")
	c := createUser(t, srv, "c@example.com", "C")

	require.NoError(t, store.SetUserScore(context.Background(), a.ID, 300, "Frost Walker"))
	require.NoError(t, store.SetUserScore(context.Background(), b.ID, 300, "Frost Walker"))
	require.NoError(t, store.SetUserScore(context.Background(), c.ID, 100, "Ice Apprentice"))

	w := doJSON(t, srv, http.MethodGet, "/api/leaderboard", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var board []models.LeaderboardEntry
	decode(t, w, &board)
	require.Len(t, board, 3)

	assert.Equal(t, []int{1, 2, 3}, []int{board[0].Rank, board[1].Rank, board[2].Rank})
	// Ties keep stored order.
	assert.Equal(t, a.ID, board[0].UserID)
	assert.Equal(t, b.ID, board[1].UserID)
	assert.Equal(t, c.ID, board[2].UserID)
}

func TestCurrentUserUnauthenticated(t *testing.T) {
	srv, _ := newTestServer("")

	w := doJSON(t, srv, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"email":"frost@example.com","name":"Frost","session_token":"tok-123"}`))
	}))
	defer identity.Close()

	srv, _ := newTestServer(identity.URL)

	w := doJSON(t, srv, http.MethodPost, "/api/auth/session", models.SessionRequest{SessionID: "one-time"})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "frost@example.com", body["email"])
	assert.Equal(t, "tok-123", body["session_token"])

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, auth.SessionCookieName, cookie.Name)
	assert.Equal(t, "tok-123", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, "/", cookie.Path)

	// Logging in again maps the same email to the same user.
	w = doJSON(t, srv, http.MethodPost, "/api/auth/session", models.SessionRequest{SessionID: "another"})
	require.Equal(t, http.StatusOK, w.Code)
	var again map[string]string
	decode(t, w, &again)
	assert.Equal(t, body["id"], again["id"])

	// The token authenticates /auth/me via cookie.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	assert.Equal(t, body["id"], me.ID)

	// And via bearer header.
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer tok-123")
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Logout invalidates the session and clears the cookie.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionInvalidIdentity(t *testing.T) {
	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown session", http.StatusBadRequest)
	}))
	defer identity.Close()

	srv, _ := newTestServer(identity.URL)

	w := doJSON(t, srv, http.MethodPost, "/api/auth/session", models.SessionRequest{SessionID: "bad"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "Invalid session ID", body["detail"])
}
