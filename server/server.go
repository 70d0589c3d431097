package server

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/winterarc/backend/auth"
	"github.com/winterarc/backend/coach"
	"github.com/winterarc/backend/game"
	"github.com/winterarc/backend/storage"
	"github.com/winterarc/backend/storage/cache"
)

// Server wires the storage backend, session handling, gamification and the
// coach into the HTTP surface under /api.
type Server struct {
	store    storage.Storage
	sessions *auth.SessionManager
	identity *auth.IdentityClient
	scorer   *game.Scorer
	streaks  *game.StreakTracker
	coach    coach.ResponseGenerator
	cache    cache.Cache
	router   *mux.Router
}

// New creates a Server over the given collaborators. respCache may be nil,
// in which case leaderboard responses are computed fresh on every request.
func New(store storage.Storage, identity *auth.IdentityClient, generator coach.ResponseGenerator, respCache cache.Cache) *Server {
	s := &Server{
		store:    store,
		sessions: auth.NewSessionManager(store),
		identity: identity,
		scorer:   game.NewScorer(store),
		streaks:  game.NewStreakTracker(store),
		coach:    generator,
		cache:    respCache,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/", s.handleRoot).Methods("GET")

	api.HandleFunc("/auth/session", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/auth/me", s.handleCurrentUser).Methods("GET")
	api.HandleFunc("/auth/logout", s.handleLogout).Methods("POST")

	api.HandleFunc("/users", s.handleCreateUser).Methods("POST")
	api.HandleFunc("/users/{user_id}", s.handleGetUser).Methods("GET")
	api.HandleFunc("/users/{user_id}/score", s.handleUpdateScore).Methods("PUT")

	api.HandleFunc("/users/{user_id}/habits", s.handleCreateHabit).Methods("POST")
	api.HandleFunc("/users/{user_id}/habits", s.handleListHabits).Methods("GET")
	api.HandleFunc("/habits/{habit_id}", s.handleDeleteHabit).Methods("DELETE")

	api.HandleFunc("/users/{user_id}/habit-logs", s.handleLogHabit).Methods("POST")
	api.HandleFunc("/users/{user_id}/habit-logs", s.handleListHabitLogs).Methods("GET")

	api.HandleFunc("/users/{user_id}/chat", s.handleSendChatMessage).Methods("POST")
	api.HandleFunc("/users/{user_id}/chat", s.handleChatHistory).Methods("GET")

	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")

	s.router = r
}

// Handler returns the full middleware-wrapped handler: panic recovery, CORS
// and request logging around the router.
func (s *Server) Handler() http.Handler {
	corsOrigins := handlers.AllowedOrigins([]string{"*"})
	corsMethods := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"})
	corsHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})
	corsCredentials := handlers.AllowCredentials()

	corsRouter := handlers.CORS(corsOrigins, corsMethods, corsHeaders, corsCredentials)(recoveryMiddleware(s.router))

	return handlers.LoggingHandler(os.Stdout, corsRouter)
}

// Start runs the HTTP server on the given address until it fails.
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Handler:      s.Handler(),
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.Printf("listening on %s", addr)
	return server.ListenAndServe()
}

// recoveryMiddleware recovers from panics and provides a generic error
// message to the client.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic recovered: %s\n", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
