package auth

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/winterarc/backend/storage"
)

// SessionReaper periodically deletes expired session rows. Without it the
// session collection grows without bound, since lookups only filter on
// expiry and never purge. Running it is an operator opt-in.
type SessionReaper struct {
	store storage.Storage
	cron  *cron.Cron
}

// NewSessionReaper creates a reaper over the given storage backend.
func NewSessionReaper(store storage.Storage) *SessionReaper {
	return &SessionReaper{
		store: store,
		cron:  cron.New(),
	}
}

// Start schedules the sweep with a cron expression (e.g. "@hourly") and
// begins running it. Returns an error if the expression does not parse.
func (r *SessionReaper) Start(schedule string) error {
	_, err := r.cron.AddFunc(schedule, r.sweep)
	if err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop stops the scheduler. Does not interrupt a sweep already in flight.
func (r *SessionReaper) Stop() {
	r.cron.Stop()
}

func (r *SessionReaper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := r.store.DeleteExpiredSessions(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("session sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("session sweep removed %d expired sessions", deleted)
	}
}
