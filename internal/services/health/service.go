package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Service encapsulates health-related checks.
type Service struct {
	db  *sql.DB
	now func() time.Time
}

// Status is the health payload.
type Status struct {
	OK        bool      `json:"ok"`
	Timestamp time.Time `json:"timestamp"`
	// Database is "up", "down", or "memory" when run history is not persisted.
	Database string `json:"database"`
}

// NewService constructs a health service. db may be nil.
func NewService(db *sql.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Status reports liveness and database reachability.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{OK: true, Database: "memory"}
	if s == nil {
		st.Timestamp = time.Now().UTC()
		return st
	}
	st.Timestamp = s.now().UTC()
	if s.db == nil {
		return st
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		st.OK = false
		st.Database = "down"
		return st
	}
	st.Database = "up"
	return st
}
