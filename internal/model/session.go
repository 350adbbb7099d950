package model

import (
	"database/sql"
	"time"
)

// Session represents a legislative session (löggjafarþing)
type Session struct {
	ID        int64
	Number    int
	StartDate sql.NullTime
	EndDate   sql.NullTime
	IsActive  bool
	UpdatedAt time.Time
}

// SessionMeta represents a session entry from the sessions feed
type SessionMeta struct {
	Number    int
	StartDate *time.Time
	EndDate   *time.Time
}
