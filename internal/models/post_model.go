package models

import (
	"database/sql"
	"time"
)

type Post struct {
	ID            int64        `db:"id" json:"id"`
	UserID        int64        `db:"user_id" json:"user_id"`
	Platform      string       `db:"platform" json:"platform"`
	Content       string       `db:"content" json:"content"`
	Title         string       `db:"title" json:"title"`
	MediaURL      string       `db:"media_url" json:"media_url"`
	ScheduledTime sql.NullTime `db:"scheduled_time" json:"scheduled_time"`
	Status        string       `db:"status" json:"status"`
	RemoteID      string       `db:"remote_id" json:"remote_id,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusScheduled = "scheduled"
	PostStatusPosted    = "posted"
	PostStatusFailed    = "failed"
)
