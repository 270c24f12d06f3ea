// Package audit implements the export job's state machine persistence (C3).
// Audit rows are created by an upstream producer outside this service; this
// package only ever transitions an existing row through
// PENDING|QUEUED -> PROCESSING -> SUCCESS|FAILED and records timing and
// artifact pointers at the terminal state.
package audit

import (
	"context"
	"time"
)

// Status is the audit row's state-machine variable. The core never writes
// Pending or Queued — those are owned by the upstream producer. There is no
// Completed value: an earlier revision of the source referenced one, but no
// status enum ever defined it, so Success is the only success terminal.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
)

// Row is the document stored in the report_audit_log collection, keyed by
// (EventID, ClientID).
type Row struct {
	EventID      string    `bson:"event_id"`
	ClientID     int64     `bson:"client_id"`
	ProductID    int64     `bson:"product_id"`
	UserID       int64     `bson:"user_id"`
	Status       Status    `bson:"status"`
	Mode         string    `bson:"mode"`
	Module       string    `bson:"module"`
	Type         string    `bson:"type"`
	SubType      string    `bson:"sub_type"`
	TotalTime    *int64    `bson:"total_time,omitempty"`
	S3Bucket     string    `bson:"s3_bucket,omitempty"`
	DownloadURL  string    `bson:"download_url,omitempty"`
	Active       bool      `bson:"active"`
	Deleted      bool      `bson:"deleted"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

// Terminal reports whether totalTime/bucket/url fields accompany this
// transition — true for Success and Failed, false otherwise.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// TransitionFields carries the optional fields an Update call may set
// alongside the new status. Only TotalTime, Bucket and URL are ever written
// by this package — never Status values outside Processing/Success/Failed.
type TransitionFields struct {
	TotalTime *time.Duration
	Bucket    string
	URL       string
}

// Store is the Audit Store contract (C3). Update performs an atomic update
// of the matching row's mutable fields plus updated_at, and reports whether
// exactly one row was modified.
type Store interface {
	Update(ctx context.Context, eventID string, clientID int64, status Status, fields TransitionFields) (modified bool, err error)
	Get(ctx context.Context, eventID string, clientID int64) (*Row, error)
}
