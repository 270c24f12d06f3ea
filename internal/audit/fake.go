package audit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake is an in-memory Store used by tests throughout the repository. It
// mirrors the Mongo implementation's semantics (Update reports false when no
// matching row exists) without requiring a live MongoDB instance.
type Fake struct {
	mu   sync.Mutex
	rows map[string]*Row
}

// NewFake returns an empty in-memory Store.
func NewFake() *Fake {
	return &Fake{rows: make(map[string]*Row)}
}

// Seed inserts a row directly, as the upstream producer would have done
// before enqueuing the job.
func (f *Fake) Seed(row Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := row
	f.rows[key(row.EventID, row.ClientID)] = &cp
}

func (f *Fake) Update(_ context.Context, eventID string, clientID int64, status Status, fields TransitionFields) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[key(eventID, clientID)]
	if !ok {
		return false, nil
	}
	row.Status = status
	row.UpdatedAt = time.Now().UTC()
	if fields.TotalTime != nil {
		secs := int64(fields.TotalTime.Seconds())
		row.TotalTime = &secs
	}
	if fields.Bucket != "" {
		row.S3Bucket = fields.Bucket
	}
	if fields.URL != "" {
		row.DownloadURL = fields.URL
	}
	return true, nil
}

func (f *Fake) Get(_ context.Context, eventID string, clientID int64) (*Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[key(eventID, clientID)]
	if !ok {
		return nil, fmt.Errorf("audit: no row for %s/%d", eventID, clientID)
	}
	cp := *row
	return &cp, nil
}

func key(eventID string, clientID int64) string {
	return fmt.Sprintf("%s/%d", eventID, clientID)
}
