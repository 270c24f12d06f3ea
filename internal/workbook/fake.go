package workbook

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Fake is an in-memory Adapter used by reportbuilder tests. It does not
// model multipart behavior; it only needs to make the download-mutate-
// upload cycle observable.
type Fake struct {
	mu      sync.Mutex
	objects map[string][]byte
	PutErr  error
	GetErr  error
}

// NewFake returns an empty in-memory Adapter.
func NewFake() *Fake {
	return &Fake{objects: make(map[string][]byte)}
}

func (f *Fake) Put(_ context.Context, key string, body io.Reader, _ string) error {
	if f.PutErr != nil {
		return f.PutErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *Fake) Get(_ context.Context, key string) ([]byte, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("workbook: no object at %s", key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (f *Fake) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://fake-storage.local/%s?ttl=%s", key, ttl), nil
}

func (f *Fake) ComputeKey(eventID string, clientID int64, module, reportType, subType string) string {
	return fmt.Sprintf("exports/%d/%s/%s/%s/%s.xlsx", clientID, module, reportType, subType, eventID)
}
