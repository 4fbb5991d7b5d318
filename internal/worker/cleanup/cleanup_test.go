package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// mockStore はExpiredSessionDeleterのモック。
type mockStore struct {
	calls   atomic.Int64
	gotNow  time.Time
	deleted int64
	err     error
}

func (m *mockStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.calls.Add(1)
	m.gotNow = now
	return m.deleted, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestCleanupJob_Run_DeletesWithCurrentTime(t *testing.T) {
	var buf bytes.Buffer
	store := &mockStore{deleted: 3}
	job := NewCleanupJob(store, newTestLogger(&buf))
	fixed := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !store.gotNow.Equal(fixed) {
		t.Errorf("now = %v, want %v", store.gotNow, fixed)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log is not JSON: %v", err)
	}
	if entry["deleted_count"] != float64(3) {
		t.Errorf("deleted_count = %v, want 3", entry["deleted_count"])
	}
}

func TestCleanupJob_Run_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	store := &mockStore{err: errors.New("connection refused")}
	job := NewCleanupJob(store, newTestLogger(&buf))

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("Run should return error")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error should wrap cause: %v", err)
	}
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Error("failure should be logged at ERROR level")
	}
}

func TestCleanupJob_Start_RunsImmediatelyAndStops(t *testing.T) {
	var buf bytes.Buffer
	store := &mockStore{}
	job := NewCleanupJob(store, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("job did not run on start")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	if n := store.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}
