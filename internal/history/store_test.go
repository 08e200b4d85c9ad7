package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(t *testing.T, s *Store, sess *Session) *Session {
	t.Helper()
	if err := s.Record(context.Background(), sess); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	return sess
}

func TestRecordAssignsID(t *testing.T) {
	s := openTestStore(t)

	sess := record(t, s, &Session{Script: "/sketches/orbit.py", Mode: "windowed"})
	if sess.ID == "" {
		t.Fatal("Record should assign an ID")
	}
	if sess.StartedAt.IsZero() {
		t.Fatal("Record should set StartedAt")
	}
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)

	want := record(t, s, &Session{
		Script:     "/sketches/orbit.py",
		Mode:       "export",
		Export:     "/tmp/orbit.mov",
		Format:     "mov",
		FirstFrame: 1,
		LastFrame:  300,
	})

	got, err := s.Get(context.Background(), want.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Script != want.Script {
		t.Errorf("Script = %q, want %q", got.Script, want.Script)
	}
	if got.Format != "mov" {
		t.Errorf("Format = %q, want mov", got.Format)
	}
	if got.LastFrame != 300 {
		t.Errorf("LastFrame = %d, want 300", got.LastFrame)
	}
	if got.Finished {
		t.Error("session should not be finished yet")
	}
}

func TestGetByPrefix(t *testing.T) {
	s := openTestStore(t)
	want := record(t, s, &Session{Script: "/sketches/orbit.py", Mode: "windowed"})

	got, err := s.Get(context.Background(), want.ID[:8])
	if err != nil {
		t.Fatalf("Get(prefix) error: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("Get(prefix) = %q, want %q", got.ID, want.ID)
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "no-such-session")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() = %v, want ErrNotFound", err)
	}
}

func TestFinish(t *testing.T) {
	s := openTestStore(t)
	sess := record(t, s, &Session{Script: "/sketches/orbit.py", Mode: "windowed"})

	if err := s.Finish(context.Background(), sess.ID, 3, 1500*time.Millisecond); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}

	got, err := s.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !got.Finished {
		t.Error("session should be finished")
	}
	if got.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", got.ExitCode)
	}
	if got.Duration != 1500 {
		t.Errorf("Duration = %d, want 1500", got.Duration)
	}
}

func TestFinishUnknownSession(t *testing.T) {
	s := openTestStore(t)

	err := s.Finish(context.Background(), "no-such-session", 0, time.Second)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish() = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		record(t, s, &Session{
			Script:    "/sketches/orbit.py",
			Mode:      "windowed",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	sessions, err := s.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("List() returned %d sessions, want 3", len(sessions))
	}
	for i := 1; i < len(sessions); i++ {
		if sessions[i].StartedAt.After(sessions[i-1].StartedAt) {
			t.Error("sessions not ordered newest first")
		}
	}
}

func TestListSearchAndPaging(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	record(t, s, &Session{Script: "/sketches/orbit.py", Mode: "windowed"})
	record(t, s, &Session{Script: "/sketches/waves.py", Mode: "windowed"})
	record(t, s, &Session{Script: "/other/orbit-two.py", Mode: "windowed"})

	sessions, err := s.List(ctx, ListOptions{Search: "orbit"})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("search returned %d sessions, want 2", len(sessions))
	}

	n, err := s.Count(ctx, "orbit")
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}

	page, err := s.List(ctx, ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List(page) error: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("second page has %d sessions, want 1", len(page))
	}
}

func TestPruneOlderThan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	record(t, s, &Session{
		Script:    "/sketches/old.py",
		Mode:      "windowed",
		StartedAt: time.Now().UTC().Add(-72 * time.Hour),
	})
	record(t, s, &Session{Script: "/sketches/new.py", Mode: "windowed"})

	n, err := s.PruneOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PruneOlderThan() error: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d sessions, want 1", n)
	}

	remaining, err := s.Count(ctx, "")
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	s.Close()
}
