package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "upbot/pkg/logx"
)

func openSQLiteStore(t *testing.T) Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteSnapshotRoundTrip(t *testing.T) {
	t.Parallel()
	st := openSQLiteStore(t)
	ctx := context.Background()

	if snap := st.LoadSnapshot(ctx); snap.Len() != 0 {
		t.Fatalf("fresh store should be empty, got %d monitors", snap.Len())
	}

	if err := st.SaveSnapshot(ctx, []byte(sampleBody)); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	snap := st.LoadSnapshot(ctx)
	if snap.Len() != 2 {
		t.Fatalf("monitors = %d, want 2", snap.Len())
	}

	// Upsert: a second save replaces the stored payload.
	next := `{"stat":"ok","monitors":[{"id":9,"friendly_name":"Solo","status":2}]}`
	if err := st.SaveSnapshot(ctx, []byte(next)); err != nil {
		t.Fatalf("second save: %v", err)
	}
	snap = st.LoadSnapshot(ctx)
	if snap.Len() != 1 || snap.Monitors[0].ID != 9 {
		t.Fatalf("unexpected snapshot after upsert: %+v", snap)
	}
}

func TestSQLiteLoadCorruptPayload(t *testing.T) {
	t.Parallel()
	st := openSQLiteStore(t)
	ctx := context.Background()

	if err := st.SaveSnapshot(ctx, []byte("{broken")); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if snap := st.LoadSnapshot(ctx); snap.Len() != 0 {
		t.Fatalf("corrupt payload should load as empty, got %d monitors", snap.Len())
	}
}

func TestSQLiteTransitions(t *testing.T) {
	t.Parallel()
	st := openSQLiteStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	var recs []TransitionRecord
	for i := 0; i < 4; i++ {
		recs = append(recs, TransitionRecord{
			At:        base.Add(time.Duration(i) * time.Minute),
			MonitorID: int64(i + 1),
			Name:      "m",
			OldStatus: 2,
			NewStatus: 9,
		})
	}
	if err := st.AppendTransitions(ctx, recs); err != nil {
		t.Fatalf("AppendTransitions: %v", err)
	}

	got, err := st.RecentTransitions(ctx, 2)
	if err != nil {
		t.Fatalf("RecentTransitions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].MonitorID != 4 || got[1].MonitorID != 3 {
		t.Fatalf("unexpected order: %v %v", got[0].MonitorID, got[1].MonitorID)
	}
	if !got[0].At.Equal(base.Add(3 * time.Minute)) {
		t.Fatalf("timestamp not preserved: %v", got[0].At)
	}
}
