package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "upbot/pkg/logx"
)

const sampleBody = `{"stat":"ok","pagination":{"offset":0,"limit":50,"total":2},"monitors":[{"id":1,"friendly_name":"Web","status":2},{"id":2,"friendly_name":"API","status":9}]}`

func openFileStore(t *testing.T) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, path
}

func TestFileSnapshotRoundTrip(t *testing.T) {
	t.Parallel()
	st, path := openFileStore(t)
	ctx := context.Background()

	if err := st.SaveSnapshot(ctx, []byte(sampleBody)); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	// Raw body is persisted verbatim.
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	if string(got) != sampleBody {
		t.Fatalf("state file differs from raw body:\n%s", got)
	}

	snap := st.LoadSnapshot(ctx)
	if snap.Len() != 2 {
		t.Fatalf("monitors = %d, want 2", snap.Len())
	}
	if snap.Monitors[0].Name != "Web" || *snap.Monitors[0].Status != 2 {
		t.Fatalf("unexpected monitor: %+v", snap.Monitors[0])
	}
	if snap.Total != 2 || snap.Limit != 50 {
		t.Fatalf("pagination = total %d limit %d", snap.Total, snap.Limit)
	}
}

func TestFileLoadSnapshotDegradesToEmpty(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		prepare func(t *testing.T, path string)
	}{
		{name: "missing", prepare: func(t *testing.T, path string) {}},
		{name: "empty", prepare: func(t *testing.T, path string) {
			if err := os.WriteFile(path, nil, 0o600); err != nil {
				t.Fatal(err)
			}
		}},
		{name: "corrupt", prepare: func(t *testing.T, path string) {
			if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
				t.Fatal(err)
			}
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st, path := openFileStore(t)
			tt.prepare(t, path)
			snap := st.LoadSnapshot(context.Background())
			if snap.Len() != 0 {
				t.Fatalf("expected empty snapshot, got %d monitors", snap.Len())
			}
		})
	}
}

func TestFileSaveReplacesAtomically(t *testing.T) {
	t.Parallel()
	st, path := openFileStore(t)
	ctx := context.Background()

	if err := st.SaveSnapshot(ctx, []byte(sampleBody)); err != nil {
		t.Fatalf("first save: %v", err)
	}
	next := `{"stat":"ok","monitors":[{"id":1,"friendly_name":"Web","status":9}]}`
	if err := st.SaveSnapshot(ctx, []byte(next)); err != nil {
		t.Fatalf("second save: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("tmp file left behind after rename")
	}
	got, _ := os.ReadFile(path)
	if string(got) != next {
		t.Fatalf("state file not replaced:\n%s", got)
	}
}

func TestFileTransitionsJournal(t *testing.T) {
	t.Parallel()
	st, _ := openFileStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var recs []TransitionRecord
	for i := 0; i < 5; i++ {
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

	got, err := st.RecentTransitions(ctx, 3)
	if err != nil {
		t.Fatalf("RecentTransitions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// newest first
	if got[0].MonitorID != 5 || got[2].MonitorID != 3 {
		t.Fatalf("unexpected order: %v %v %v", got[0].MonitorID, got[1].MonitorID, got[2].MonitorID)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "bolt", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
