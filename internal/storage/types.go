package storage

import (
	"context"
	"time"

	"upbot/internal/uptimerobot"
)

// Config configures the snapshot store.
//
// Driver values:
//   - "file" (default when empty): JSON state file + transitions journal
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// TransitionRecord is one persisted status change.
type TransitionRecord struct {
	At        time.Time `json:"at"`
	MonitorID int64     `json:"monitor_id"`
	Name      string    `json:"name"`
	OldStatus int       `json:"old_status"`
	NewStatus int       `json:"new_status"`
}

// Store persists the last observed snapshot plus a transition history.
//
// The store is accessed strictly sequentially by the poller's cycle; it needs
// no cross-process locking. The on-demand read paths (HTTP API) only read.
//
// LoadSnapshot never fails: missing, empty, or corrupt prior state degrades
// to an empty snapshot (logged inside the store) so the poller can always
// proceed with "no prior state".
type Store interface {
	LoadSnapshot(ctx context.Context) uptimerobot.Snapshot
	SaveSnapshot(ctx context.Context, raw []byte) error
	AppendTransitions(ctx context.Context, recs []TransitionRecord) error
	RecentTransitions(ctx context.Context, limit int) ([]TransitionRecord, error)
	Close() error
}
