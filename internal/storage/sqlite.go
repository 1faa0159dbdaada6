package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"upbot/internal/uptimerobot"
	logx "upbot/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS state (
	key        TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS transitions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	at         TEXT NOT NULL,
	monitor_id INTEGER NOT NULL,
	name       TEXT NOT NULL,
	old_status INTEGER NOT NULL,
	new_status INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_at ON transitions(at);
`

const snapshotKey = "current"

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadSnapshot(ctx context.Context) uptimerobot.Snapshot {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE key = ?`, snapshotKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Debug("no prior state row; starting empty")
		return uptimerobot.Snapshot{}
	}
	if err != nil {
		s.log.Warn("prior state unreadable; starting empty", logx.Err(err))
		return uptimerobot.Snapshot{}
	}
	if len(payload) == 0 {
		return uptimerobot.Snapshot{}
	}

	snap, dropped, err := uptimerobot.ParseSnapshot(payload)
	if err != nil {
		s.log.Error("prior state corrupt; starting empty", logx.Err(err))
		return uptimerobot.Snapshot{}
	}
	if dropped > 0 {
		s.log.Warn("prior state records without id dropped", logx.Int("dropped", dropped))
	}
	return snap
}

func (s *sqliteStore) SaveSnapshot(ctx context.Context, raw []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state(key, payload, updated_at) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		snapshotKey, raw, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) AppendTransitions(ctx context.Context, recs []TransitionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, r := range recs {
		at := r.At
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transitions(at, monitor_id, name, old_status, new_status) VALUES(?,?,?,?,?)`,
			at.UTC().Format(time.RFC3339Nano), r.MonitorID, r.Name, r.OldStatus, r.NewStatus,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) RecentTransitions(ctx context.Context, limit int) ([]TransitionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, monitor_id, name, old_status, new_status FROM transitions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransitionRecord
	for rows.Next() {
		var (
			r  TransitionRecord
			at string
		)
		if err := rows.Scan(&at, &r.MonitorID, &r.Name, &r.OldStatus, &r.NewStatus); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
			r.At = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
