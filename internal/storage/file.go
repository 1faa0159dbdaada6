package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"upbot/internal/uptimerobot"
	logx "upbot/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <path>                     (last snapshot, raw API response, atomic replace)
//   - <prefix>.transitions.jsonl (append-only JSON Lines history)
//
// The snapshot is always written whole via tmp+rename so a crash mid-write
// leaves either the previous state or the new one, never a partial file.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	statePath       string
	transitionsPath string
	transitionsFile *os.File
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	trPath := prefix + ".transitions.jsonl"
	tf, err := os.OpenFile(trPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:             log,
		statePath:       path,
		transitionsPath: trPath,
		transitionsFile: tf,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transitionsFile != nil {
		err := s.transitionsFile.Close()
		s.transitionsFile = nil
		return err
	}
	return nil
}

func (s *fileStore) LoadSnapshot(ctx context.Context) uptimerobot.Snapshot {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Debug("no prior state file; starting empty", logx.String("path", s.statePath))
		} else {
			s.log.Warn("prior state unreadable; starting empty", logx.String("path", s.statePath), logx.Err(err))
		}
		return uptimerobot.Snapshot{}
	}
	if len(b) == 0 {
		s.log.Debug("prior state file empty; starting empty", logx.String("path", s.statePath))
		return uptimerobot.Snapshot{}
	}

	snap, dropped, err := uptimerobot.ParseSnapshot(b)
	if err != nil {
		// Corruption discards history; the next cycle re-seeds the baseline.
		s.log.Error("prior state corrupt; starting empty", logx.String("path", s.statePath), logx.Err(err))
		return uptimerobot.Snapshot{}
	}
	if dropped > 0 {
		s.log.Warn("prior state records without id dropped", logx.Int("dropped", dropped))
	}
	return snap
}

func (s *fileStore) SaveSnapshot(ctx context.Context, raw []byte) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.statePath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.statePath)
}

func (s *fileStore) AppendTransitions(ctx context.Context, recs []TransitionRecord) error {
	_ = ctx
	if len(recs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transitionsFile == nil {
		return errors.New("transitions journal closed")
	}
	enc := json.NewEncoder(s.transitionsFile)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *fileStore) RecentTransitions(ctx context.Context, limit int) ([]TransitionRecord, error) {
	_ = ctx
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.transitionsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	// Keep a sliding window of the last <limit> records.
	var out []TransitionRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r TransitionRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		out = append(out, r)
		if len(out) > limit {
			out = out[1:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
