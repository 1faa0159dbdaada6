package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"upbot/internal/config"
	"upbot/internal/poller"
	"upbot/internal/storage"
	"upbot/internal/uptimerobot"
	logx "upbot/pkg/logx"
)

type stubStore struct {
	raw  []byte
	recs []storage.TransitionRecord
}

func (s *stubStore) LoadSnapshot(ctx context.Context) uptimerobot.Snapshot {
	snap, _, err := uptimerobot.ParseSnapshot(s.raw)
	if err != nil {
		return uptimerobot.Snapshot{}
	}
	return snap
}

func (s *stubStore) SaveSnapshot(ctx context.Context, raw []byte) error { return nil }
func (s *stubStore) AppendTransitions(ctx context.Context, recs []storage.TransitionRecord) error {
	return nil
}

func (s *stubStore) RecentTransitions(ctx context.Context, limit int) ([]storage.TransitionRecord, error) {
	if limit < len(s.recs) {
		return s.recs[:limit], nil
	}
	return s.recs, nil
}

func (s *stubStore) Close() error { return nil }

type noopClient struct{}

func (noopClient) FetchMonitors(ctx context.Context, apiKey string) (uptimerobot.Snapshot, []byte, error) {
	return uptimerobot.Snapshot{}, nil, nil
}

func newTestServer(t *testing.T, st storage.Store) *Server {
	t.Helper()
	m := config.NewManager("")
	m.Commit(&config.Config{})
	p := poller.New(m, noopClient{}, st, nil, logx.Nop())
	return New("", st, p, logx.Nop())
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &stubStore{})
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()
	st := &stubStore{raw: []byte(`{"stat":"ok","pagination":{"limit":50,"total":1},"monitors":[{"id":1,"friendly_name":"Web","status":2}]}`)}
	s := newTestServer(t, st)

	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got struct {
		Monitors []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"monitors"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Monitors) != 1 || got.Monitors[0].Status != "up" {
		t.Fatalf("unexpected body: %+v", got)
	}
	if !strings.Contains(got.Text, "- Web: up") {
		t.Fatalf("text report missing monitor line: %q", got.Text)
	}
}

func TestTransitionsEndpointLimit(t *testing.T) {
	t.Parallel()
	st := &stubStore{}
	for i := 0; i < 5; i++ {
		st.recs = append(st.recs, storage.TransitionRecord{
			At: time.Now(), MonitorID: int64(i), Name: "m", OldStatus: 2, NewStatus: 9,
		})
	}
	s := newTestServer(t, st)

	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transitions?limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []storage.TransitionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestTransitionsEndpointEmptyIsArray(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &stubStore{})
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transitions", nil))
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("body = %q, want []", body)
	}
}
