// Package httpapi exposes a small local HTTP surface for health checks
// and status inspection. It carries no authentication and is meant to be
// bound to localhost.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"upbot/internal/poller"
	"upbot/internal/report"
	"upbot/internal/storage"
	"upbot/internal/uptimerobot"
	logx "upbot/pkg/logx"
)

const defaultAddr = "127.0.0.1:8477"

type Server struct {
	srv    *http.Server
	store  storage.Store
	poller *poller.Poller
	log    logx.Logger
}

func New(addr string, store storage.Store, p *poller.Poller, log logx.Logger) *Server {
	if addr == "" {
		addr = defaultAddr
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{store: store, poller: p, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/transitions", s.handleTransitions)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down with a short grace
// period.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		err := s.srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errc <- err
	}()
	s.log.Info("http listener started", logx.String("addr", s.srv.Addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(sctx)
		return nil
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	st := s.poller.Status()
	code := http.StatusOK
	if st.LastError != "" && st.LastSuccess.IsZero() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, st)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.store.LoadSnapshot(r.Context())
	type monitorView struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	out := struct {
		Monitors []monitorView `json:"monitors"`
		Total    int           `json:"total"`
		Text     string        `json:"text"`
	}{
		Monitors: make([]monitorView, 0, snap.Len()),
		Total:    snap.Total,
		Text:     report.StatusReport(snap),
	}
	for _, m := range snap.Monitors {
		label := "unknown"
		if m.Status != nil {
			label = uptimerobot.StatusLabel(*m.Status)
		}
		out.Monitors = append(out.Monitors, monitorView{ID: m.ID, Name: m.Name, Status: label})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTransitions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	recs, err := s.store.RecentTransitions(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if recs == nil {
		recs = []storage.TransitionRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
