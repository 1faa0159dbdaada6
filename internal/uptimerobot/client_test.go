package uptimerobot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "upbot/pkg/logx"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, logx.Nop())
}

func TestFetchMonitorsOK(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/getMonitors" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("api_key") != "secret" || r.PostForm.Get("format") != "json" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"stat":"ok","pagination":{"limit":50,"total":1},"monitors":[{"id":1,"friendly_name":"Web","status":2}]}`))
	})

	snap, raw, err := c.FetchMonitors(context.Background(), "secret")
	if err != nil {
		t.Fatalf("FetchMonitors: %v", err)
	}
	if snap.Len() != 1 || snap.Monitors[0].Name != "Web" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if len(raw) == 0 {
		t.Fatal("raw body must be returned for persistence")
	}
}

func TestFetchMonitorsEmptyKey(t *testing.T) {
	t.Parallel()
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, _, err := c.FetchMonitors(context.Background(), "  ")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != FetchUnauthenticated {
		t.Fatalf("expected FetchUnauthenticated, got %v", err)
	}
	if called {
		t.Fatal("empty key must fail before any network I/O")
	}
	if !IsConfigError(err) {
		t.Fatal("empty key should be a config error")
	}
}

func TestFetchMonitorsRemoteRejected(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"stat":"fail","error":{"type":"invalid_parameter","message":"api_key is wrong"}}`))
	})

	_, _, err := c.FetchMonitors(context.Background(), "bad")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != FetchRemoteRejected {
		t.Fatalf("expected FetchRemoteRejected, got %v", err)
	}
	if fe.Message != "api_key is wrong" {
		t.Fatalf("message = %q", fe.Message)
	}
}

func TestFetchMonitorsMalformedBody(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	})

	_, _, err := c.FetchMonitors(context.Background(), "k")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != FetchMalformed {
		t.Fatalf("expected FetchMalformed, got %v", err)
	}
}

func TestFetchMonitorsHTTPError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, _, err := c.FetchMonitors(context.Background(), "k")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != FetchNetwork {
		t.Fatalf("expected FetchNetwork, got %v", err)
	}
}

func TestFetchMonitorsTimeout(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := c.FetchMonitors(ctx, "k")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != FetchTimeout {
		t.Fatalf("expected FetchTimeout, got %v", err)
	}
}
