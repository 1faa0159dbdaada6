package uptimerobot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	logx "upbot/pkg/logx"
)

const (
	DefaultBaseURL = "https://api.uptimerobot.com/v2"
	DefaultTimeout = 15 * time.Second

	// maxResponseBytes bounds how much of a response we read; getMonitors
	// payloads are small, anything bigger is garbage.
	maxResponseBytes = 4 << 20
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client wraps the getMonitors operation. It holds no mutable state and is
// safe for concurrent independent calls; it does not coordinate or
// deduplicate them. It never retries and never touches persisted state.
type Client struct {
	baseURL string
	http    *http.Client
	log     logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// FetchMonitors performs one getMonitors call and returns the parsed snapshot
// together with the raw response body (the store persists the body verbatim).
//
// The credential is taken per call so callers that re-read config each cycle
// always use the freshest key. An empty key fails with FetchUnauthenticated
// before any network I/O.
func (c *Client) FetchMonitors(ctx context.Context, apiKey string) (Snapshot, []byte, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return Snapshot{}, nil, &FetchError{Kind: FetchUnauthenticated, Message: "api key is not configured"}
	}

	form := url.Values{}
	form.Set("api_key", apiKey)
	form.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/getMonitors", strings.NewReader(form.Encode()))
	if err != nil {
		return Snapshot{}, nil, &FetchError{Kind: FetchNetwork, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return Snapshot{}, nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Snapshot{}, nil, classifyTransportError(ctx, err)
	}

	if resp.StatusCode/100 != 2 {
		return Snapshot{}, nil, &FetchError{
			Kind:    FetchNetwork,
			Message: fmt.Sprintf("unexpected http status %d", resp.StatusCode),
		}
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return Snapshot{}, nil, &FetchError{Kind: FetchMalformed, Message: "decode response", Err: err}
	}

	if list.Stat != "ok" {
		return Snapshot{}, nil, &FetchError{Kind: FetchRemoteRejected, Message: list.errorMessage()}
	}

	snap, dropped := snapshotFrom(&list)
	if dropped > 0 {
		c.log.Warn("monitor records without id dropped", logx.Int("dropped", dropped))
	}
	return snap, body, nil
}

func classifyTransportError(ctx context.Context, err error) *FetchError {
	switch {
	case errors.Is(err, context.Canceled):
		return &FetchError{Kind: FetchNetwork, Message: "request canceled", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: FetchTimeout, Message: "request timed out", Err: err}
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &FetchError{Kind: FetchTimeout, Message: "request timed out", Err: err}
	}
	return &FetchError{Kind: FetchNetwork, Message: "transport failure", Err: err}
}
