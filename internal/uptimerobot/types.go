// Package uptimerobot implements a minimal client for the UptimeRobot v2 API
// (the getMonitors operation only) plus the snapshot diffing used by the
// poller.
package uptimerobot

import (
	"encoding/json"
	"fmt"
)

// Monitor status codes as defined by the UptimeRobot v2 API.
const (
	StatusPaused     = 0
	StatusNotChecked = 1
	StatusUp         = 2
	StatusSeemsDown  = 8
	StatusDown       = 9
)

var statusLabels = map[int]string{
	StatusPaused:     "paused",
	StatusNotChecked: "not checked yet",
	StatusUp:         "up",
	StatusSeemsDown:  "seems down",
	StatusDown:       "down",
}

// StatusLabel maps a status code to its human-readable label. Codes outside
// the known set render as "unknown(<code>)" rather than failing; the set is
// an external API contract and may grow.
func StatusLabel(code int) string {
	if s, ok := statusLabels[code]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", code)
}

// Monitor is one watched endpoint's observed state.
//
// Status is a pointer because the API may omit it; a nil status means
// "incomplete data" and never participates in diffing.
type Monitor struct {
	ID     int64
	Name   string
	Status *int
}

// Snapshot is the full set of monitors as of one poll. Monitor IDs are unique
// within a snapshot; Monitors preserves the API's reporting order.
type Snapshot struct {
	Monitors []Monitor
	Total    int
	Limit    int
}

func (s Snapshot) Len() int { return len(s.Monitors) }

// Index returns the snapshot keyed by monitor ID.
func (s Snapshot) Index() map[int64]Monitor {
	idx := make(map[int64]Monitor, len(s.Monitors))
	for _, m := range s.Monitors {
		idx[m.ID] = m
	}
	return idx
}

// Transition is a detected status change for one monitor between two
// snapshots. Name carries the monitor's current (new-snapshot) name.
type Transition struct {
	ID        int64
	Name      string
	OldStatus int
	NewStatus int
}

// ---- wire format ----

type wireError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type wireMonitor struct {
	ID           *int64 `json:"id"`
	FriendlyName string `json:"friendly_name"`
	Status       *int   `json:"status"`
}

type wirePagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

type listResponse struct {
	Stat       string         `json:"stat"`
	Error      *wireError     `json:"error,omitempty"`
	Monitors   []wireMonitor  `json:"monitors,omitempty"`
	Pagination wirePagination `json:"pagination,omitempty"`
}

func (r *listResponse) errorMessage() string {
	if r.Error == nil || r.Error.Message == "" {
		return "unknown API error"
	}
	return r.Error.Message
}

// ParseSnapshot decodes a getMonitors response body into a Snapshot. The
// persisted state file stores the response verbatim, so loading prior state
// goes through this same path as a live fetch.
//
// Records missing an id are dropped; the count of dropped records is returned
// so callers can log it.
func ParseSnapshot(data []byte) (Snapshot, int, error) {
	var resp listResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Snapshot{}, 0, err
	}
	snap, dropped := snapshotFrom(&resp)
	return snap, dropped, nil
}

func snapshotFrom(resp *listResponse) (Snapshot, int) {
	snap := Snapshot{
		Monitors: make([]Monitor, 0, len(resp.Monitors)),
		Total:    resp.Pagination.Total,
		Limit:    resp.Pagination.Limit,
	}
	dropped := 0
	for _, w := range resp.Monitors {
		if w.ID == nil {
			dropped++
			continue
		}
		name := w.FriendlyName
		if name == "" {
			name = fmt.Sprintf("ID: %d", *w.ID)
		}
		snap.Monitors = append(snap.Monitors, Monitor{ID: *w.ID, Name: name, Status: w.Status})
	}
	return snap, dropped
}
