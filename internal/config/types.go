package config

import (
	"strings"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	HTTP     HTTPConfig     `json:"http,omitempty"`
	Uptime   UptimeConfig   `json:"uptime"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	GroupLog     string  `json:"group_log"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the snapshot store.
//
// Driver values:
//   - "file" (default): JSON state file plus a transitions journal
//   - "sqlite": SQLite database file
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// HTTPConfig controls the optional local status/health HTTP listener.
//
// Security note: prefer binding to localhost (e.g. "127.0.0.1:8477");
// the listener carries no authentication.
type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8477"
}

// UptimeConfig holds the monitor-polling settings.
//
// The poller re-reads this block at the start of every cycle, so edits take
// effect on the next cycle boundary without a restart.
type UptimeConfig struct {
	APIKey string `json:"api_key"`

	// PollingInterval is in seconds. Values below 10 are clamped to 10 so a
	// bad config can't hot-loop against the remote API.
	PollingInterval int `json:"polling_interval"`

	// NotificationTargets are recipient addresses in the form
	// "platform:channel-type:identifier", e.g. "telegram:group:-100123".
	NotificationTargets []string `json:"notification_targets"`

	Digest DigestConfig `json:"digest,omitempty"`
}

// DigestConfig controls the optional scheduled status digest.
type DigestConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a cron spec (5-field, or 6-field with seconds).
	Schedule string `json:"schedule,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

const (
	defaultPollingInterval = 60 * time.Second
	minPollingInterval     = 10 * time.Second
)

// Interval returns the effective polling interval: 60s when unset, floored
// at 10s otherwise.
func (c UptimeConfig) Interval() time.Duration {
	if c.PollingInterval <= 0 {
		return defaultPollingInterval
	}
	d := time.Duration(c.PollingInterval) * time.Second
	if d < minPollingInterval {
		return minPollingInterval
	}
	return d
}

// Recipients returns the configured notification targets with blanks removed.
func (c UptimeConfig) Recipients() []string {
	out := make([]string, 0, len(c.NotificationTargets))
	for _, t := range c.NotificationTargets {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
