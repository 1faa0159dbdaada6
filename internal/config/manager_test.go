package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"telegram": {"token": "t", "owner_user_ids": [1], "group_log": "", "poll_timeout": "10s"},
		"logging": {"level": "debug", "console": true, "file": {"enabled": false, "path": ""}, "telegram": {"enabled": false, "thread_id": 0, "min_level": "", "rate_per_sec": 0}},
		"storage": {"driver": "file", "path": "./state.json"},
		"uptime": {"api_key": "k", "polling_interval": 120, "notification_targets": ["telegram:chat:1"]}
	}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "t" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if got := cfg.Uptime.Interval(); got != 120*time.Second {
		t.Fatalf("interval = %v, want 120s", got)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
telegram:
  token: t
uptime:
  api_key: k
  polling_interval: 30
  notification_targets:
    - "telegram:chat:1"
    - "  "
`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Uptime.APIKey != "k" {
		t.Fatalf("api_key = %q", cfg.Uptime.APIKey)
	}
	if got := cfg.Uptime.Recipients(); len(got) != 1 || got[0] != "telegram:chat:1" {
		t.Fatalf("recipients = %v", got)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"uptime": {"api_key": "k", "nope": true}}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"uptime": {"api_key": "k"}}{"x":1}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestIntervalClamp(t *testing.T) {
	t.Parallel()
	tests := []struct {
		seconds int
		want    time.Duration
	}{
		{0, 60 * time.Second},
		{-5, 60 * time.Second},
		{3, 10 * time.Second},
		{10, 10 * time.Second},
		{90, 90 * time.Second},
	}
	for _, tt := range tests {
		c := UptimeConfig{PollingInterval: tt.seconds}
		if got := c.Interval(); got != tt.want {
			t.Fatalf("Interval(%d) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	t.Parallel()
	m := NewManager("")
	ch := m.Subscribe(1)

	cfg := &Config{}
	m.publish(cfg)
	select {
	case got := <-ch:
		if got != cfg {
			t.Fatal("received wrong config")
		}
	case <-time.After(time.Second):
		t.Fatal("no config delivered")
	}

	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after Unsubscribe")
	}
}

func TestPublishDropsOldestWhenSlow(t *testing.T) {
	t.Parallel()
	m := NewManager("")
	ch := m.Subscribe(1)

	first := &Config{Uptime: UptimeConfig{PollingInterval: 1}}
	second := &Config{Uptime: UptimeConfig{PollingInterval: 2}}
	m.publish(first)
	m.publish(second)

	got := <-ch
	if got != second {
		t.Fatalf("expected latest config to win, got interval %d", got.Uptime.PollingInterval)
	}
}
