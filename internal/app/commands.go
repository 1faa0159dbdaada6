package app

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"upbot/internal/config"
	"upbot/internal/notify"
	"upbot/internal/poller"
	"upbot/internal/report"
	"upbot/internal/storage"
	kit "upbot/internal/transport"
	"upbot/internal/uptimerobot"
	logx "upbot/pkg/logx"
)

const commandTimeout = 30 * time.Second

// Commands routes inbound chat messages to the bot's command handlers.
type Commands struct {
	log     logx.Logger
	adapter kit.Adapter
	cfgm    *config.Manager
	client  *uptimerobot.Client
	store   storage.Store
	poll    *poller.Poller
	notif   *notify.Service

	mu     sync.RWMutex
	owners []int64
}

func NewCommands(log logx.Logger, adapter kit.Adapter, cfgm *config.Manager,
	client *uptimerobot.Client, store storage.Store, poll *poller.Poller,
	notif *notify.Service, owners []int64) *Commands {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Commands{
		log:     log,
		adapter: adapter,
		cfgm:    cfgm,
		client:  client,
		store:   store,
		poll:    poll,
		notif:   notif,
		owners:  append([]int64(nil), owners...),
	}
}

func (m *Commands) SetOwners(owners []int64) {
	m.mu.Lock()
	m.owners = append([]int64(nil), owners...)
	m.mu.Unlock()
}

func (m *Commands) isOwner(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.owners {
		if id == userID {
			return true
		}
	}
	return false
}

// DispatchLoop consumes updates until ctx is cancelled. Each command runs in
// its own goroutine with a deadline so one slow fetch can't block dispatch.
func (m *Commands) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	m.log.Info("command dispatcher started")
	for {
		select {
		case <-ctx.Done():
			m.log.Info("command dispatcher stopped")
			return nil
		case up, ok := <-updates:
			if !ok {
				m.log.Info("command dispatcher stopped (updates channel closed)")
				return nil
			}
			m.route(ctx, up)
		}
	}
}

func (m *Commands) route(ctx context.Context, up kit.Update) {
	if up.Message == nil {
		return
	}
	msg := up.Message
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	word := strings.Fields(text)[0]
	word = strings.TrimPrefix(word, "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}

	var handler func(ctx context.Context, msg *kit.Message) string
	switch word {
	case "status", "uptime_status":
		handler = m.handleStatus
	case "testpush", "test_push":
		if !m.isOwner(msg.FromID) {
			m.reply(ctx, msg, "This command is restricted to bot owners.")
			return
		}
		handler = m.handleTestPush
	case "help", "start":
		handler = m.handleHelp
	default:
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("panic in command handler", logx.String("command", word), logx.Any("panic", r))
			}
		}()
		cctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		if out := handler(cctx, msg); out != "" {
			m.reply(cctx, msg, out)
		}
	}()
}

func (m *Commands) reply(ctx context.Context, msg *kit.Message, text string) {
	to := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}
	if _, err := m.adapter.SendText(ctx, to, text, nil); err != nil {
		m.log.Warn("command reply failed", logx.Int64("chat_id", msg.ChatID), logx.Err(err))
	}
}

// handleStatus does its own fetch rather than reading stored state, so the
// answer reflects the account right now even between poll cycles.
func (m *Commands) handleStatus(ctx context.Context, _ *kit.Message) string {
	cfg := m.cfgm.Get()
	apiKey := ""
	if cfg != nil {
		apiKey = cfg.Uptime.APIKey
	}

	snap, _, err := m.client.FetchMonitors(ctx, apiKey)
	if err != nil {
		if uptimerobot.IsConfigError(err) {
			return "UptimeRobot API key is not configured or was rejected. Set uptime.api_key in the config."
		}
		m.log.Warn("status fetch failed", logx.Err(err))
		return "Failed to fetch monitor status: " + err.Error()
	}
	return report.StatusReport(snap)
}

// handleTestPush delivers a test message through the same notify pipeline
// that carries status changes, addressed at the chat that asked. That way
// any chat can verify push delivery to itself without being listed in
// uptime.notification_targets.
func (m *Commands) handleTestPush(ctx context.Context, msg *kit.Message) string {
	target := "telegram:chat:" + strconv.FormatInt(msg.ChatID, 10)
	m.notif.Broadcast(ctx, "Test notification: monitor status push is working.", []string{target})
	return "Test notification pushed to this chat."
}

func (m *Commands) handleHelp(ctx context.Context, _ *kit.Message) string {
	return strings.Join([]string{
		"Uptime monitor bot.",
		"",
		"/status - fetch and show the current state of all monitors",
		"/testpush - send a test notification to this chat (owners only)",
		"/help - this message",
	}, "\n")
}
