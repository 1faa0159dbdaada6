// Package poller runs the background fetch/diff/notify loop.
package poller

import (
	"context"
	"sync/atomic"
	"time"

	"upbot/internal/config"
	"upbot/internal/storage"
	"upbot/internal/uptimerobot"
	logx "upbot/pkg/logx"
)

const defaultRecoveryPause = 5 * time.Second

// Client fetches the current monitor snapshot from the remote API.
type Client interface {
	FetchMonitors(ctx context.Context, apiKey string) (uptimerobot.Snapshot, []byte, error)
}

// Notifier delivers transition messages to recipients.
type Notifier interface {
	NotifyTransition(ctx context.Context, tr uptimerobot.Transition, recipients []string)
}

// Status is a point-in-time view of the loop for health reporting.
type Status struct {
	LastPoll      time.Time `json:"last_poll"`
	LastSuccess   time.Time `json:"last_success"`
	LastError     string    `json:"last_error,omitempty"`
	Cycles        uint64    `json:"cycles"`
	MonitorsSeen  int       `json:"monitors_seen"`
	Transitions   uint64    `json:"transitions"`
	NotifyEnabled bool      `json:"notify_enabled"`
}

// Poller periodically fetches the monitor list, diffs it against the
// persisted snapshot, notifies recipients of changes, and persists the
// new snapshot. Exactly one cycle runs at a time.
type Poller struct {
	cfg      *config.Manager
	client   Client
	store    storage.Store
	notifier Notifier
	log      logx.Logger

	recoveryPause time.Duration

	status atomic.Pointer[Status]
}

func New(cfg *config.Manager, client Client, store storage.Store, notifier Notifier, log logx.Logger) *Poller {
	if log.IsZero() {
		log = logx.Nop()
	}
	p := &Poller{
		cfg:           cfg,
		client:        client,
		store:         store,
		notifier:      notifier,
		log:           log,
		recoveryPause: defaultRecoveryPause,
	}
	p.status.Store(&Status{})
	return p
}

// Status returns a copy of the current loop status.
func (p *Poller) Status() Status { return *p.status.Load() }

type cycleSettings struct {
	apiKey     string
	interval   time.Duration
	recipients []string
}

func (p *Poller) settings() cycleSettings {
	c := p.cfg.Get()
	if c == nil {
		return cycleSettings{interval: 60 * time.Second}
	}
	return cycleSettings{
		apiKey:     c.Uptime.APIKey,
		interval:   c.Uptime.Interval(),
		recipients: c.Uptime.Recipients(),
	}
}

// Run executes the loop until ctx is cancelled. The first fetch seeds the
// baseline: its snapshot is persisted but never diffed, so a restart after
// lost state does not replay old transitions as fresh alerts.
func (p *Poller) Run(ctx context.Context) error {
	p.seed(ctx)

	for {
		wait := p.runCycle(ctx)
		if err := sleep(ctx, wait); err != nil {
			return nil
		}
	}
}

func (p *Poller) seed(ctx context.Context) {
	s := p.settings()
	if s.apiKey == "" {
		p.log.Warn("uptime api key not configured; seeding skipped")
		return
	}
	snap, raw, err := p.client.FetchMonitors(ctx, s.apiKey)
	if err != nil {
		p.log.Warn("seed fetch failed; baseline will come from the first successful poll", logx.Err(err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	if err := p.store.SaveSnapshot(ctx, raw); err != nil {
		p.log.Error("persisting seed snapshot", logx.Err(err))
	}
	p.log.Info("baseline snapshot seeded", logx.Int("monitors", snap.Len()))
	p.updateStatus(func(st *Status) {
		now := time.Now()
		st.LastPoll = now
		st.LastSuccess = now
		st.LastError = ""
		st.MonitorsSeen = snap.Len()
	})
}

// runCycle performs one poll and returns how long to wait before the next.
// A panic inside the cycle is recovered and answered with a short pause so
// a persistently broken cycle cannot hot-loop.
func (p *Poller) runCycle(ctx context.Context) (wait time.Duration) {
	s := p.settings()
	wait = s.interval

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("poll cycle panicked", logx.Any("panic", r))
			wait = p.recoveryPause
		}
	}()

	p.updateStatus(func(st *Status) {
		st.Cycles++
		st.LastPoll = time.Now()
		st.NotifyEnabled = len(s.recipients) > 0
	})

	if s.apiKey == "" {
		p.log.Warn("uptime api key not configured; skipping poll")
		p.updateStatus(func(st *Status) { st.LastError = "api key not configured" })
		return wait
	}

	cur, raw, err := p.client.FetchMonitors(ctx, s.apiKey)
	if err != nil {
		if uptimerobot.IsConfigError(err) {
			p.log.Error("poll rejected; check the configured api key", logx.Err(err))
		} else {
			p.log.Warn("poll failed", logx.Err(err))
		}
		p.updateStatus(func(st *Status) { st.LastError = err.Error() })
		return wait
	}
	if ctx.Err() != nil {
		return wait
	}

	prev := p.store.LoadSnapshot(ctx)
	transitions := uptimerobot.Diff(prev, cur)

	if len(transitions) > 0 {
		p.log.Info("status changes detected", logx.Int("count", len(transitions)))
		if len(s.recipients) > 0 {
			for _, tr := range transitions {
				p.notifier.NotifyTransition(ctx, tr, s.recipients)
			}
		} else {
			p.log.Debug("no notification targets configured; changes not delivered")
		}
		recs := make([]storage.TransitionRecord, 0, len(transitions))
		now := time.Now()
		for _, tr := range transitions {
			recs = append(recs, storage.TransitionRecord{
				At:        now,
				MonitorID: tr.ID,
				Name:      tr.Name,
				OldStatus: tr.OldStatus,
				NewStatus: tr.NewStatus,
			})
		}
		if err := p.store.AppendTransitions(ctx, recs); err != nil {
			p.log.Warn("recording transition history", logx.Err(err))
		}
	}

	// The fetched snapshot is persisted even when nothing changed, so the
	// on-disk state always mirrors the latest successful fetch.
	if err := p.store.SaveSnapshot(ctx, raw); err != nil {
		p.log.Error("persisting snapshot", logx.Err(err))
	}

	p.updateStatus(func(st *Status) {
		st.LastSuccess = time.Now()
		st.LastError = ""
		st.MonitorsSeen = cur.Len()
		st.Transitions += uint64(len(transitions))
	})
	return wait
}

func (p *Poller) updateStatus(fn func(*Status)) {
	cur := *p.status.Load()
	fn(&cur)
	p.status.Store(&cur)
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
