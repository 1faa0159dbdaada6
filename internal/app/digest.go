package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"upbot/internal/config"
	"upbot/internal/notify"
	"upbot/internal/report"
	"upbot/internal/storage"
	"upbot/internal/uptimerobot"
	logx "upbot/pkg/logx"
)

// cronParser accepts standard 5-field specs plus an optional seconds field
// and descriptors like "@daily".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func validateDigest(cfg config.DigestConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.Schedule) == "" {
		return fmt.Errorf("uptime.digest.schedule is required when the digest is enabled")
	}
	if _, err := cronParser.Parse(cfg.Schedule); err != nil {
		return fmt.Errorf("uptime.digest.schedule: %w", err)
	}
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("uptime.digest.timezone: invalid %q: %w", tz, err)
		}
	}
	return nil
}

// Digest periodically pushes a full status summary to the configured
// recipients, independent of change-triggered notifications.
type Digest struct {
	cfgm   *config.Manager
	client *uptimerobot.Client
	store  storage.Store
	notif  *notify.Service
	log    logx.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	current config.DigestConfig
	ctx     context.Context
}

func NewDigest(cfgm *config.Manager, client *uptimerobot.Client, store storage.Store,
	notif *notify.Service, log logx.Logger) (*Digest, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Digest{
		cfgm:   cfgm,
		client: client,
		store:  store,
		notif:  notif,
		log:    log,
	}
	if cfg := cfgm.Get(); cfg != nil {
		if err := validateDigest(cfg.Uptime.Digest); err != nil {
			return nil, err
		}
		d.current = cfg.Uptime.Digest
	}
	return d, nil
}

func (d *Digest) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = ctx
	d.startLocked()
}

func (d *Digest) startLocked() {
	if !d.current.Enabled {
		return
	}

	loc := time.Local
	if tz := strings.TrimSpace(d.current.Timezone); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	c := cron.New(cron.WithParser(cronParser), cron.WithLocation(loc))
	if _, err := c.AddFunc(d.current.Schedule, d.run); err != nil {
		d.log.Error("digest schedule rejected", logx.String("schedule", d.current.Schedule), logx.Err(err))
		return
	}
	c.Start()
	d.cron = c
	d.log.Info("digest scheduled",
		logx.String("schedule", d.current.Schedule),
		logx.String("timezone", loc.String()))
}

// Reschedule swaps the cron schedule after a config reload. An invalid new
// config is rejected without touching the running schedule.
func (d *Digest) Reschedule(cfg config.DigestConfig) error {
	if err := validateDigest(cfg); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if cfg == d.current {
		return nil
	}
	d.stopLocked()
	d.current = cfg
	if d.ctx != nil {
		d.startLocked()
	}
	return nil
}

func (d *Digest) Stop(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Digest) stopLocked() {
	if d.cron == nil {
		return
	}
	stopCtx := d.cron.Stop()
	d.cron = nil
	select {
	case <-stopCtx.Done():
	case <-time.After(2 * time.Second):
		d.log.Warn("digest job still running at stop deadline")
	}
}

func (d *Digest) run() {
	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	cfg := d.cfgm.Get()
	if cfg == nil {
		return
	}
	recipients := cfg.Uptime.Recipients()
	if len(recipients) == 0 {
		d.log.Debug("digest due but no notification targets configured")
		return
	}

	rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	snap, _, err := d.client.FetchMonitors(rctx, cfg.Uptime.APIKey)
	if err != nil {
		// Fall back to the last persisted snapshot so a transient API
		// failure doesn't silently swallow a scheduled digest.
		d.log.Warn("digest fetch failed; using stored snapshot", logx.Err(err))
		snap = d.store.LoadSnapshot(rctx)
	}

	recent, err := d.store.RecentTransitions(rctx, 50)
	if err != nil {
		d.log.Warn("digest history read failed", logx.Err(err))
	}

	text := "Scheduled status digest\n\n" + report.Digest(snap, recent, 24*time.Hour)
	d.notif.Broadcast(rctx, text, recipients)
	d.log.Info("digest delivered", logx.Int("recipients", len(recipients)))
}
