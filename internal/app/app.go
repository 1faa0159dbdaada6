// Package app wires the config manager, logging service, telegram adapter,
// storage, poller, digest scheduler, and the local HTTP listener into a
// single supervised process.
package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"upbot/internal/config"
	"upbot/internal/httpapi"
	"upbot/internal/notify"
	"upbot/internal/poller"
	"upbot/internal/runtime/supervisor"
	"upbot/internal/storage"
	kit "upbot/internal/transport"
	telegram "upbot/internal/transport/telegram"
	"upbot/internal/uptimerobot"
	logx "upbot/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	adapter kit.Adapter

	client *uptimerobot.Client
	notif  *notify.Service
	poll   *poller.Poller
	digest *Digest
	http   *httpapi.Server

	cmds *Commands

	updates chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// logx.New() calls Apply() immediately. Bootstrap with Telegram logging
	// disabled, set the target, then Apply() the final config so a missing
	// target doesn't warn during startup.
	baseLogCfg := mapLogConfig(cfg)
	baseLogCfg.Telegram.Enabled = false
	logSvc, log := logx.New(baseLogCfg, ad)
	log = log.With(logx.String("comp", "app"))

	if chatID, ok := parseGroupLog(cfg.Telegram.GroupLog); ok {
		logSvc.SetTelegramTarget(chatID, cfg.Logging.Telegram.ThreadID)
	}
	logSvc.Apply(mapLogConfig(cfg))

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	log.Info("storage opened", logx.String("driver", sc.Driver), logx.String("path", sc.Path))

	client := uptimerobot.New(uptimerobot.Config{}, log.With(logx.String("comp", "uptimerobot")))

	notifSvc := notify.New(log.With(logx.String("comp", "notify")))
	notifSvc.RegisterAdapter("telegram", ad)

	poll := poller.New(cfgm, client, store, notifSvc, log.With(logx.String("comp", "poller")))

	digest, err := NewDigest(cfgm, client, store, notifSvc, log.With(logx.String("comp", "digest")))
	if err != nil {
		return nil, err
	}

	var httpSrv *httpapi.Server
	if cfg.HTTP.Enabled {
		httpSrv = httpapi.New(cfg.HTTP.Addr, store, poll, log.With(logx.String("comp", "http")))
	}

	cmds := NewCommands(log.With(logx.String("comp", "commands")),
		ad, cfgm, client, store, poll, notifSvc, cfg.Telegram.OwnerUserIDs)

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   store,
		adapter: ad,
		client:  client,
		notif:   notifSvc,
		poll:    poll,
		digest:  digest,
		http:    httpSrv,
		cmds:    cmds,
		updates: make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		if _, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
			return err
		}
		if _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		if cfg.Uptime.PollingInterval < 0 {
			return fmt.Errorf("uptime.polling_interval must be >= 0")
		}
		for _, r := range cfg.Uptime.Recipients() {
			if _, err := notify.ParseAddress(r); err != nil {
				return err
			}
		}
		return validateDigest(cfg.Uptime.Digest)
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	a.sup.Go("uptime.poll", func(c context.Context) error {
		return a.poll.Run(c)
	})

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmds.DispatchLoop(c, a.updates)
	})

	a.digest.Start(a.sup.Context())

	if a.http != nil {
		a.sup.Go("http.serve", func(c context.Context) error {
			return a.http.Run(c)
		})
	}

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyReload(newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) applyReload(cfg *config.Config) {
	if cfg == nil {
		return
	}

	// update log target first (so Apply() doesn't warn when Telegram logging is enabled)
	if chatID, ok := parseGroupLog(cfg.Telegram.GroupLog); ok {
		a.logs.SetTelegramTarget(chatID, cfg.Logging.Telegram.ThreadID)
	} else {
		a.logs.SetTelegramTarget(0, 0)
	}
	a.logs.Apply(mapLogConfig(cfg))

	a.cmds.SetOwners(cfg.Telegram.OwnerUserIDs)

	// The poller re-reads uptime settings each cycle; the digest schedule is
	// the only polling-side state that needs an explicit reschedule here.
	if err := a.digest.Reschedule(cfg.Uptime.Digest); err != nil {
		a.log.Warn("invalid digest config; keeping previous schedule", logx.Err(err))
	}

	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	a.sup.Cancel()

	// Each shutdown step gets an upper bound so one component can't stall
	// the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name), logx.Err(stepCtx.Err()))
		}
	}

	step("digest", 1*time.Second, func(c context.Context) error { a.digest.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	// Supervised loops (the poller in particular) may still be finishing a
	// best-effort write, so the store closes only after they have drained.
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("storage", 1*time.Second, func(c context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	path := strings.TrimSpace(cfg.Storage.Path)
	if path == "" {
		path = "./uptime_state.json"
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        path,
		BusyTimeout: busy,
	}, nil
}

func parseGroupLog(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
