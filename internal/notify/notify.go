// Package notify fans out status change messages to configured recipients.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"upbot/internal/transport"
	"upbot/internal/uptimerobot"
	logx "upbot/pkg/logx"
)

const sendTimeout = 10 * time.Second

// Service delivers messages to recipients across registered platform
// adapters. A failure on one recipient never blocks the others.
type Service struct {
	log      logx.Logger
	limiter  *rate.Limiter
	adapters map[string]transport.Adapter
}

func New(log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log: log,
		// Telegram allows roughly 30 messages per second bot wide.
		limiter:  rate.NewLimiter(rate.Limit(20), 5),
		adapters: make(map[string]transport.Adapter),
	}
}

// RegisterAdapter binds a platform name to its transport. Not safe to
// call after delivery has started.
func (s *Service) RegisterAdapter(platform string, a transport.Adapter) {
	s.adapters[platform] = a
}

// NotifyTransition formats tr and delivers it to every recipient.
// Malformed recipient strings are skipped with a warning; delivery
// failures are logged per recipient and do not abort the rest.
func (s *Service) NotifyTransition(ctx context.Context, tr uptimerobot.Transition, recipients []string) {
	s.Broadcast(ctx, formatTransition(tr), recipients)
}

// Broadcast sends text to every recipient with per-recipient isolation.
func (s *Service) Broadcast(ctx context.Context, text string, recipients []string) {
	for _, r := range recipients {
		addr, err := ParseAddress(r)
		if err != nil {
			s.log.Warn("skipping malformed recipient", logx.String("recipient", r), logx.Err(err))
			continue
		}
		if err := s.deliver(ctx, addr, text); err != nil {
			s.log.Error("delivery failed",
				logx.String("recipient", addr.String()),
				logx.Err(err))
		}
	}
}

func (s *Service) deliver(ctx context.Context, addr Address, text string) error {
	adapter, ok := s.adapters[addr.Platform]
	if !ok {
		return fmt.Errorf("no adapter for platform %q", addr.Platform)
	}
	chatID, err := strconv.ParseInt(addr.Target, 10, 64)
	if err != nil {
		return fmt.Errorf("target %q is not a chat id: %w", addr.Target, err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	sctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	_, err = adapter.SendText(sctx, transport.ChatTarget{ChatID: chatID}, text, nil)
	return err
}

func formatTransition(tr uptimerobot.Transition) string {
	return fmt.Sprintf("Monitor status change\nMonitor: %s\nStatus: %s -> %s",
		tr.Name,
		uptimerobot.StatusLabel(tr.OldStatus),
		uptimerobot.StatusLabel(tr.NewStatus))
}
