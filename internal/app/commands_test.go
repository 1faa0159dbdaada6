package app

import (
	"context"
	"sync"
	"testing"

	"upbot/internal/config"
	"upbot/internal/notify"
	kit "upbot/internal/transport"
	logx "upbot/pkg/logx"
)

type recordingAdapter struct {
	mu    sync.Mutex
	sent  []string
	chats []int64
}

func (a *recordingAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (a *recordingAdapter) Stop(ctx context.Context) error                         { return nil }

func (a *recordingAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, text)
	a.chats = append(a.chats, to.ChatID)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(a.sent)}, nil
}

func testCommands(t *testing.T, ad kit.Adapter, owners []int64) *Commands {
	t.Helper()
	m := config.NewManager("")
	m.Commit(&config.Config{
		Uptime: config.UptimeConfig{
			NotificationTargets: []string{"telegram:chat:-100999"},
		},
	})
	notif := notify.New(logx.Nop())
	notif.RegisterAdapter("telegram", ad)
	return NewCommands(logx.Nop(), ad, m, nil, nil, nil, notif, owners)
}

func TestTestPushTargetsRequestingChat(t *testing.T) {
	t.Parallel()
	ad := &recordingAdapter{}
	cmds := testCommands(t, ad, []int64{7})

	msg := &kit.Message{ChatID: 555, FromID: 7}
	out := cmds.handleTestPush(context.Background(), msg)
	if out == "" {
		t.Fatal("expected a confirmation reply")
	}

	ad.mu.Lock()
	defer ad.mu.Unlock()
	if len(ad.chats) != 1 {
		t.Fatalf("expected exactly 1 push, got %d", len(ad.chats))
	}
	if ad.chats[0] != 555 {
		t.Fatalf("push went to chat %d, want the requesting chat 555", ad.chats[0])
	}
	for _, id := range ad.chats {
		if id == -100999 {
			t.Fatal("test push must not go to the configured notification targets")
		}
	}
}

func TestTestPushRestrictedToOwners(t *testing.T) {
	t.Parallel()
	ad := &recordingAdapter{}
	cmds := testCommands(t, ad, []int64{7})

	cmds.route(context.Background(), kit.Update{Message: &kit.Message{
		ChatID: 555,
		FromID: 8, // not an owner
		Text:   "/testpush",
	}})

	ad.mu.Lock()
	defer ad.mu.Unlock()
	if len(ad.sent) != 1 {
		t.Fatalf("expected only the refusal reply, got %d sends", len(ad.sent))
	}
	if ad.sent[0] != "This command is restricted to bot owners." {
		t.Fatalf("unexpected reply: %q", ad.sent[0])
	}
}
