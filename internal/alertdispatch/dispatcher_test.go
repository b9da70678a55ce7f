package alertdispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ktrack/pricecore/internal/cfg"
	"github.com/ktrack/pricecore/internal/repository/pgdb"
	"github.com/ktrack/pricecore/pkg/e"
)

type fakeSender struct {
	emailCalls, messagingCalls, webhookCalls int
	emailErr, messagingErr, webhookErr       error
}

func (f *fakeSender) SendEmail(ctx context.Context, to, subject, body string) error {
	f.emailCalls++
	return f.emailErr
}

func (f *fakeSender) SendMessaging(ctx context.Context, chatID, text string) error {
	f.messagingCalls++
	return f.messagingErr
}

func (f *fakeSender) SendWebhook(ctx context.Context, url string, payload any) error {
	f.webhookCalls++
	return f.webhookErr
}

func pendingAlert() *pgdb.PendingAlert {
	return &pgdb.PendingAlert{
		AlertID:     uuid.New(),
		WatchID:     uuid.New(),
		ProductCode: "B001",
		UserID:      uuid.New(),
	}
}

func TestSendThroughChannelsSkipsChannelsWithoutCredentials(t *testing.T) {
	sender := &fakeSender{emailErr: errors.New("smtp down")}
	d := &Dispatcher{sender: sender, cfg: &cfg.DispatchCfg{MaxRetries: 1}}

	a := pendingAlert()
	a.UserEmail = "user@example.com"
	a.MessagingChatID = ""
	a.WebhookURL = "https://hooks.example.com/x"

	channel, err := d.sendThroughChannels(context.Background(), a, &formattedAlert{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channel != "webhook" {
		t.Errorf("channel = %q, want webhook", channel)
	}
	if sender.messagingCalls != 0 {
		t.Errorf("messagingCalls = %d, want 0 (no chat id configured)", sender.messagingCalls)
	}
	if sender.emailCalls != 1 {
		t.Errorf("emailCalls = %d, want 1 (tried and failed before falling through)", sender.emailCalls)
	}
}

func TestSendThroughChannelsReturnsErrNoChannelsConfigured(t *testing.T) {
	d := &Dispatcher{sender: &fakeSender{}, cfg: &cfg.DispatchCfg{MaxRetries: 1}}

	_, err := d.sendThroughChannels(context.Background(), pendingAlert(), &formattedAlert{})
	if !errors.Is(err, e.ErrNoChannelsConfigured) {
		t.Errorf("err = %v, want ErrNoChannelsConfigured", err)
	}
}

func TestSendWithRetryTruncatesToMaxRetries(t *testing.T) {
	d := &Dispatcher{cfg: &cfg.DispatchCfg{MaxRetries: 1}}

	calls := 0
	send := func(ctx context.Context) error {
		calls++
		return errors.New("always fails")
	}

	if err := d.sendWithRetry(context.Background(), send); err == nil {
		t.Fatal("expected error, got nil")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (MaxRetries=1 truncates the 3-offset schedule)", calls)
	}
}

func TestSendWithRetryStopsOnContextCancellation(t *testing.T) {
	d := &Dispatcher{cfg: &cfg.DispatchCfg{MaxRetries: 0}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	send := func(ctx context.Context) error {
		calls++
		return errors.New("always fails")
	}

	err := d.sendWithRetry(ctx, send)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancelled before the second attempt's delay elapses)", calls)
	}
}
