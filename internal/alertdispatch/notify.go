package alertdispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/pkg/e"
)

// ChannelSender delivers a formatted alert over one transport. Transport
// specifics (SMTP credentials, messaging-bot tokens) are a documented
// external collaborator, not implemented here - only the webhook
// channel has a concrete stdlib transport, since it needs no
// provider-specific client.
type ChannelSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendMessaging(ctx context.Context, chatID, text string) error
	SendWebhook(ctx context.Context, url string, payload any) error
}

// HTTPSender is the default ChannelSender. Email and messaging delivery
// require credentials this core does not own, so those two simply
// report unimplemented; webhook delivery needs no external SDK and is
// a plain POST.
type HTTPSender struct {
	httpClient *http.Client
}

func NewHTTPSender() *HTTPSender {
	return &HTTPSender{httpClient: &http.Client{Timeout: 10 * time.Second}}
}

func (s *HTTPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	return e.Wrap(whereami.WhereAmI(), fmt.Errorf("email transport not configured: %w", e.ErrDispatchChannelFailed))
}

func (s *HTTPSender) SendMessaging(ctx context.Context, chatID, text string) error {
	return e.Wrap(whereami.WhereAmI(), fmt.Errorf("messaging transport not configured: %w", e.ErrDispatchChannelFailed))
}

func (s *HTTPSender) SendWebhook(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("webhook returned status %d: %w", resp.StatusCode, e.ErrDispatchChannelFailed))
	}
	return nil
}

// formatAlertBody renders the human-readable alert text shared across
// every channel.
func formatAlertBody(a *formattedAlert) string {
	return fmt.Sprintf(
		"%s dropped to %s (target %s, %.1f%% off). %s",
		a.ProductTitle, a.NewPrice.StringFixed(2), a.TargetPrice.StringFixed(2),
		a.DiscountPercentFloat(), a.ProductCode,
	)
}
