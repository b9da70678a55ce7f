package alertdispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ktrack/pricecore/pkg/e"
)

func TestHTTPSenderEmailAndMessagingReportUnconfigured(t *testing.T) {
	s := NewHTTPSender()

	if err := s.SendEmail(context.Background(), "user@example.com", "subject", "body"); !errors.Is(err, e.ErrDispatchChannelFailed) {
		t.Errorf("SendEmail err = %v, want ErrDispatchChannelFailed", err)
	}
	if err := s.SendMessaging(context.Background(), "chat-1", "text"); !errors.Is(err, e.ErrDispatchChannelFailed) {
		t.Errorf("SendMessaging err = %v, want ErrDispatchChannelFailed", err)
	}
}

func TestHTTPSenderWebhookPostsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSender()
	if err := s.SendWebhook(context.Background(), srv.URL, map[string]string{"x": "y"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHTTPSenderWebhookTreatsNonSuccessAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPSender()
	err := s.SendWebhook(context.Background(), srv.URL, map[string]string{"x": "y"})
	if !errors.Is(err, e.ErrDispatchChannelFailed) {
		t.Errorf("err = %v, want ErrDispatchChannelFailed", err)
	}
}

func TestFormatAlertBody(t *testing.T) {
	a := &formattedAlert{
		ProductCode:     "B001",
		ProductTitle:    "Mechanical Keyboard",
		NewPrice:        decimal.NewFromFloat(49.99),
		TargetPrice:     decimal.NewFromFloat(55),
		DiscountPercent: decimal.NewFromFloat(10.5),
	}

	got := formatAlertBody(a)
	want := "Mechanical Keyboard dropped to 49.99 (target 55.00, 10.5% off). B001"
	if got != want {
		t.Errorf("formatAlertBody = %q, want %q", got, want)
	}
}
