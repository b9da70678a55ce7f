package e

import "fmt"

var (
	// Call-site validation errors, surfaced without retry.
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidAsin     = fmt.Errorf("product code must be 10 alphanumeric characters")
	ErrInvalidPrice    = fmt.Errorf("price must be positive")
	ErrInvalidResponse = fmt.Errorf("upstream response shape mismatch")

	// Token bucket / upstream API errors.
	ErrTokensExhausted    = fmt.Errorf("token bucket exhausted: max wait elapsed")
	ErrUpstreamUnavailable = fmt.Errorf("upstream price API unavailable")
	ErrUpstreamThrottled   = fmt.Errorf("upstream price API throttled")
	ErrDealAccessDenied    = fmt.Errorf("deal endpoint access denied for this access tier")

	// Persistence errors.
	ErrPersistenceTransient = fmt.Errorf("persistence layer transient failure")
	ErrPersistenceFatal     = fmt.Errorf("persistence layer constraint violation")
	ErrTransactionNotFound  = fmt.Errorf("transaction not found in context")
	ErrWatchNotFound        = fmt.Errorf("watch not found")
	ErrDealFilterNotFound   = fmt.Errorf("deal filter not found")
	ErrUserNotFound         = fmt.Errorf("user not found")

	// Sink availability, best-effort, never fatal.
	ErrEventLogUnavailable    = fmt.Errorf("event log unavailable")
	ErrSearchIndexUnavailable = fmt.Errorf("search index unavailable")

	// Dispatch errors.
	ErrDispatchChannelFailed = fmt.Errorf("notification channel delivery failed")
	ErrNoChannelsConfigured  = fmt.Errorf("no notification channels configured for user")

	// HTTP-facing.
	ErrStatusBadRequest     = fmt.Errorf("bad request")
	ErrInternalServerError  = fmt.Errorf("internal server error")
	ErrMissingFields        = fmt.Errorf("missing required fields")
)

// Wrap attaches a call-site tag to an error while preserving the wrapped
// sentinel for errors.Is dispatch.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
