package integrations

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/matzehuels/blockdeck/pkg/httputil"
)

const httpTimeout = 30 * time.Second

// Sentinel causes of API failures. Test with errors.Is.
var (
	// ErrNotFound covers pages, blocks and databases that do not exist or
	// are not shared with the integration.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized covers 401 and 403 responses.
	ErrUnauthorized = errors.New("unauthorized")

	ErrRateLimited = errors.New("rate limited")

	// ErrNetwork covers transport failures and 5xx responses.
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient returns a client with the API request timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// StatusError maps an HTTP status to one of the sentinel errors, or nil
// for 2xx. Rate limits and server errors come back wrapped as
// [httputil.RetryableError].
func StatusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, code)
	case code == http.StatusTooManyRequests:
		return httputil.Retryable(fmt.Errorf("%w: status %d", ErrRateLimited, code))
	case code >= 500:
		return httputil.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	}
	return fmt.Errorf("%w: status %d", ErrNetwork, code)
}
