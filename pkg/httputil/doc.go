// Package httputil provides retry helpers for the content source client.
//
// # Retry
//
// [Retry] re-runs a request function while it fails with a
// [RetryableError]. Transient failures are:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses, which may carry a Retry-After delay
//
// Every other error is returned on the first attempt:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return client.Get(ctx, url, &v)
//	})
//
// The delay doubles after each failed attempt unless the server asked for a
// specific wait with Retry-After, in which case that wait is honoured.
package httputil
