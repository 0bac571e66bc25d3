// Package oracle wraps the external text-generation backend. The backend is
// treated as an unreliable black box: callers hand it a prompt and a model
// identifier and get text back, or a classified error.
package oracle

import (
	"context"
	"fmt"
	"net/http"
)

// Completer is the contract the generation gateway depends on. Implementations
// must honor ctx cancellation and return a *StatusError when the upstream
// reported an HTTP-level failure.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// StatusError reports an upstream HTTP status from the oracle.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("oracle returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("oracle returned status %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports whether the upstream throttled the request.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Transient reports whether a retry of the same request may succeed.
// Rate limiting and server-side failures are transient; client errors are not.
func (e *StatusError) Transient() bool {
	return e.RateLimited() || e.StatusCode >= 500
}
