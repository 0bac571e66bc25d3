// Package gateway mediates all calls to the generation oracle. It layers
// retry with exponential backoff and jitter, ordered multi-model fallback,
// per-call timeouts, and a self-imposed minimum spacing between outbound
// calls on top of the raw oracle client.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"github.com/jobprep/interviewd/internal/oracle"
)

const (
	defaultMaxAttempts    = 3
	defaultCallTimeout    = 60 * time.Second
	defaultMinInterval    = 500 * time.Millisecond
	defaultInitialBackoff = 500 * time.Millisecond
)

// ErrorKind discriminates gateway failure modes.
type ErrorKind string

const (
	// KindExhausted means every configured model exhausted its retries.
	KindExhausted ErrorKind = "backends_exhausted"
	// KindMalformedJSON means the oracle responded but no valid JSON object
	// could be extracted from the response text.
	KindMalformedJSON ErrorKind = "malformed_json"
)

// Error is the tagged failure value returned by the gateway. Raw carries the
// oracle's unmodified response text for diagnostics when one was received.
type Error struct {
	Kind   ErrorKind
	Detail string
	Raw    string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("gateway: %s: %s: %v", e.Kind, e.Detail, e.cause)
	}
	return fmt.Sprintf("gateway: %s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// Config tunes gateway behavior. Zero values fall back to defaults.
type Config struct {
	MaxAttempts    int           // retries per model before falling back
	CallTimeout    time.Duration // deadline for a single oracle call
	MinInterval    time.Duration // minimum spacing between outbound calls
	InitialBackoff time.Duration
}

// Gateway wraps an oracle.Completer with retry, fallback, and rate limiting.
type Gateway struct {
	completer      oracle.Completer
	models         []string
	maxAttempts    int
	callTimeout    time.Duration
	initialBackoff time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
}

// New creates a Gateway that tries models in order, moving to the next only
// after the previous one exhausts its retries. models must not be empty.
func New(completer oracle.Completer, models []string, cfg Config) *Gateway {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	return &Gateway{
		completer:      completer,
		models:         models,
		maxAttempts:    cfg.MaxAttempts,
		callTimeout:    cfg.CallTimeout,
		initialBackoff: cfg.InitialBackoff,
		limiter:        rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		logger:         slog.Default(),
	}
}

// Generate sends the prompt through the retry/fallback ladder and returns the
// oracle's text response.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for _, model := range g.models {
		for attempt := range g.maxAttempts {
			if err := g.limiter.Wait(ctx); err != nil {
				return "", err
			}

			callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
			out, err := g.completer.Complete(callCtx, model, prompt)
			cancel()
			if err == nil {
				return out, nil
			}
			lastErr = err

			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if !retryable(err) {
				g.logger.Warn("oracle call failed, trying next model", "model", model, "error", err)
				break
			}
			g.logger.Warn("oracle call failed, retrying", "model", model, "attempt", attempt+1, "error", err)

			if attempt < g.maxAttempts-1 {
				if err := g.wait(ctx, g.backoff(attempt)); err != nil {
					return "", err
				}
			}
		}
	}

	return "", &Error{
		Kind:   KindExhausted,
		Detail: fmt.Sprintf("all %d models exhausted after %d attempts each", len(g.models), g.maxAttempts),
		cause:  lastErr,
	}
}

// GenerateJSON sends the prompt and extracts the first JSON object embedded
// in the response text. On extraction failure the returned *Error carries the
// raw response for diagnostics.
func (g *Gateway) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	out, err := g.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	payload, err := ExtractJSON(out)
	if err != nil {
		return nil, &Error{
			Kind:   KindMalformedJSON,
			Detail: err.Error(),
			Raw:    out,
		}
	}
	return payload, nil
}

// backoff returns the exponential delay for the given zero-based attempt,
// with up to 50% random jitter added.
func (g *Gateway) backoff(attempt int) time.Duration {
	base := time.Duration(float64(g.initialBackoff) * math.Pow(2, float64(attempt)))
	return base + rand.N(base/2+1)
}

func (g *Gateway) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// retryable reports whether retrying the same model may help. Timeouts and
// transient upstream statuses are retried; client errors move straight to the
// next model. Unclassified errors (network faults) are retried.
func retryable(err error) bool {
	var statusErr *oracle.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	return true
}
