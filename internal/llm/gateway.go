package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"jurisprudence-backend/internal/shared/metrics"
	"jurisprudence-backend/internal/shared/telemetry"
)

const defaultBackoff = 2 * time.Second

// Gateway generates text with the primary provider, rotating credentials on
// failure, and falls back to the secondary provider once the primary loop
// gives up.
type Gateway struct {
	primary     CredentialedGenerator
	secondary   Generator
	rotator     *Rotator
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// GatewayConfig wires a Gateway. Secondary may be nil.
type GatewayConfig struct {
	Primary   CredentialedGenerator
	Secondary Generator
	Rotator   *Rotator
	// MaxAttempts caps primary attempts per call; zero means one per credential.
	MaxAttempts int
	Backoff     time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// NewGateway constructs a Gateway.
func NewGateway(cfg GatewayConfig) *Gateway {
	backoff := cfg.Backoff
	if backoff < 0 {
		backoff = 0
	} else if backoff == 0 {
		backoff = defaultBackoff
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	rotator := cfg.Rotator
	if rotator == nil {
		rotator = NewRotator(nil)
	}
	return &Gateway{
		primary:     cfg.Primary,
		secondary:   cfg.Secondary,
		rotator:     rotator,
		maxAttempts: cfg.MaxAttempts,
		backoff:     backoff,
		sleep:       sleep,
	}
}

// WithRotator returns a copy of the gateway bound to r.
func (g *Gateway) WithRotator(r *Rotator) *Gateway {
	if g == nil {
		return nil
	}
	cp := *g
	if r == nil {
		r = NewRotator(nil)
	}
	cp.rotator = r
	return &cp
}

// Rotator exposes the credential cursor used by this gateway.
func (g *Gateway) Rotator() *Rotator {
	if g == nil {
		return nil
	}
	return g.rotator
}

// Backoff is the delay between primary credentials; zero means none.
func (g *Gateway) Backoff() time.Duration {
	if g == nil {
		return 0
	}
	return g.backoff
}

// Generate returns generated text or an error wrapping ErrAllProvidersFailed.
// Primary failures advance the shared Rotator, so they are visible to every
// later call made through the same Rotator.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil {
		return "", fmt.Errorf("%w: gateway is nil", ErrAllProvidersFailed)
	}

	res := g.generatePrimary(ctx, prompt)
	if res.text != "" {
		return res.text, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if g.secondary == nil {
		return "", fmt.Errorf("%w: primary: %v; secondary not configured", ErrAllProvidersFailed, describe(res.err))
	}

	metrics.IncLLMFallback()
	telemetry.Info("llm.fallback", map[string]any{
		"primary_exhausted": g.rotator.Exhausted(),
		"primary_error":     describe(res.err),
	})
	out, err := g.secondary.Generate(ctx, prompt)
	if err == nil && strings.TrimSpace(out) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		return "", fmt.Errorf("%w: primary: %v; secondary: %v", ErrAllProvidersFailed, describe(res.err), err)
	}
	return out, nil
}

type primaryOutcome struct {
	text string
	err  error
}

func (g *Gateway) generatePrimary(ctx context.Context, prompt string) primaryOutcome {
	if g.primary == nil {
		return primaryOutcome{err: ErrNotConfigured}
	}
	limit := g.rotator.Len()
	if g.maxAttempts > 0 && g.maxAttempts < limit {
		limit = g.maxAttempts
	}

	var lastErr error
	for attempts := 0; attempts < limit && !g.rotator.Exhausted(); {
		key, ok := g.rotator.Current()
		if !ok {
			break
		}
		out, err := g.primary.GenerateWith(ctx, key, prompt)
		if err == nil && strings.TrimSpace(out) == "" {
			err = ErrEmptyResponse
		}
		if err == nil {
			return primaryOutcome{text: out}
		}
		attempts++
		lastErr = err
		if ctx.Err() != nil {
			return primaryOutcome{err: ctx.Err()}
		}

		metrics.IncLLMPrimaryFailure()
		telemetry.Warn("llm.primary_failed", map[string]any{
			"credential_index": g.rotator.Index(),
			"attempt":          attempts,
			"transient":        isTransient(err),
			"error":            err.Error(),
		})

		if !g.rotator.Advance() || attempts >= limit {
			break
		}
		if err := g.sleep(ctx, g.backoff); err != nil {
			return primaryOutcome{err: err}
		}
	}
	if lastErr == nil {
		lastErr = errors.New("primary credentials exhausted")
	}
	return primaryOutcome{err: lastErr}
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func describe(err error) string {
	if err == nil {
		return "none"
	}
	return err.Error()
}

// isTransient reports whether err looks like a timeout, overload, or
// connection failure rather than a rejected credential.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") || strings.Contains(msg, "unavailable") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}
