package decisions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://dados-abertos.apps.tcu.gov.br"
	// UserAgent is sent to the registry and to artifact hosts.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultTimeout = 60 * time.Second
	maxBodyBytes   = 64 << 20
)

var (
	// ErrRegistryUnavailable is returned when the candidate list cannot be fetched.
	ErrRegistryUnavailable = errors.New("decision registry unavailable")
	// ErrRegistryTimeout wraps ErrRegistryUnavailable for deadline failures.
	ErrRegistryTimeout = fmt.Errorf("%w: timeout", ErrRegistryUnavailable)
)

// Fetcher returns up to max candidates in registry order.
type Fetcher interface {
	Fetch(ctx context.Context, max int) ([]Decision, error)
}

// Registry is the HTTP client for the public decision registry.
type Registry struct {
	baseURL    string
	httpClient *http.Client
}

// NewRegistry builds a registry client. Zero timeout means 60s.
func NewRegistry(baseURL string, timeout time.Duration) *Registry {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Registry{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch lists the most recent decisions, capped at max.
func (r *Registry) Fetch(ctx context.Context, max int) ([]Decision, error) {
	if max <= 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("inicio", "0")
	q.Set("quantidade", strconv.Itoa(max))
	endpoint := r.baseURL + "/api/acordao/recupera-acordaos?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if IsTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrRegistryTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: http status %d: %s", ErrRegistryUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out []Decision
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		if IsTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrRegistryTimeout, err)
		}
		return nil, fmt.Errorf("%w: decode: %v", ErrRegistryUnavailable, err)
	}
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

// IsTimeout reports whether err came from a deadline or client timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ Fetcher = (*Registry)(nil)
