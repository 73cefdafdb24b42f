package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"jurisprudence-backend/internal/decisions"
	"jurisprudence-backend/internal/extract"
	"jurisprudence-backend/internal/shared/telemetry"
	"jurisprudence-backend/internal/shared/util"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxBytes = 50 << 20
)

// Config holds Manager settings.
type Config struct {
	Dir      string
	Timeout  time.Duration
	MaxBytes int64
}

// Manager downloads decision documents into a scratch directory and turns
// them into text. Files only live for the duration of one FetchText call.
type Manager struct {
	dir        string
	httpClient *http.Client
	timeout    time.Duration
	maxBytes   int64
	now        func() time.Time
	extract    func(ctx context.Context, path string) (string, error)
}

// NewManager creates the scratch directory if needed.
func NewManager(cfg Config) (*Manager, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "jurisprudence-artifacts")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact dir: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Manager{
		dir:        dir,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		maxBytes:   maxBytes,
		now:        time.Now,
		extract:    extract.ExtractFile,
	}, nil
}

// Dir returns the scratch directory.
func (m *Manager) Dir() string {
	return m.dir
}

// NewScope starts a batch-level scope. Every file created through it is
// tracked until removed, so Release can sweep whatever an abandoned fetch
// left behind.
func (m *Manager) NewScope() *Scope {
	return &Scope{m: m, outstanding: map[string]struct{}{}}
}

// Scope tracks the temporary files of one batch run.
type Scope struct {
	m           *Manager
	mu          sync.Mutex
	outstanding map[string]struct{}
}

// FetchText downloads url to a temporary file, extracts its text and removes
// the file before returning, on every path.
func (s *Scope) FetchText(ctx context.Context, url, id string) (string, error) {
	path := s.m.pathFor(url, id)
	s.track(path)
	defer s.remove(path)

	if !s.reusable(path) {
		if err := s.m.download(ctx, url, path); err != nil {
			return "", err
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%w: empty file", ErrDownloadFailed)
	}

	text, err := s.m.extract(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %v", ErrNoExtractableText, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoExtractableText
	}
	return text, nil
}

// Outstanding returns the number of tracked files not yet removed.
func (s *Scope) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outstanding)
}

// Release removes every file still tracked by the scope and returns how
// many were swept. Failures are logged, never returned.
func (s *Scope) Release() int {
	s.mu.Lock()
	paths := make([]string, 0, len(s.outstanding))
	for p := range s.outstanding {
		paths = append(paths, p)
	}
	s.mu.Unlock()

	swept := 0
	for _, p := range paths {
		if s.remove(p) {
			swept++
		}
	}
	return swept
}

func (s *Scope) track(path string) {
	s.mu.Lock()
	s.outstanding[path] = struct{}{}
	s.mu.Unlock()
}

// remove deletes path and stops tracking it. A file that never existed counts
// as removed.
func (s *Scope) remove(path string) bool {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		telemetry.Warn("artifact.cleanup_failed", map[string]any{
			"file":  filepath.Base(path),
			"error": err,
		})
		return false
	}
	s.mu.Lock()
	delete(s.outstanding, path)
	s.mu.Unlock()
	return true
}

func (s *Scope) reusable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

func (m *Manager) pathFor(url, id string) string {
	key := util.HashParts(url, id, strconv.FormatInt(m.now().UnixNano(), 10))[:32]
	name, err := util.SanitizeFileName(id)
	if err != nil {
		name = "doc"
	}
	return filepath.Join(m.dir, key+"_"+name+".bin")
}

func (m *Manager) download(ctx context.Context, url, path string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("%w: missing url", ErrDownloadFailed)
	}
	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", decisions.UserAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return m.classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: http status %d", ErrDownloadFailed, resp.StatusCode)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("%w: open file: %v", ErrDownloadFailed, err)
	}
	written, copyErr := io.Copy(f, io.LimitReader(resp.Body, m.maxBytes+1))
	closeErr := f.Close()
	if copyErr != nil {
		return m.classify(ctx, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: close file: %v", ErrDownloadFailed, closeErr)
	}
	if written > m.maxBytes {
		return fmt.Errorf("%w: larger than %d bytes", ErrDownloadFailed, m.maxBytes)
	}
	return nil
}

func (m *Manager) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrDownloadTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
}
