package analyses

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"jurisprudence-backend/internal/artifacts"
	"jurisprudence-backend/internal/decisions"
)

const testCase = "Contratação direta de empresa de tecnologia sem pesquisa de preços e com sobrepreço identificado pela auditoria."

type docServer struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

// newDocServer serves /docs/<id> with the given body; unknown ids get 404.
func newDocServer(t *testing.T, docs map[string]string) *docServer {
	t.Helper()
	ds := &docServer{hits: map[string]int{}}
	ds.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/docs/")
		ds.mu.Lock()
		ds.hits[id]++
		ds.mu.Unlock()
		body, ok := docs[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ds.Close)
	return ds
}

func (d *docServer) hitCount(id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hits[id]
}

func (d *docServer) candidates(ids ...string) []decisions.Decision {
	out := make([]decisions.Decision, 0, len(ids))
	for _, id := range ids {
		out = append(out, decisions.Decision{
			ID:          id,
			Title:       "Acórdão " + id,
			Year:        "2024",
			Rapporteur:  "Relator",
			Type:        "ACÓRDÃO",
			SessionDate: "10/04/2024",
			Body:        "Plenário",
			ArtifactURL: d.URL + "/docs/" + id,
		})
	}
	return out
}

// scriptedLLM answers summary prompts with a fixed text and relevance
// prompts according to markers found in the document text.
type scriptedLLM struct {
	mu             sync.Mutex
	verdicts       map[string]string
	summaries      map[string]string
	failFor        map[string]error
	summaryCalls   int
	relevanceCalls int
}

func (s *scriptedLLM) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for marker, err := range s.failFor {
		if strings.Contains(prompt, marker) {
			return "", err
		}
	}
	if !strings.Contains(prompt, "CASO CONCRETO ESPECÍFICO") {
		s.summaryCalls++
		for marker, summary := range s.summaries {
			if strings.Contains(prompt, marker) {
				return summary, nil
			}
		}
		return "Resumo do acórdão.", nil
	}
	s.relevanceCalls++
	for marker, verdict := range s.verdicts {
		if strings.Contains(prompt, marker) {
			return verdict, nil
		}
	}
	return "NÃO RELACIONADO", nil
}

type fakeRegistry struct {
	mu    sync.Mutex
	list  []decisions.Decision
	err   error
	calls int
}

func (f *fakeRegistry) Fetch(_ context.Context, max int) ([]decisions.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.list) > max {
		return f.list[:max], nil
	}
	return f.list, nil
}

type memorySummaries struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memorySummaries) Get(_ context.Context, id string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[id]
	return v, ok, nil
}

func (m *memorySummaries) Set(_ context.Context, id, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]string{}
	}
	m.data[id] = summary
	return nil
}

func (m *memorySummaries) Close() error { return nil }

func newTestArtifacts(t *testing.T) *artifacts.Manager {
	t.Helper()
	m, err := artifacts.NewManager(artifacts.Config{Dir: t.TempDir(), Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func assertArtifactDirEmpty(t *testing.T, m *artifacts.Manager) {
	t.Helper()
	entries, err := os.ReadDir(m.Dir())
	if err != nil {
		t.Fatalf("read artifact dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty artifact dir, found %d entries", len(entries))
	}
}
