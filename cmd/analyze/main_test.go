package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jurisprudence-backend/internal/analyses"
	"jurisprudence-backend/internal/bootstrap"
	"jurisprudence-backend/internal/decisions"
	"jurisprudence-backend/internal/shared/config"
)

const caseText = "Contratação direta de empresa de tecnologia sem pesquisa de preços e com sobrepreço identificado pela auditoria."

type stubRegistry struct {
	list []decisions.Decision
	err  error
}

func (s stubRegistry) Fetch(context.Context, int) ([]decisions.Decision, error) {
	return s.list, s.err
}

type countingCache struct {
	closed int
}

func (c *countingCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (c *countingCache) Set(context.Context, string, string) error         { return nil }
func (c *countingCache) Close() error {
	c.closed++
	return nil
}

func withApp(t *testing.T, reg decisions.Fetcher) *countingCache {
	t.Helper()
	cache := &countingCache{}
	prev := buildApp
	buildApp = func(context.Context, config.Config) (*bootstrap.App, error) {
		return &bootstrap.App{
			AnalysesService: analyses.NewService(analyses.Service{Registry: reg}),
			Summaries:       cache,
		}, nil
	}
	t.Cleanup(func() { buildApp = prev })
	return cache
}

func writeCase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "caso.txt")
	if err := os.WriteFile(path, []byte(caseText), 0o644); err != nil {
		t.Fatalf("write case: %v", err)
	}
	return path
}

func TestRunClosesAppWhenRunFails(t *testing.T) {
	cache := withApp(t, stubRegistry{err: fmt.Errorf("%w: 502", decisions.ErrRegistryUnavailable)})
	var stdout, stderr bytes.Buffer

	code := run([]string{"-case-file", writeCase(t)}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d (stderr %q)", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), analyses.ErrorCodeRegistryUnavailable) {
		t.Fatalf("expected error code in stderr, got %q", stderr.String())
	}
	if cache.closed != 1 {
		t.Fatalf("expected app closed once, got %d", cache.closed)
	}
}

func TestRunNoDataWritesRunAndCloses(t *testing.T) {
	cache := withApp(t, stubRegistry{})
	out := filepath.Join(t.TempDir(), "run.json")
	var stdout, stderr bytes.Buffer

	code := run([]string{"-case-file", writeCase(t), "-out", out}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr.String())
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var got analyses.AnalysisRun
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got.Status != analyses.StatusNoData || got.ID == "" {
		t.Fatalf("unexpected run %+v", got)
	}
	if !bytes.Equal(bytes.TrimSpace(stdout.Bytes()), raw) {
		t.Fatal("stdout should carry the same run JSON as -out")
	}
	if cache.closed != 1 {
		t.Fatalf("expected app closed once, got %d", cache.closed)
	}
}

func TestRunArgumentErrors(t *testing.T) {
	withApp(t, stubRegistry{})
	cases := []struct {
		name string
		args []string
		want int
	}{
		{name: "unknown flag", args: []string{"-nope"}, want: 2},
		{name: "missing case file", args: nil, want: 1},
		{name: "unreadable case file", args: []string{"-case-file", filepath.Join(t.TempDir(), "missing.txt")}, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tc.args, &stdout, &stderr); code != tc.want {
				t.Fatalf("expected exit %d, got %d", tc.want, code)
			}
			if stdout.Len() != 0 {
				t.Fatalf("unexpected stdout %q", stdout.String())
			}
		})
	}
}
