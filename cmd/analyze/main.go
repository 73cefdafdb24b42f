// Command analyze runs one analysis from the command line:
//
//	go run ./cmd/analyze -case-file caso.txt -max-candidates 50 -quota 5
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"jurisprudence-backend/internal/analyses"
	"jurisprudence-backend/internal/bootstrap"
	"jurisprudence-backend/internal/shared/config"
)

var buildApp = bootstrap.Build

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code so deferred cleanup always happens
// before main exits.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	casePath := fs.String("case-file", "", "Path to a text file with the case description (use - for stdin)")
	maxCandidates := fs.Int("max-candidates", analyses.DefaultMaxCandidates, "Decisions to fetch from the registry")
	quota := fs.Int("quota", analyses.DefaultResultQuota, "Stop after this many relevant decisions")
	outPath := fs.String("out", "", "Path to write the run JSON (optional)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	caseDescription, err := readCase(*casePath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, config.Load())
	if err != nil {
		fmt.Fprintf(stderr, "bootstrap: %v\n", err)
		return 1
	}
	defer app.Close()

	result, runErr := app.AnalysesService.Run(ctx, analyses.RunRequest{
		CaseDescription: caseDescription,
		MaxCandidates:   *maxCandidates,
		ResultQuota:     *quota,
	})
	if runErr != nil && result.ID == "" {
		fmt.Fprintf(stderr, "analyze: %v\n", runErr)
		return 1
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "marshal run: %v\n", err)
		return 1
	}
	if strings.TrimSpace(*outPath) != "" {
		if err := os.WriteFile(*outPath, payload, 0o644); err != nil {
			fmt.Fprintf(stderr, "write output: %v\n", err)
			return 1
		}
	}
	fmt.Fprintln(stdout, string(payload))

	if runErr != nil {
		fmt.Fprintf(stderr, "run %s ended with %s: %v\n", result.ID, analyses.ErrorCode(runErr), runErr)
		return 1
	}
	if result.Status == analyses.StatusNoData {
		fmt.Fprintln(stderr, "registry returned no decisions")
	}
	return 0
}

func readCase(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("case-file is required")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read case description: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
