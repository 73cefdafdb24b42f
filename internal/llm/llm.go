package llm

import (
	"context"
	"errors"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CredentialedGenerator produces text using an explicit credential, so a
// Rotator can decide which one is used for each attempt.
type CredentialedGenerator interface {
	GenerateWith(ctx context.Context, credential, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var (
	// ErrAllProvidersFailed is returned when neither the primary credentials
	// nor the secondary provider produced output.
	ErrAllProvidersFailed = errors.New("all generation providers failed")
	// ErrNotConfigured is returned by providers missing credentials.
	ErrNotConfigured = errors.New("llm provider not configured")
	// ErrEmptyResponse is returned when a provider answers with no text.
	ErrEmptyResponse = errors.New("llm response empty")
)

// CredentialedFunc adapts a function to CredentialedGenerator.
type CredentialedFunc func(ctx context.Context, credential, prompt string) (string, error)

// GenerateWith calls f.
func (f CredentialedFunc) GenerateWith(ctx context.Context, credential, prompt string) (string, error) {
	return f(ctx, credential, prompt)
}
