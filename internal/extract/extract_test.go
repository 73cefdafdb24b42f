package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeDoc(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDetectType(t *testing.T) {
	cases := []struct {
		name string
		path string
		head []byte
		want string
	}{
		{name: "sniffed pdf", path: "a.bin", head: []byte("%PDF-1.4\n%âãÏÓ\n"), want: mimePDF},
		{name: "sniffed text", path: "a.bin", head: []byte("Acórdão 1234/2024 - Plenário"), want: mimeText},
		{name: "extension fallback", path: "a.pdf", head: []byte{0x00, 0x01}, want: mimePDF},
		{name: "empty head", path: "a.txt", want: mimeText},
		{name: "unknown", path: "a.png", head: []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, want: "application/octet-stream"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectType(tc.path, tc.head); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractFile_PlainText(t *testing.T) {
	path := writeDoc(t, "doc.txt", []byte("decisão do plenário"))
	got, err := ExtractFile(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "decisão do plenário" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractFile_Unsupported(t *testing.T) {
	cases := map[string][]byte{
		"x.png":   {0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a},
		"bad.txt": {'a', 0xc3, 0x28, 'b'},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractFile(context.Background(), writeDoc(t, name, data))
			if !errors.Is(err, ErrUnsupported) {
				t.Fatalf("expected ErrUnsupported, got %v", err)
			}
		})
	}
}

func TestExtractFile_BrokenPDF(t *testing.T) {
	for _, name := range []string{"doc.pdf", "doc.bin"} {
		path := writeDoc(t, name, []byte("%PDF-1.7\nnot really a pdf"))
		if _, err := ExtractFile(context.Background(), path); err == nil {
			t.Fatalf("%s: expected error for malformed pdf", name)
		}
	}
}

func TestExtractFile_MissingAndCancelled(t *testing.T) {
	if _, err := ExtractFile(context.Background(), filepath.Join(t.TempDir(), "gone.pdf")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}

	path := writeDoc(t, "doc.txt", []byte("texto integral"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ExtractFile(ctx, path); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
