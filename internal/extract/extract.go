package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	mimePDF  = "application/pdf"
	mimeText = "text/plain"
)

// ErrUnsupported is returned for payloads that are neither PDF nor plain text.
var ErrUnsupported = errors.New("unsupported document type")

// ExtractFile extracts text from a document on disk. The type is taken from
// the file content, falling back to the extension.
func ExtractFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	head, err := readHead(path)
	if err != nil {
		return "", fmt.Errorf("extract file %s: %w", filepath.Base(path), err)
	}

	switch detectType(path, head) {
	case mimePDF:
		f, r, err := pdf.Open(path)
		if err != nil {
			return "", fmt.Errorf("extract file %s: pdf: %w", filepath.Base(path), err)
		}
		defer f.Close()
		return plainText(r)
	case mimeText:
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("extract file %s: %w", filepath.Base(path), err)
		}
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("extract file %s: %w: text is not valid utf-8", filepath.Base(path), ErrUnsupported)
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("extract file %s: %w", filepath.Base(path), ErrUnsupported)
	}
}

func plainText(r *pdf.Reader) (text string, err error) {
	// The pdf package panics on some malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("pdf: malformed content: %v", rec)
		}
	}()
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}
	return buf.String(), nil
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return head[:n], nil
}

// detectType sniffs the leading bytes and falls back to the extension.
func detectType(path string, head []byte) string {
	if len(head) > 0 {
		sniffed := strings.Split(http.DetectContentType(head), ";")[0]
		if sniffed == mimePDF || sniffed == mimeText {
			return sniffed
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return mimePDF
	case ".txt":
		return mimeText
	}
	return "application/octet-stream"
}
