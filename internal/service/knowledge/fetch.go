package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrUnsupportedScheme = errors.New("unsupported CSV_URL scheme")

const (
	defaultFetchTimeout = 15 * time.Second
	maxSheetBytes       = 16 << 20
)

// Fetcher reads the FAQ sheet from http(s), file:// or a local path.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher. A nil client gets a 15s timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &Fetcher{client: client}
}

// Fetch returns the sheet as UTF-8 text; invalid byte sequences become U+FFFD.
func (f *Fetcher) Fetch(ctx context.Context, source string) (string, error) {
	source = strings.Trim(strings.TrimSpace(source), `"'`)
	if source == "" {
		return "", errors.New("empty CSV source")
	}

	parsed, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse CSV source: %w", err)
	}

	var raw []byte
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		raw, err = f.fetchHTTP(ctx, source)
	case "file":
		raw, err = readLimited(parsed.Path)
	case "":
		var path string
		path, err = expandHome(source)
		if err == nil {
			raw, err = readLimited(path)
		}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, parsed.Scheme)
	}
	if err != nil {
		return "", err
	}

	return strings.ToValidUTF8(string(raw), "\uFFFD"), nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build CSV request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch CSV: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch CSV: unexpected status %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSheetBytes))
	if err != nil {
		return nil, fmt.Errorf("read CSV body: %w", err)
	}
	return raw, nil
}

func readLimited(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxSheetBytes))
	if err != nil {
		return nil, fmt.Errorf("read CSV file: %w", err)
	}
	return raw, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand ~: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
