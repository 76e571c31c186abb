package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/evdash-cli/internal/parser"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// DefaultPath is where the dashboard expects its dataset when none is configured.
const DefaultPath = "data/Electric_Vehicle_Population_Data.csv"

// LoadOptions controls how a dataset is read.
type LoadOptions struct {
	// Sheet selects the workbook sheet for .xlsx sources.
	Sheet string
	// HTTP settings for remote sources.
	HTTPTimeout      time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	// Client overrides the HTTP client (tests).
	Client *http.Client
}

// DefaultLoadOptions returns the retry/backoff defaults.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		HTTPTimeout:      60 * time.Second,
		RetryMaxAttempts: 3,
		RetryBaseDelay:   500 * time.Millisecond,
		RetryMaxDelay:    4 * time.Second,
	}
}

// IsRemote reports whether src is an http(s) URL.
func IsRemote(src string) bool {
	l := strings.ToLower(src)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Load reads src (file path or URL), decompresses .gz/.zst payloads and parses
// the result into a RecordSet.
func Load(ctx context.Context, src string, opt LoadOptions) (*RecordSet, error) {
	var (
		data []byte
		name = src
		err  error
	)
	if IsRemote(src) {
		data, err = fetch(ctx, src, opt)
		if err != nil {
			return nil, err
		}
		if i := strings.IndexAny(name, "?#"); i >= 0 {
			name = name[:i]
		}
		name = path.Base(name)
	} else {
		data, err = os.ReadFile(src)
		if err != nil {
			return nil, &LoadError{Stage: "read", Err: err}
		}
	}

	data, name, err = decompress(data, name)
	if err != nil {
		return nil, &LoadError{Stage: "decompress", Err: err}
	}
	t, err := parser.Parse(name, bytes.NewReader(data), parser.Options{Sheet: opt.Sheet})
	if err != nil {
		return nil, &LoadError{Stage: "parse", Err: err}
	}
	return fromTable(t, src), nil
}

func decompress(data []byte, name string) ([]byte, string, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, name, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, name, fmt.Errorf("gzip: %w", err)
		}
		return out, name[:len(name)-len(".gz")], nil
	case strings.HasSuffix(lower, ".zst"):
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, name, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, name, fmt.Errorf("zstd: %w", err)
		}
		return out, name[:len(name)-len(".zst")], nil
	}
	return data, name, nil
}

func fetch(ctx context.Context, url string, opt LoadOptions) ([]byte, error) {
	def := DefaultLoadOptions()
	client := opt.Client
	if client == nil {
		timeout := opt.HTTPTimeout
		if timeout <= 0 {
			timeout = def.HTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	maxAttempts := opt.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = def.RetryMaxAttempts
	}
	backoff := opt.RetryBaseDelay
	if backoff <= 0 {
		backoff = def.RetryBaseDelay
	}
	maxDelay := opt.RetryMaxDelay
	if maxDelay <= 0 {
		maxDelay = def.RetryMaxDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		body, wait, err := fetchOnce(ctx, client, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		var fe *FetchError
		if !errors.As(err, &fe) || !fe.Retryable() || attempt == maxAttempts {
			break
		}
		if wait <= 0 {
			wait = withJitter(backoff)
			backoff *= 2
		}
		if wait > maxDelay {
			wait = maxDelay
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return nil, lastErr
}

// fetchOnce performs one GET. The returned duration is the server's Retry-After hint, if any.
func fetchOnce(ctx context.Context, client *http.Client, url string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		var wait time.Duration
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := parseRetryAfterSeconds(strings.TrimSpace(ra)); err == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
		return nil, wait, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &FetchError{URL: url, Err: err}
	}
	return b, 0, nil
}

// parseRetryAfterSeconds reads a Retry-After header given as seconds or an HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// withJitter spreads a backoff delay by +/- 20%.
func withJitter(d time.Duration) time.Duration {
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
