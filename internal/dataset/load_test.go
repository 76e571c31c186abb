package dataset

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func fastRetry() LoadOptions {
	return LoadOptions{
		HTTPTimeout:      2 * time.Second,
		RetryMaxAttempts: 3,
		RetryBaseDelay:   time.Millisecond,
		RetryMaxDelay:    5 * time.Millisecond,
	}
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ev.csv")
	if err := os.WriteFile(p, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	set, err := Load(context.Background(), p, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if set.Len() != 3 || set.Source() != p {
		t.Fatalf("unexpected set: len=%d source=%q", set.Len(), set.Source())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), LoadOptions{})
	var le *LoadError
	if !errors.As(err, &le) || le.Stage != "read" {
		t.Fatalf("expected read LoadError, got %v", err)
	}
}

func TestLoadCompressed(t *testing.T) {
	dir := t.TempDir()

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, _ = zw.Write([]byte(sampleCSV))
	_ = zw.Close()
	gzPath := filepath.Join(dir, "ev.csv.gz")
	if err := os.WriteFile(gzPath, gz.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	zstPath := filepath.Join(dir, "ev.csv.zst")
	if err := os.WriteFile(zstPath, enc.EncodeAll([]byte(sampleCSV), nil), 0o644); err != nil {
		t.Fatal(err)
	}
	_ = enc.Close()

	plain, _ := ParseCSV(sampleCSV)
	for _, p := range []string{gzPath, zstPath} {
		set, err := Load(context.Background(), p, LoadOptions{})
		if err != nil {
			t.Fatalf("Load(%s): %v", filepath.Base(p), err)
		}
		if set.Token() != plain.Token() {
			t.Fatalf("%s: decompressed content differs", filepath.Base(p))
		}
	}

	bad := filepath.Join(dir, "bad.csv.gz")
	_ = os.WriteFile(bad, []byte("not gzip"), 0o644)
	var le *LoadError
	if _, err := Load(context.Background(), bad, LoadOptions{}); !errors.As(err, &le) || le.Stage != "decompress" {
		t.Fatalf("expected decompress LoadError, got %v", err)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ev.parquet")
	_ = os.WriteFile(p, []byte("x"), 0o644)
	var le *LoadError
	if _, err := Load(context.Background(), p, LoadOptions{}); !errors.As(err, &le) || le.Stage != "parse" {
		t.Fatalf("expected parse LoadError, got %v", err)
	}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(sampleCSV))
		}
	}))
	defer srv.Close()

	set, err := Load(context.Background(), srv.URL+"/data/ev.csv?download=1", fastRetry())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if set.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", set.Len())
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL+"/ev.csv", fastRetry())
	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 FetchError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("404 should not be retried")
	}
}

func TestFetchGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL+"/ev.csv", fastRetry())
	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 FetchError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestFetchHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	opt := fastRetry()
	opt.RetryMaxDelay = time.Minute
	_, err := Load(ctx, srv.URL+"/ev.csv", opt)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	if s, err := parseRetryAfterSeconds("7"); err != nil || s != 7 {
		t.Fatalf("got %d, %v", s, err)
	}
	if _, err := parseRetryAfterSeconds("soon"); err == nil {
		t.Fatalf("expected error")
	}
}
