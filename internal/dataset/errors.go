package dataset

import (
	"fmt"
	"net/http"
)

// FetchError reports a failed remote dataset download.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could succeed.
func (e *FetchError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || (e.StatusCode >= 500 && e.StatusCode <= 599)
}

// LoadError represents a load failure at a specific stage.
type LoadError struct {
	Stage string // read | decompress | parse
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load error at %s stage: %v", e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
