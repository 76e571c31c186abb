package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status is the load state of a Source.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(b []byte) error {
	for _, st := range []Status{StatusIdle, StatusLoading, StatusReady, StatusFailed} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// LoadFunc produces a record set; Load bound to a source and options satisfies it.
type LoadFunc func(ctx context.Context) (*RecordSet, error)

// Source tracks the dataset behind a dashboard: whether it is loading, ready or
// failed, and the last successfully loaded record set. A failed reload keeps a
// previously loaded set available.
type Source struct {
	mu      sync.RWMutex
	load    LoadFunc
	status  Status
	set     *RecordSet
	err     error
	updated time.Time
}

// NewSource returns an idle Source that loads with fn.
func NewSource(fn LoadFunc) *Source {
	return &Source{load: fn}
}

// FileSource is a Source reading src with Load.
func FileSource(src string, opt LoadOptions) *Source {
	return NewSource(func(ctx context.Context) (*RecordSet, error) {
		return Load(ctx, src, opt)
	})
}

// Reload runs the load function from any state. While it runs the status is
// StatusLoading; afterwards StatusReady, or StatusFailed if no set was ever loaded.
func (s *Source) Reload(ctx context.Context) error {
	s.mu.Lock()
	s.status = StatusLoading
	s.err = nil
	s.mu.Unlock()

	set, err := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = time.Now()
	if err != nil {
		s.err = err
		if s.set != nil {
			s.status = StatusReady
		} else {
			s.status = StatusFailed
		}
		return err
	}
	s.set = set
	s.status = StatusReady
	return nil
}

// Snapshot reports the current state. The error is the last load failure, if any.
func (s *Source) Snapshot() (Status, *RecordSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.set, s.err
}

// Updated is when the last load finished.
func (s *Source) Updated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}
