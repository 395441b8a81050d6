// Package lifecycle provides scoped acquire/guaranteed release for
// connection and instance handles.
//
// A Scope owns an ordered stack of Handles. Closing the scope releases them
// strictly last-acquired-first, so a connection nested inside an instance is
// always closed before the instance. Release failures are logged as warnings
// and reported as cleanup errors; they never replace an earlier error.
package lifecycle

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapconnect/pkg/connerr"
)

// Handle is a single releasable resource. Release runs the underlying close
// function at most once; later calls, and calls on a nil Handle, are no-ops.
type Handle struct {
	name    string
	release func() error

	once     sync.Once
	mu       sync.Mutex
	released bool
}

// NewHandle wraps release as a Handle. A nil release function yields a
// handle that is already considered released.
func NewHandle(name string, release func() error) *Handle {
	return &Handle{name: name, release: release, released: release == nil}
}

// Name returns the resource name used in log lines.
func (h *Handle) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

// Released reports whether the handle has been released.
func (h *Handle) Released() bool {
	if h == nil {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Release closes the resource. Only the first call can return an error.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	var err error
	h.once.Do(func() {
		h.mu.Lock()
		already := h.released
		h.released = true
		h.mu.Unlock()
		if already {
			return
		}
		err = h.release()
	})
	return err
}

// Scope releases its handles in reverse acquisition order.
type Scope struct {
	logger *slog.Logger

	mu      sync.Mutex
	handles []*Handle
	closed  bool
}

// NewScope creates an empty scope. If logger is nil, a discard logger is used.
func NewScope(logger *slog.Logger) *Scope {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scope{logger: logger}
}

// Add registers release under name and returns its handle. Adding to a
// closed scope releases the resource immediately.
func (s *Scope) Add(name string, release func() error) *Handle {
	h := NewHandle(name, release)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.release(h)
		return h
	}
	s.handles = append(s.handles, h)
	s.mu.Unlock()
	return h
}

// Acquire opens a resource and registers its release with the scope. Nothing
// is registered when open fails.
func Acquire[T any](s *Scope, name string, open func() (T, error), release func(T) error) (T, error) {
	v, err := open()
	if err != nil {
		var zero T
		return zero, err
	}
	s.Add(name, func() error { return release(v) })
	return v, nil
}

// Len returns the number of unreleased handles.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.handles {
		if !h.Released() {
			n++
		}
	}
	return n
}

// Close releases every handle, last acquired first. It is idempotent. The
// returned error joins the cleanup failures, each classified as
// connerr.KindResourceCleanup; callers treat it as a warning.
func (s *Scope) Close() error {
	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.closed = true
	s.mu.Unlock()

	var errs []error
	for i := len(handles) - 1; i >= 0; i-- {
		if err := s.release(handles[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CloseInto closes the scope from a defer. Cleanup failures are logged and
// never assigned to *errp, so an earlier error is never masked and a clean
// run is never marked failed.
func (s *Scope) CloseInto(errp *error) {
	err := s.Close()
	if err != nil && errp != nil && *errp != nil {
		s.logger.Debug("cleanup failed after earlier error",
			slog.String("error", (*errp).Error()))
	}
}

func (s *Scope) release(h *Handle) error {
	if err := h.Release(); err != nil {
		s.logger.Warn("failed to release resource",
			slog.String("resource", h.Name()),
			slog.String("error", err.Error()))
		return connerr.Cleanup(h.Name(), err)
	}
	s.logger.Debug("released resource", slog.String("resource", h.Name()))
	return nil
}

// Release runs a single close function and logs its failure as a warning.
// It is for callers that own one resource and have no Scope.
func Release(logger *slog.Logger, name string, release func() error) {
	if release == nil {
		return
	}
	if err := release(); err != nil && logger != nil {
		logger.Warn("failed to release resource",
			slog.String("resource", name),
			slog.String("error", err.Error()))
	}
}
