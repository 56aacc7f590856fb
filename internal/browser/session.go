package browser

import (
	"context"
	"fmt"
	"sync"
)

// Launcher starts a new browser and returns its driver.
type Launcher func(ctx context.Context) (Driver, error)

// Session owns at most one driver. The browser is launched on the first
// Driver call and shut down by Close; a closed session cannot be reopened.
type Session struct {
	mu     sync.Mutex
	launch Launcher
	driver Driver
	closed bool
}

func NewSession(launch Launcher) *Session {
	return &Session{launch: launch}
}

func (s *Session) Driver(ctx context.Context) (Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.driver != nil {
		return s.driver, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := s.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	s.driver = d
	return d, nil
}

// Opened reports whether a browser was launched and not yet closed.
func (s *Session) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver != nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.driver == nil {
		return nil
	}
	err := s.driver.Close()
	s.driver = nil
	return err
}
