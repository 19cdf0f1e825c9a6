package session

import "sync"

// Subscription owns the listeners registered for one wallet client.
// Close releases them exactly once; later calls are no-ops.
type Subscription struct {
	mu      sync.Mutex
	closed  bool
	cancels []func()
}

func newSubscription() *Subscription {
	return &Subscription{}
}

// add records a release function. Adding to a closed subscription runs it
// immediately so nothing registered late can leak.
func (s *Subscription) add(cancel func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		runQuietly(cancel)
		return
	}
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()
}

// Close runs the release functions in reverse registration order.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for i := len(cancels) - 1; i >= 0; i-- {
		runQuietly(cancels[i])
	}
}

// Closed reports whether Close has run.
func (s *Subscription) Closed() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// runQuietly calls fn, absorbing a panic from a malformed provider.
func runQuietly(fn func()) {
	defer func() { _ = recover() }()
	fn()
}
