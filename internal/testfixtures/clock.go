package testfixtures

import (
	"fmt"
	"sync"
	"time"
)

// Clock is a manually driven time source for session expiry and
// meeting creation timestamps.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc returns Now for injection into services. A nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock by d and returns the new instant. Session TTL
// tests use it to push a token past its expiry.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// Sequence hands out predictable identifiers such as "meeting-1".
type Sequence struct {
	mu     sync.Mutex
	prefix string
	next   uint64
}

// NewSequence returns a sequence for prefix; an empty prefix becomes "id".
func NewSequence(prefix string) *Sequence {
	if prefix == "" {
		prefix = "id"
	}
	return &Sequence{prefix: prefix}
}

func (s *Sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%d", s.prefix, s.next)
}

// NextFunc returns Next for injection into services.
func (s *Sequence) NextFunc() func() string {
	if s == nil {
		return func() string { return "" }
	}
	return s.Next
}
