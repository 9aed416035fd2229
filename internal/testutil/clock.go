package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock returns a settable time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SequenceIDGenerator returns 8-character ids with the given prefix and a
// counter: "ID000001", "ID000002" and so on.
type SequenceIDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter int
}

func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	return &SequenceIDGenerator{prefix: prefix}
}

func (g *SequenceIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s%0*d", g.prefix, 8-len(g.prefix), g.counter)
}

// ScriptedIDGenerator hands out the given ids in order, then falls back to
// a SequenceIDGenerator with prefix "Z".
type ScriptedIDGenerator struct {
	mu       sync.Mutex
	ids      []string
	fallback *SequenceIDGenerator
	calls    int
}

func NewScriptedIDGenerator(ids ...string) *ScriptedIDGenerator {
	return &ScriptedIDGenerator{ids: ids, fallback: NewSequenceIDGenerator("Z")}
}

func (g *ScriptedIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.ids) == 0 {
		return g.fallback.New()
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id
}

// Calls reports how many ids were requested.
func (g *ScriptedIDGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
