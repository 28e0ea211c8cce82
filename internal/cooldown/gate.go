package cooldown

import (
	"fmt"
	"time"

	"github.com/ppiankov/drivewatch/internal/model"
)

// Gate filters action batches against a Store. Not safe for concurrent use.
type Gate struct {
	store  *Store
	window time.Duration
	exempt map[string]bool
	now    func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithStore shares an existing store.
func WithStore(s *Store) Option {
	return func(g *Gate) { g.store = s }
}

// New creates a Gate with an empty store.
func New(cfg Config, opts ...Option) *Gate {
	g := &Gate{now: time.Now}
	g.Reconfigure(cfg)
	for _, o := range opts {
		o(g)
	}
	if g.store == nil {
		g.store = NewStore()
	}
	return g
}

// Reconfigure swaps the window and exempt set. Tracked acceptance times
// are kept. A non-positive window falls back to DefaultWindow.
func (g *Gate) Reconfigure(cfg Config) {
	g.window = cfg.Window
	if g.window <= 0 {
		g.window = DefaultWindow
	}
	g.exempt = cfg.exemptSet()
}

// Window returns the active cooldown window.
func (g *Gate) Window() time.Duration { return g.window }

// Store returns the backing store.
func (g *Gate) Store() *Store { return g.store }

// IsExempt reports whether name bypasses the cooldown.
func (g *Gate) IsExempt(name string) bool { return g.exempt[name] }

// Filter splits actions into executed and blocked, in input order. Later
// actions see acceptances made earlier in the same batch. One timestamp is
// taken per call.
func (g *Gate) Filter(actions model.ActionSequence) model.SafetyResult {
	now := g.now()
	result := model.SafetyResult{
		Executed: make(model.ActionSequence, 0, len(actions)),
		Blocked:  model.ActionSequence{},
		Logs:     []string{},
	}

	for _, a := range actions {
		if g.exempt[a.Name] {
			result.Executed = append(result.Executed, a)
			continue
		}

		elapsed, seen := g.store.Elapsed(a.Name, now)
		if seen && elapsed < g.window {
			remaining := g.window - elapsed
			result.Blocked = append(result.Blocked, a)
			result.Logs = append(result.Logs, BlockedLog(a.Name, remaining))
			continue
		}

		g.store.Record(a.Name, now)
		result.Executed = append(result.Executed, a)
	}
	return result
}

// Clear forgets every acceptance, e.g. when switching scenarios.
func (g *Gate) Clear() { g.store.Clear() }

// BlockedLog formats the log line for a blocked action. Remaining time is
// floored to whole seconds.
func BlockedLog(name string, remaining time.Duration) string {
	return fmt.Sprintf("SafetyGate: blocked %s (cooldown %ds)", name, remaining.Milliseconds()/1000)
}
