package gate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"jobscout-engine/internal/domain"
)

// State of one gated source's challenge handshake.
type State int

const (
	StateUnchecked State = iota
	StateClear
	StateChallengePending
	StateChallengeCleared
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StateClear:
		return "clear"
	case StateChallengePending:
		return "challenge_pending"
	case StateChallengeCleared:
		return "challenge_cleared"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrChallengeTimeout means the operator never cleared the challenge
	// within the configured wait budget.
	ErrChallengeTimeout = errors.New("challenge not cleared within wait timeout")

	// ErrGateUnavailable means the browser capability could not be launched.
	ErrGateUnavailable = errors.New("browser session unavailable")
)

// Browser is the automation capability the gate consumes. The gate is its
// sole owner: it opens the session lazily and closes it exactly once.
type Browser interface {
	Open(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	ChallengePresent(ctx context.Context) (bool, error)
	Close() error
}

type Config struct {
	Enabled bool

	// OnlySource restricts gating to one source even if more are listed in
	// ProbeURLs, bounding the cost of keeping a browser open. Empty gates
	// every source with a probe URL.
	OnlySource domain.SourceID

	// ProbeURLs maps each protected source to the page probed for the
	// challenge marker.
	ProbeURLs map[domain.SourceID]string

	WaitTimeout  time.Duration // default 300s
	PollInterval time.Duration // default 2s
}

// Gate guards queries against challenge-protected sources. One browser
// session is shared across the whole run; per-source state is remembered so
// a cleared challenge is never re-solved.
type Gate struct {
	cfg Config
	br  Browser

	// sleep is swapped out in tests for a counted fake.
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	states  map[domain.SourceID]State
	opened  bool
	closed  bool
	openErr error
}

func New(cfg Config, br Browser) *Gate {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 300 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Gate{
		cfg:    cfg,
		br:     br,
		sleep:  sleepCtx,
		states: make(map[domain.SourceID]State),
	}
}

// Gated reports whether src requires the gate before querying.
func (g *Gate) Gated(src domain.SourceID) bool {
	if !g.cfg.Enabled {
		return false
	}
	if _, ok := g.cfg.ProbeURLs[src]; !ok {
		return false
	}
	if g.cfg.OnlySource != "" && src != g.cfg.OnlySource {
		return false
	}
	return true
}

// State returns the current gate state for src.
func (g *Gate) State(src domain.SourceID) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.states[src]
}

// Open launches the browser session if it is not already up. Called by the
// orchestrator as a pre-flight when the plan contains gated sources, so a
// missing browser surfaces before any task runs.
func (g *Gate) Open(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.openLocked(ctx)
}

func (g *Gate) openLocked(ctx context.Context) error {
	if g.opened {
		return g.openErr
	}
	g.opened = true
	if err := g.br.Open(ctx); err != nil {
		g.openErr = fmt.Errorf("%w: %v", ErrGateUnavailable, err)
		log.Printf("[gate] browser launch failed: %v", err)
	}
	return g.openErr
}

// EnsureAccessible blocks until src can be queried without tripping the
// anti-bot challenge, or fails. Calls are serialized: the browser is a
// singleton and cannot serve two challenge waits at once.
func (g *Gate) EnsureAccessible(ctx context.Context, src domain.SourceID) error {
	if !g.Gated(src) {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.states[src] {
	case StateClear, StateChallengeCleared:
		return nil // session reuse: no re-probe
	case StateFailed:
		return ErrChallengeTimeout
	}

	if err := g.openLocked(ctx); err != nil {
		return err
	}

	probe := g.cfg.ProbeURLs[src]
	if err := g.br.Navigate(ctx, probe); err != nil {
		return fmt.Errorf("gate probe %s: %w", src, err)
	}

	present, err := g.br.ChallengePresent(ctx)
	if err != nil {
		return fmt.Errorf("gate inspect %s: %w", src, err)
	}
	if !present {
		g.states[src] = StateClear
		log.Printf("[gate:%s] no challenge, session clear", src)
		return nil
	}

	g.states[src] = StateChallengePending
	log.Printf("[gate:%s] challenge detected; waiting for operator (timeout=%s)", src, g.cfg.WaitTimeout)

	// the wait budget is a fixed poll count, not a wall-clock deadline
	polls := int(g.cfg.WaitTimeout / g.cfg.PollInterval)
	for i := 0; i < polls; i++ {
		if err := g.sleep(ctx, g.cfg.PollInterval); err != nil {
			return err
		}
		present, err = g.br.ChallengePresent(ctx)
		if err != nil {
			return fmt.Errorf("gate inspect %s: %w", src, err)
		}
		if !present {
			g.states[src] = StateChallengeCleared
			log.Printf("[gate:%s] challenge cleared after %s", src, time.Duration(i+1)*g.cfg.PollInterval)
			return nil
		}
	}

	g.states[src] = StateFailed
	log.Printf("[gate:%s] challenge still present after %s, giving up", src, g.cfg.WaitTimeout)
	return ErrChallengeTimeout
}

// Close releases the browser session. Safe to call on every exit path; only
// the first call reaches the browser.
func (g *Gate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.opened || g.closed {
		return nil
	}
	g.closed = true
	return g.br.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
