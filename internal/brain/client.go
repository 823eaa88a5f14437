package brain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/newslens/internal/logging"
)

// Phase is where the Client is in resolving a working model.
type Phase int

const (
	Unresolved Phase = iota
	Probing
	Resolved
	Exhausted
)

func (p Phase) String() string {
	switch p {
	case Unresolved:
		return "unresolved"
	case Probing:
		return "probing"
	case Resolved:
		return "resolved"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a snapshot of model resolution.
type State struct {
	Phase   Phase
	Model   string // resolved model, or the candidate being probed
	Attempt int    // 1-based index of the candidate being probed
	LastErr error  // set when Exhausted
}

// Options configures a Client.
type Options struct {
	// Models is the primary model followed by fallback candidates.
	Models []string
	// Timeout bounds each attempt. Zero means DefaultAttemptTimeout.
	Timeout time.Duration
	// RequestsPerMinute paces attempts across all callers. Zero disables pacing.
	RequestsPerMinute float64
	Burst             int
}

// DefaultAttemptTimeout bounds a single generation attempt.
const DefaultAttemptTimeout = 15 * time.Second

// Client resolves which model identifier works for a backend and reuses it.
// The fallback chain is probed in order until one succeeds; the winner is
// kept for later calls. Probes are serialized so concurrent callers do not
// scan the chain in parallel.
type Client struct {
	backend Backend
	models  []string
	timeout time.Duration
	limiter *rate.Limiter

	probeMu sync.Mutex // held for the duration of a probe

	mu    sync.Mutex
	state State
}

// NewClient creates a Client over backend.
func NewClient(backend Backend, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMinute > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60), burst)
	}
	return &Client{
		backend: backend,
		models:  dedup(opts.Models),
		timeout: timeout,
		limiter: limiter,
	}
}

// Backend returns the underlying backend name.
func (c *Client) Backend() string {
	return c.backend.Name()
}

// State returns the current resolution state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Chain returns the fallback chain for a hint: the hint (or the primary
// model) followed by the remaining candidates, without duplicates.
func (c *Client) Chain(hint string) []string {
	if hint == "" {
		return append([]string(nil), c.models...)
	}
	return dedup(append([]string{hint}, c.models...))
}

// Generate sends req to the resolved model, probing the fallback chain
// first when nothing is resolved. hint is tried first during a probe and
// ignored once a model is resolved.
func (c *Client) Generate(ctx context.Context, req Request, hint string) (Response, error) {
	if !c.backend.Available() {
		return Response{}, &GenerationError{Kind: KindNotConfigured, Backend: c.backend.Name()}
	}

	if model := c.resolved(); model != "" {
		resp, err := c.attempt(ctx, model, req)
		if err == nil || !IsKind(err, KindModelUnavailable) {
			return resp, err
		}
		logging.Warn("Resolved model no longer available", "backend", c.backend.Name(), "model", model)
		c.unresolve(model)
	}

	return c.probe(ctx, req, hint)
}

func (c *Client) probe(ctx context.Context, req Request, hint string) (Response, error) {
	c.probeMu.Lock()
	defer c.probeMu.Unlock()

	// Another caller may have resolved while we waited.
	if model := c.resolved(); model != "" {
		return c.attempt(ctx, model, req)
	}

	chain := c.Chain(hint)
	if len(chain) == 0 {
		return Response{}, &GenerationError{Kind: KindNotConfigured, Backend: c.backend.Name(), Err: errors.New("no models configured")}
	}

	var lastErr error
	for i, model := range chain {
		c.setState(State{Phase: Probing, Model: model, Attempt: i + 1})

		resp, err := c.attempt(ctx, model, req)
		if err == nil {
			c.setState(State{Phase: Resolved, Model: model})
			logging.Info("Model resolved", "backend", c.backend.Name(), "model", model, "attempt", i+1)
			return resp, nil
		}
		lastErr = err
		logging.Debug("Model probe failed", "backend", c.backend.Name(), "model", model, "error", err)

		if ctx.Err() != nil {
			c.setState(State{Phase: Unresolved})
			return Response{}, wrap(c.backend.Name(), model, err)
		}
	}

	c.setState(State{Phase: Exhausted, LastErr: lastErr})
	logging.Warn("Fallback chain exhausted", "backend", c.backend.Name(), "attempts", len(chain), "error", lastErr)
	return Response{}, &GenerationError{
		Kind:     KindExhausted,
		Backend:  c.backend.Name(),
		Attempts: len(chain),
		Err:      lastErr,
	}
}

// attempt runs one paced, time-bounded call.
func (c *Client) attempt(ctx context.Context, model string, req Request) (Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Response{}, &GenerationError{Kind: KindTransport, Backend: c.backend.Name(), Model: model, Err: err}
	}

	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.backend.Generate(actx, model, req)
	if err != nil {
		return Response{}, wrap(c.backend.Name(), model, err)
	}
	logging.Debug("Generation complete", "backend", c.backend.Name(), "model", model, "duration", time.Since(start))
	return resp, nil
}

func (c *Client) resolved() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase == Resolved {
		return c.state.Model
	}
	return ""
}

// unresolve drops the resolution if it still points at model.
func (c *Client) unresolve(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase == Resolved && c.state.Model == model {
		c.state = State{Phase: Unresolved}
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func dedup(models []string) []string {
	seen := make(map[string]bool, len(models))
	out := make([]string, 0, len(models))
	for _, m := range models {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
