package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/getmockd/contractd/internal/matching"
	"github.com/getmockd/contractd/pkg/contract"
	"github.com/getmockd/contractd/pkg/logging"
)

// Routing errors.
var (
	ErrNoRoute   = errors.New("no contract matches message")
	ErrNoTrigger = errors.New("no contract is triggered by label")
)

// FallbackFunc receives messages that no contract matched.
type FallbackFunc func(ctx context.Context, destination string, msg *Message)

// Router keeps one Selector per input destination, in contract declaration
// order, and produces output messages for matched inputs.
type Router struct {
	mu        sync.RWMutex
	contracts []*contract.Contract
	selectors map[string]*Selector

	engine      *matching.Engine
	transformer *Transformer
	fallback    FallbackFunc
	log         *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRouterEngine sets the matching engine shared by all selectors.
func WithRouterEngine(e *matching.Engine) RouterOption {
	return func(r *Router) { r.engine = e }
}

// WithTransformer sets the output message builder.
func WithTransformer(t *Transformer) RouterOption {
	return func(r *Router) {
		if t != nil {
			r.transformer = t
		}
	}
}

// WithFallback sets the handler for unrouted messages. The default drops
// them.
func WithFallback(fn FallbackFunc) RouterOption {
	return func(r *Router) {
		if fn != nil {
			r.fallback = fn
		}
	}
}

// WithRouterLogger sets the logger.
func WithRouterLogger(log *slog.Logger) RouterOption {
	return func(r *Router) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRouter creates a router and registers contracts.
func NewRouter(contracts []*contract.Contract, opts ...RouterOption) *Router {
	r := &Router{
		selectors:   make(map[string]*Selector),
		transformer: NewTransformer(),
		fallback:    func(context.Context, string, *Message) {},
		log:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.engine == nil {
		r.engine = matching.New(matching.WithLogger(r.log))
	}
	r.Register(contracts...)
	return r
}

// Register adds contracts after the ones already known. Messaging
// contracts listening on a destination are appended to its selector; the
// others are only reachable through Trigger. Existing selectors keep their
// remembered decisions.
func (r *Router) Register(contracts ...*contract.Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.contracts = append(r.contracts, contracts...)

	byDest := make(map[string][]*contract.Contract)
	var order []string
	for _, c := range contracts {
		if c == nil || !c.IsMessaging() || c.Input == nil || c.Input.MessageFrom == "" {
			continue
		}
		dest := c.Input.MessageFrom
		if _, ok := byDest[dest]; !ok {
			order = append(order, dest)
		}
		byDest[dest] = append(byDest[dest], c)
	}
	for _, dest := range order {
		if sel, ok := r.selectors[dest]; ok {
			sel.add(byDest[dest]...)
			continue
		}
		r.selectors[dest] = NewSelector(byDest[dest], WithEngine(r.engine), WithSelectorLogger(r.log))
	}
}

// Destinations lists the input destinations, sorted.
func (r *Router) Destinations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.selectors))
	for d := range r.selectors {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// OutputDestinations lists every sentTo destination, sorted and unique.
func (r *Router) OutputDestinations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, c := range r.contracts {
		if c == nil || c.OutputMessage == nil || c.OutputMessage.SentTo == "" {
			continue
		}
		if _, ok := seen[c.OutputMessage.SentTo]; ok {
			continue
		}
		seen[c.OutputMessage.SentTo] = struct{}{}
		out = append(out, c.OutputMessage.SentTo)
	}
	sort.Strings(out)
	return out
}

// Selector returns the selector for a destination, or nil.
func (r *Router) Selector(destination string) *Selector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selectors[destination]
}

// Route matches msg received on destination and returns the output
// message of the selected contract. The output is nil for contracts that
// only consume. Unmatched messages go to the fallback and yield ErrNoRoute.
func (r *Router) Route(ctx context.Context, destination string, msg *Message) (*Message, *contract.Contract, error) {
	sel := r.Selector(destination)
	if sel == nil {
		r.fallback(ctx, destination, msg)
		return nil, nil, fmt.Errorf("%w: no contracts listen on %s", ErrNoRoute, destination)
	}

	c, ok := sel.Select(msg)
	if !ok {
		r.log.DebugContext(ctx, "no contract matched", "destination", destination)
		r.fallback(ctx, destination, msg)
		return nil, nil, fmt.Errorf("%w: %s", ErrNoRoute, destination)
	}

	out, err := r.transformer.Transform(c)
	if err != nil {
		r.log.WarnContext(ctx, "failed to build output message", "contract", c.String(), "error", err)
		return nil, c, err
	}
	if out != nil {
		r.log.DebugContext(ctx, "routed message", "contract", c.String(), "from", destination, "to", out.Destination)
	}
	return out, c, nil
}

// Trigger produces the output of the contract whose label, name or
// triggeredBy method equals label. Only contracts without an inbound
// message can be triggered.
func (r *Router) Trigger(ctx context.Context, label string) (*Message, *contract.Contract, error) {
	r.mu.RLock()
	var found *contract.Contract
	for _, c := range r.contracts {
		if c == nil || c.Ignored || c.OutputMessage == nil {
			continue
		}
		if c.Input != nil && c.Input.MessageFrom != "" {
			continue
		}
		if c.Label == label || c.Name == label || (c.Input != nil && c.Input.TriggeredBy == label) {
			found = c
			break
		}
	}
	r.mu.RUnlock()

	if found == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoTrigger, label)
	}
	out, err := r.transformer.Transform(found)
	if err != nil {
		return nil, found, err
	}
	r.log.DebugContext(ctx, "triggered contract", "contract", found.String(), "to", out.Destination)
	return out, found, nil
}

// Labels lists the labels that Trigger accepts, in declaration order.
func (r *Router) Labels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, c := range r.contracts {
		if c == nil || c.Ignored || c.OutputMessage == nil || (c.Input != nil && c.Input.MessageFrom != "") {
			continue
		}
		switch {
		case c.Label != "":
			out = append(out, c.Label)
		case c.Input != nil && c.Input.TriggeredBy != "":
			out = append(out, c.Input.TriggeredBy)
		case c.Name != "":
			out = append(out, c.Name)
		}
	}
	return out
}
