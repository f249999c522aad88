package messaging

import (
	"log/slog"
	"sync"

	"github.com/getmockd/contractd/internal/matching"
	"github.com/getmockd/contractd/pkg/contract"
	"github.com/getmockd/contractd/pkg/logging"
)

// Selector matches inbound messages for one destination against an ordered
// list of contracts. The first contract whose input matches wins; priority
// is not consulted. Selectors are safe for concurrent use.
type Selector struct {
	mu        sync.RWMutex
	contracts []*contract.Contract
	engine    *matching.Engine
	log       *slog.Logger
	cache     identityCache
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithEngine sets the matching engine. The default engine skips by_command
// assertions.
func WithEngine(e *matching.Engine) SelectorOption {
	return func(s *Selector) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithSelectorLogger sets the logger.
func WithSelectorLogger(log *slog.Logger) SelectorOption {
	return func(s *Selector) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSelector creates a selector over contracts in the given order.
// Contracts without an inbound message, and ignored ones, are never
// selected.
func NewSelector(contracts []*contract.Contract, opts ...SelectorOption) *Selector {
	s := &Selector{log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = matching.New(matching.WithLogger(s.log))
	}
	s.add(contracts...)
	return s
}

// add appends contracts after the existing ones. Remembered decisions stay
// valid: an earlier contract that matched still comes first.
func (s *Selector) add(contracts ...*contract.Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range contracts {
		if c == nil || c.Input == nil || c.Input.MessageFrom == "" {
			continue
		}
		if c.Ignored {
			s.log.Debug("skipping ignored contract", "contract", c.String())
			continue
		}
		s.contracts = append(s.contracts, c)
	}
}

// Contracts returns the selectable contracts in evaluation order.
func (s *Selector) Contracts() []*contract.Contract {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*contract.Contract(nil), s.contracts...)
}

// Select returns the first contract whose input matches msg. The decision
// is remembered for msg until it is garbage collected.
func (s *Selector) Select(msg *Message) (*contract.Contract, bool) {
	if msg == nil {
		return nil, false
	}
	if c, ok := s.cache.load(msg); ok {
		return c, true
	}
	for _, c := range s.Contracts() {
		res, err := s.engine.Match(matching.InputOf(c), msg.candidate())
		if err != nil {
			s.log.Warn("contract cannot be matched", "contract", c.String(), "error", err)
			continue
		}
		if res.Matched {
			s.log.Debug("message matched contract", "contract", c.String())
			s.cache.store(msg, c)
			return c, true
		}
	}
	return nil, false
}

// Matched returns the contract previously selected for msg without
// matching again.
func (s *Selector) Matched(msg *Message) (*contract.Contract, bool) {
	return s.cache.load(msg)
}

// Remember records c as the contract selected for msg, for transports
// that decide outside of Select.
func (s *Selector) Remember(msg *Message, c *contract.Contract) {
	if msg == nil || c == nil {
		return
	}
	s.cache.store(msg, c)
}

// Forget drops the remembered decision for msg.
func (s *Selector) Forget(msg *Message) {
	s.cache.forget(msg)
}

// Cached returns the number of remembered decisions.
func (s *Selector) Cached() int {
	return s.cache.len()
}
