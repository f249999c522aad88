package matching

import (
	"context"
	"log/slog"

	"github.com/getmockd/contractd/internal/jsonpaths"
	"github.com/getmockd/contractd/pkg/contract"
	"github.com/getmockd/contractd/pkg/logging"
)

// Expectation is one side of a contract reduced to what matching needs.
type Expectation struct {
	// Name identifies the contract in diagnostics.
	Name     string
	Side     contract.Side
	Headers  contract.Params
	Body     any
	Matchers contract.BodyMatchers
}

// InputOf returns the stub-side expectation of a messaging contract's input.
func InputOf(c *contract.Contract) Expectation {
	exp := Expectation{Name: c.String(), Side: contract.Stub}
	if c.Input != nil {
		exp.Headers = c.Input.MessageHeaders
		exp.Body = c.Input.MessageBody
		exp.Matchers = c.Input.BodyMatchers
	}
	return exp
}

// OutputOf returns the test-side expectation of a contract's output message.
func OutputOf(c *contract.Contract) Expectation {
	exp := Expectation{Name: c.String(), Side: contract.Test}
	if c.OutputMessage != nil {
		exp.Headers = c.OutputMessage.Headers
		exp.Body = c.OutputMessage.Body
		exp.Matchers = c.OutputMessage.BodyMatchers
	}
	return exp
}

// RequestOf returns the stub-side expectation of an HTTP request.
func RequestOf(c *contract.Contract) Expectation {
	exp := Expectation{Name: c.String(), Side: contract.Stub}
	if c.Request != nil {
		exp.Headers = c.Request.Headers
		exp.Body = c.Request.Body
		exp.Matchers = c.Request.BodyMatchers
	}
	return exp
}

// ResponseOf returns the test-side expectation of an HTTP response.
func ResponseOf(c *contract.Contract) Expectation {
	exp := Expectation{Name: c.String(), Side: contract.Test}
	if c.Response != nil {
		exp.Headers = c.Response.Headers
		exp.Body = c.Response.Body
		exp.Matchers = c.Response.BodyMatchers
	}
	return exp
}

// Candidate is a concrete message: transport headers and a payload that is
// either raw ([]byte, string) or already structured.
type Candidate struct {
	Headers map[string]any
	Payload any
}

// Engine matches candidates against expectations. It holds no per-call
// state and is safe for concurrent use.
type Engine struct {
	arrays   jsonpaths.ArrayMode
	nulls    jsonpaths.NullPolicy
	commands jsonpaths.CommandFunc
	unquote  bool
	log      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithArrayMode selects how array bodies are turned into assertions.
func WithArrayMode(m jsonpaths.ArrayMode) Option {
	return func(e *Engine) { e.arrays = m }
}

// WithNullPolicy selects whether an absent path satisfies a null assertion.
func WithNullPolicy(p jsonpaths.NullPolicy) Option {
	return func(e *Engine) { e.nulls = p }
}

// WithCommands enables by_command evaluation. Without it command
// assertions are skipped, which is what message routing wants.
func WithCommands(fn jsonpaths.CommandFunc) Option {
	return func(e *Engine) { e.commands = fn }
}

// WithHeaderUnquote toggles stripping one layer of surrounding double
// quotes from byte header values. Enabled by default: some transports
// serialize string headers as JSON strings.
func WithHeaderUnquote(enabled bool) Option {
	return func(e *Engine) { e.unquote = enabled }
}

// WithLogger sets the logger used for mismatch diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		unquote: true,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Match verifies the candidate against exp. The returned error is only set
// when the contract itself is broken; a mismatch is reported through
// Result.Matched.
func (e *Engine) Match(exp Expectation, cand Candidate) (*Result, error) {
	res := &Result{Contract: exp.Name}

	if !e.matchHeaders(res, exp, cand.Headers) {
		e.logMismatch(res)
		return res.finish(), nil
	}

	if err := e.matchBody(res, exp, cand); err != nil {
		return nil, err
	}

	res.finish()
	if !res.Matched {
		e.logMismatch(res)
	}
	return res, nil
}

// Matches is a convenience wrapper that treats contract errors as a
// mismatch and logs them.
func (e *Engine) Matches(exp Expectation, cand Candidate) bool {
	res, err := e.Match(exp, cand)
	if err != nil {
		e.log.Warn("contract cannot be matched", "contract", exp.Name, "error", err)
		return false
	}
	return res.Matched
}

func (e *Engine) logMismatch(res *Result) {
	if !e.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, f := range res.Failed() {
		e.log.Debug("unmatched", "contract", res.Contract, "path", f.Field, "reason", f.Reason)
	}
}

func (e *Engine) evaluator() jsonpaths.Evaluator {
	return jsonpaths.Evaluator{Nulls: e.nulls, Commands: e.commands}
}
