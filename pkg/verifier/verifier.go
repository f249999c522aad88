// Package verifier checks what a producer actually emitted against the test
// side of its contracts. It is meant to be called from Go tests:
//
//	func TestOrderAccepted(t *testing.T) {
//		out := produceAck(t)
//		verifier.Message(t, acceptedContract, out)
//	}
//
// Unlike message routing, verification evaluates by_command assertions.
package verifier

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/getmockd/contractd/internal/jsonpaths"
	"github.com/getmockd/contractd/internal/matching"
	"github.com/getmockd/contractd/pkg/contract"
	"github.com/getmockd/contractd/pkg/messaging"
)

// ErrNothingToVerify is returned when a contract declares no output for the
// requested kind of verification.
var ErrNothingToVerify = errors.New("contract declares nothing to verify")

type options struct {
	funcs  map[string]any
	arrays jsonpaths.ArrayMode
	nulls  jsonpaths.NullPolicy
	log    *slog.Logger
}

// Option configures a Verifier.
type Option func(*options)

// WithFunctions adds functions callable from by_command expressions.
func WithFunctions(funcs map[string]any) Option {
	return func(o *options) {
		if o.funcs == nil {
			o.funcs = make(map[string]any, len(funcs))
		}
		for k, v := range funcs {
			o.funcs[k] = v
		}
	}
}

// WithArrayMode selects how array bodies are verified.
func WithArrayMode(m jsonpaths.ArrayMode) Option {
	return func(o *options) { o.arrays = m }
}

// WithNullPolicy selects whether an absent path satisfies a null assertion.
func WithNullPolicy(p jsonpaths.NullPolicy) Option {
	return func(o *options) { o.nulls = p }
}

// WithLogger sets the logger for mismatch diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// Verifier checks producer output against contracts.
type Verifier struct {
	engine *matching.Engine
}

// New creates a Verifier.
func New(opts ...Option) *Verifier {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Verifier{engine: matching.New(
		matching.WithArrayMode(o.arrays),
		matching.WithNullPolicy(o.nulls),
		matching.WithCommands(matching.NewCommands(o.funcs).Func()),
		matching.WithLogger(o.log),
	)}
}

// VerifyMessage checks an output message: its destination, headers and body.
func (v *Verifier) VerifyMessage(c *contract.Contract, actual *messaging.Message) (*matching.Result, error) {
	if c.OutputMessage == nil {
		return nil, fmt.Errorf("%w: %s has no output message", ErrNothingToVerify, c)
	}
	if actual == nil {
		return nil, fmt.Errorf("contract %s: no message was produced", c)
	}

	res, err := v.engine.Match(matching.OutputOf(c), matching.Candidate{Headers: actual.Headers, Payload: actual.Payload})
	if err != nil {
		return nil, err
	}
	if want := c.OutputMessage.SentTo; want != "" && actual.Destination != "" && actual.Destination != want {
		prepend(res, matching.FieldResult{
			Field:    "destination",
			Expected: want,
			Actual:   actual.Destination,
			Reason:   fmt.Sprintf("message was supposed to be sent to [%s] but was sent to [%s]", want, actual.Destination),
		})
	}
	return res, nil
}

// VerifyResponse checks an HTTP response: its status, headers and body.
func (v *Verifier) VerifyResponse(c *contract.Contract, status int, headers map[string]any, body any) (*matching.Result, error) {
	if c.Response == nil {
		return nil, fmt.Errorf("%w: %s has no response", ErrNothingToVerify, c)
	}

	res, err := v.engine.Match(matching.ResponseOf(c), matching.Candidate{Headers: headers, Payload: body})
	if err != nil {
		return nil, err
	}
	if want := c.Response.Status; want != 0 && status != want {
		prepend(res, matching.FieldResult{
			Field:    "status",
			Expected: want,
			Actual:   status,
			Reason:   fmt.Sprintf("status was supposed to be [%d] but was [%d]", want, status),
		})
	}
	return res, nil
}

func prepend(res *matching.Result, f matching.FieldResult) {
	res.Fields = append([]matching.FieldResult{f}, res.Fields...)
	res.Unmatched = append([]string{f.Reason}, res.Unmatched...)
	res.Matched = false
}

// Message verifies actual against c and reports every mismatch on t.
// It returns whether the message satisfied the contract.
func Message(t testing.TB, c *contract.Contract, actual *messaging.Message, opts ...Option) bool {
	t.Helper()
	res, err := New(opts...).VerifyMessage(c, actual)
	return report(t, c, res, err)
}

// Response verifies an HTTP response against c and reports every mismatch
// on t.
func Response(t testing.TB, c *contract.Contract, status int, headers map[string]any, body any, opts ...Option) bool {
	t.Helper()
	res, err := New(opts...).VerifyResponse(c, status, headers, body)
	return report(t, c, res, err)
}

func report(t testing.TB, c *contract.Contract, res *matching.Result, err error) bool {
	t.Helper()
	if err != nil {
		t.Errorf("contract [%s]: %v", c, err)
		return false
	}
	for _, reason := range res.Unmatched {
		t.Errorf("contract [%s]: %s", c, reason)
	}
	return res.Matched
}
