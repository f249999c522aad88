package contract

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidContract wraps every assembly-time validation failure.
var ErrInvalidContract = errors.New("invalid contract")

// ValidationError represents a validation failure with context.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidContract }

// ValidationErrors aggregates the failures of one contract.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() error { return ErrInvalidContract }

// Validate checks the invariants enforced when a contract is assembled.
func (c *Contract) Validate() error {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, &ValidationError{Field: field, Message: msg})
	}

	if c.IsHTTP() && c.IsMessaging() {
		add("contract", "a contract is either HTTP (request/response) or messaging (input/outputMessage)")
	}
	if !c.IsHTTP() && !c.IsMessaging() {
		add("contract", "request/response or input/outputMessage is required")
	}

	if c.IsHTTP() {
		switch {
		case c.Request == nil:
			add("request", "request is required for HTTP contracts")
		default:
			if c.Request.Method.IsZero() {
				add("request.method", "method is required")
			}
			if c.Request.URL == nil && c.Request.URLPath == nil {
				add("request.url", "url or urlPath is required")
			}
			if c.Request.URL != nil && c.Request.URLPath != nil {
				add("request.url", "url and urlPath are mutually exclusive")
			}
			for _, m := range c.Request.BodyMatchers {
				if m.Type == MatchCommand {
					add("request.matchers.body", "by_command is only allowed on the test side")
				}
			}
		}
		switch {
		case c.Response == nil:
			add("response", "response is required for HTTP contracts")
		case c.Response.Status == 0:
			add("response.status", "status is required")
		case c.Response.Status < 100 || c.Response.Status > 599:
			add("response.status", fmt.Sprintf("status %d is out of range", c.Response.Status))
		}
	}

	if c.Input != nil {
		if c.Input.MessageFrom == "" && c.Input.TriggeredBy == "" {
			add("input", "messageFrom or triggeredBy is required")
		}
		for _, m := range c.Input.BodyMatchers {
			if m.Type == MatchCommand {
				add("input.matchers.body", "by_command is only allowed on the test side")
			}
		}
	}
	if c.OutputMessage != nil && c.OutputMessage.SentTo == "" {
		add("outputMessage.sentTo", "sentTo is required")
	}

	for _, side := range []struct {
		field    string
		matchers BodyMatchers
	}{
		{"request.matchers.body", requestMatchers(c)},
		{"response.matchers.body", responseMatchers(c)},
		{"input.matchers.body", inputMatchers(c)},
		{"outputMessage.matchers.body", outputMatchers(c)},
	} {
		for _, m := range side.matchers {
			if err := validateMatcher(m); err != "" {
				add(side.field, err)
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateMatcher(m BodyMatcher) string {
	if m.Path == "" {
		return fmt.Sprintf("%s matcher requires a path", m.Type)
	}
	if m.Type == MatchRegex && m.Value == "" {
		return fmt.Sprintf("by_regex matcher at %s requires a value or predefined pattern", m.Path)
	}
	if m.Type == MatchCommand && m.Value == "" {
		return fmt.Sprintf("by_command matcher at %s requires a command", m.Path)
	}
	if m.MinOccurrence != nil && m.MaxOccurrence != nil && *m.MinOccurrence > *m.MaxOccurrence {
		return fmt.Sprintf("by_type matcher at %s has minOccurrence > maxOccurrence", m.Path)
	}
	return ""
}

func requestMatchers(c *Contract) BodyMatchers {
	if c.Request == nil {
		return nil
	}
	return c.Request.BodyMatchers
}

func responseMatchers(c *Contract) BodyMatchers {
	if c.Response == nil {
		return nil
	}
	return c.Response.BodyMatchers
}

func inputMatchers(c *Contract) BodyMatchers {
	if c.Input == nil {
		return nil
	}
	return c.Input.BodyMatchers
}

func outputMatchers(c *Contract) BodyMatchers {
	if c.OutputMessage == nil {
		return nil
	}
	return c.OutputMessage.BodyMatchers
}
