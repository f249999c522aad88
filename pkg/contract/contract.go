package contract

import (
	"fmt"
	"strings"
)

// Contract describes a single request/response or input/output message exchange.
type Contract struct {
	Name        string
	Description string
	Label       string
	Priority    int
	Ignored     bool
	InProgress  bool
	Metadata    map[string]any

	Request  *Request
	Response *Response

	Input         *Input
	OutputMessage *OutputMessage

	// Source is the file the contract was read from, if any.
	Source string
}

// IsHTTP reports whether c describes an HTTP interaction.
func (c *Contract) IsHTTP() bool { return c.Request != nil || c.Response != nil }

// IsMessaging reports whether c describes a messaging interaction.
func (c *Contract) IsMessaging() bool { return c.Input != nil || c.OutputMessage != nil }

func (c *Contract) String() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Label != "" {
		return c.Label
	}
	return c.Source
}

// Param is a named contract value such as a header, cookie or query parameter.
type Param struct {
	Name  string
	Value Value
}

// Params is an ordered list of named values.
type Params []Param

// Get finds a parameter by case-insensitive name.
func (p Params) Get(name string) (Param, bool) {
	for _, param := range p {
		if strings.EqualFold(param.Name, name) {
			return param, true
		}
	}
	return Param{}, false
}

// Side projects the parameters onto one side, keeping the embedded
// *Regex or Execution values as they are.
func (p Params) Side(side Side) map[string]any {
	out := make(map[string]any, len(p))
	for _, param := range p {
		out[param.Name] = param.Value.For(side)
	}
	return out
}

// ContentType returns the textual content type declared on the given side.
func (p Params) ContentType(side Side) string {
	param, ok := p.Get("Content-Type")
	if !ok {
		param, ok = p.Get("contentType")
	}
	if !ok {
		return ""
	}
	switch v := param.Value.For(side).(type) {
	case string:
		return v
	case *Regex:
		return v.Pattern()
	default:
		return fmt.Sprint(v)
	}
}

// Request is the HTTP request half of a contract.
type Request struct {
	Method          Value
	URL             *Value
	URLPath         *Value
	QueryParameters Params
	Headers         Params
	Cookies         Params
	Body            any
	BodyMatchers    BodyMatchers
}

// Response is the HTTP response half of a contract.
type Response struct {
	Status                 int
	Headers                Params
	Cookies                Params
	Body                   any
	BodyMatchers           BodyMatchers
	Async                  bool
	FixedDelayMilliseconds int
}

// Input describes what triggers a messaging contract: either an inbound
// message received from MessageFrom or a TriggeredBy method.
type Input struct {
	MessageFrom    string
	TriggeredBy    string
	AssertThat     string
	MessageHeaders Params
	MessageBody    any
	BodyMatchers   BodyMatchers
}

// OutputMessage is the message a contract produces.
type OutputMessage struct {
	SentTo       string
	Headers      Params
	Body         any
	BodyMatchers BodyMatchers
	AssertThat   string
}
