// Package messaging routes inbound messages to the messaging contracts that
// describe them and builds the output messages those contracts declare.
//
// A Selector picks the first contract, in declaration order, whose input
// matches a message. A Transformer builds the contract's output message. A
// Router ties both together per destination.
package messaging

import (
	"strings"

	"github.com/getmockd/contractd/internal/matching"
)

// Header names set on output messages.
const (
	HeaderID          = "id"
	HeaderContentType = "contentType"
)

// Message is a transport message. Selectors remember their decision per
// *Message, so the same instance passing through several pipeline stages
// is matched only once.
type Message struct {
	// Destination is where an output message is sent. It is informational
	// on inbound messages.
	Destination string
	Headers     map[string]any
	Payload     any
}

// NewMessage creates a message. A nil header map is replaced by an empty one.
func NewMessage(destination string, payload any, headers map[string]any) *Message {
	if headers == nil {
		headers = make(map[string]any)
	}
	return &Message{Destination: destination, Headers: headers, Payload: payload}
}

// Header returns a header by exact name, falling back to a case-insensitive
// lookup.
func (m *Message) Header(name string) (any, bool) {
	if v, ok := m.Headers[name]; ok {
		return v, true
	}
	for k, v := range m.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// HeaderString returns a header as text, decoding byte values.
func (m *Message) HeaderString(name string) string {
	v, _ := m.Header(name)
	return matching.HeaderString(v, true)
}

// Bytes returns the payload as raw bytes.
func (m *Message) Bytes() []byte {
	switch t := m.Payload.(type) {
	case []byte:
		return t
	case string:
		return []byte(t)
	case nil:
		return nil
	}
	data, err := encodePayload(m.Payload)
	if err != nil {
		return nil
	}
	return data
}

func (m *Message) candidate() matching.Candidate {
	return matching.Candidate{Headers: m.Headers, Payload: m.Payload}
}
