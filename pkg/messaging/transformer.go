package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/getmockd/contractd/internal/convert"
	"github.com/getmockd/contractd/pkg/contract"
)

// Transformer builds the output message of a contract from its stub side.
type Transformer struct {
	newID func() string
}

// NewTransformer creates a Transformer that stamps every output message
// with a random id header.
func NewTransformer() *Transformer {
	return &Transformer{newID: uuid.NewString}
}

// Transform returns the output message declared by c, or nil when c only
// consumes messages. Patterns in the body and headers are replaced by
// example values; file references become their bytes.
func (t *Transformer) Transform(c *contract.Contract) (*Message, error) {
	if c == nil || c.OutputMessage == nil {
		return nil, nil
	}
	out := c.OutputMessage

	body, err := convert.Concrete(out.Body, contract.Stub)
	if err != nil {
		return nil, fmt.Errorf("contract %s: output body: %w", c, err)
	}
	payload, err := encodePayload(body)
	if err != nil {
		return nil, fmt.Errorf("contract %s: output body: %w", c, err)
	}

	headers := make(map[string]any, len(out.Headers)+1)
	for _, p := range out.Headers {
		v, err := convert.Concrete(p.Value, contract.Stub)
		if err != nil {
			return nil, fmt.Errorf("contract %s: header %s: %w", c, p.Name, err)
		}
		headers[p.Name] = v
	}
	if _, ok := headers[HeaderID]; !ok && t.newID != nil {
		headers[HeaderID] = t.newID()
	}

	return &Message{Destination: out.SentTo, Headers: headers, Payload: payload}, nil
}

// encodePayload turns a concrete body into bytes. Text and bytes are kept,
// anything else is serialized as JSON.
func encodePayload(body any) ([]byte, error) {
	switch t := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}
	return data, nil
}
