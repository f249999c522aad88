package verifier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/contractd/pkg/contract"
	"github.com/getmockd/contractd/pkg/messaging"
)

// recorder captures failures instead of failing the running test.
type recorder struct {
	testing.TB
	errors []string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func acceptedContract() *contract.Contract {
	return &contract.Contract{
		Name: "order accepted",
		OutputMessage: &contract.OutputMessage{
			SentTo: "orders.out",
			Headers: contract.Params{
				{Name: "contentType", Value: contract.NewValue("application/json", contract.MustRegex("application/json.*"))},
			},
			Body: map[string]any{
				"orderId": contract.NewValue("1", contract.MustRegex(contract.PatternUUID)),
				"amount":  contract.NewValue(10, contract.Execution{Command: "$it > 0"}),
				"note":    nil,
			},
			BodyMatchers: contract.BodyMatchers{
				{Path: "$.createdAt", Type: contract.MatchTimestamp},
			},
		},
	}
}

func TestMessage(t *testing.T) {
	headers := map[string]any{"contentType": "application/json;charset=UTF-8"}

	tests := []struct {
		name    string
		msg     *messaging.Message
		want    bool
		nErrors int
	}{
		{
			name: "valid",
			msg: messaging.NewMessage("orders.out",
				`{"orderId":"8c1a2b3c-0d4e-4f56-8a7b-9c0d1e2f3a4b","amount":5,"note":null,"createdAt":"2024-05-01T10:00:00"}`, headers),
			want: true,
		},
		{
			name: "command and pattern failures are all reported",
			msg: messaging.NewMessage("orders.out",
				`{"orderId":"nope","amount":-5,"createdAt":"yesterday"}`, headers),
			nErrors: 3,
		},
		{
			name: "wrong destination",
			msg: messaging.NewMessage("elsewhere",
				`{"orderId":"8c1a2b3c-0d4e-4f56-8a7b-9c0d1e2f3a4b","amount":5,"createdAt":"2024-05-01T10:00:00"}`, headers),
			nErrors: 1,
		},
		{
			name:    "missing header",
			msg:     messaging.NewMessage("orders.out", `{}`, nil),
			nErrors: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{TB: t}
			got := Message(rec, acceptedContract(), tt.msg)
			assert.Equal(t, tt.want, got, rec.errors)
			assert.Len(t, rec.errors, tt.nErrors, rec.errors)
		})
	}
}

func TestMessage_CustomFunctions(t *testing.T) {
	c := &contract.Contract{
		Name: "custom",
		OutputMessage: &contract.OutputMessage{
			SentTo: "out",
			Body:   map[string]any{"code": contract.NewValue("AB", contract.Execution{Command: "isCode($it)"})},
		},
	}
	isCode := WithFunctions(map[string]any{"isCode": func(v any) bool { return v == "XY" }})

	rec := &recorder{TB: t}
	assert.True(t, Message(rec, c, messaging.NewMessage("out", `{"code":"XY"}`, nil), isCode))
	assert.False(t, Message(rec, c, messaging.NewMessage("out", `{"code":"AB"}`, nil), isCode))
	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "$['code']")
}

func TestMessage_NothingToVerify(t *testing.T) {
	rec := &recorder{TB: t}
	c := &contract.Contract{Name: "consumer", Input: &contract.Input{MessageFrom: "in"}}
	assert.False(t, Message(rec, c, messaging.NewMessage("out", "", nil)))
	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "nothing to verify")
}

func TestResponse(t *testing.T) {
	c := &contract.Contract{
		Name:    "get book",
		Request: &contract.Request{Method: contract.Single("GET"), URL: ptr(contract.Single("/books/1"))},
		Response: &contract.Response{
			Status: 200,
			Headers: contract.Params{
				{Name: "Content-Type", Value: contract.Single("application/json")},
			},
			Body: map[string]any{"title": "Dune", "tags": []any{"sf", "classic"}},
		},
	}
	headers := map[string]any{"Content-Type": []string{"application/json"}}

	rec := &recorder{TB: t}
	assert.True(t, Response(rec, c, 200, headers, []byte(`{"title":"Dune","tags":["classic","sf"]}`)))
	assert.Empty(t, rec.errors)

	assert.False(t, Response(rec, c, 404, headers, []byte(`{"title":"Dune","tags":["sf"]}`)))
	require.Len(t, rec.errors, 2)
	assert.Contains(t, rec.errors[0], "status was supposed to be [200] but was [404]")
	assert.Contains(t, rec.errors[1], "classic")
}

func ptr[T any](v T) *T { return &v }
