package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersYAML = `name: order accepted
input:
  messageFrom: orders
  messageHeaders:
    eventType: created
  messageBody:
    id: 1
    status: NEW
  matchers:
    body:
      - path: $.status
        type: by_regex
        value: "NEW|OPEN"
outputMessage:
  sentTo: orders/accepted
  headers:
    contentType: application/json
  body:
    id: 1
    accepted: true
---
name: order shipped
label: order_shipped
outputMessage:
  sentTo: orders/shipped
  body:
    id: 1
`

const bookYAML = `name: get book
request:
  method: GET
  url: /books/1
response:
  status: 200
  headers:
    Content-Type: application/json
  body:
    id: 1
    title: Dune
`

// execute runs the root command with fresh flag values and captures its
// output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// workspace changes into a temp dir holding the given files.
func workspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	t.Chdir(dir)
	return dir
}

func TestVersionCommand(t *testing.T) {
	workspace(t, nil)

	stdout, _, err := execute(t, "version", "--json")
	require.NoError(t, err)

	var out VersionOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, runtime.Version(), out.Go)
	assert.Equal(t, runtime.GOOS, out.OS)
	assert.NotEmpty(t, out.Version)
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid contracts", func(t *testing.T) {
		workspace(t, map[string]string{
			"contracts/orders.yml":     ordersYAML,
			"contracts/http/book.yaml": bookYAML,
		})

		stdout, _, err := execute(t, "validate")
		require.NoError(t, err)
		assert.Contains(t, stdout, "3 contract(s) valid")
		assert.Contains(t, stdout, "order shipped")
	})

	t.Run("json output", func(t *testing.T) {
		workspace(t, map[string]string{"contracts/orders.yml": ordersYAML})

		stdout, _, err := execute(t, "validate", "contracts", "--json")
		require.NoError(t, err)

		var out ValidateOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.True(t, out.Valid)
		require.Len(t, out.Contracts, 2)
		assert.Equal(t, "order accepted", out.Contracts[0].Name)
		assert.Equal(t, "messaging", out.Contracts[0].Kind)
	})

	t.Run("broken file", func(t *testing.T) {
		workspace(t, map[string]string{
			"contracts/orders.yml": ordersYAML,
			"contracts/broken.yml": "name: [unclosed",
		})

		_, stderr, err := execute(t, "validate")
		require.ErrorIs(t, err, ErrInvalidContracts)
		assert.Contains(t, stderr, "broken.yml")
	})

	t.Run("missing directory", func(t *testing.T) {
		workspace(t, nil)

		_, _, err := execute(t, "validate", "nowhere")
		require.Error(t, err)
	})
}

func TestStubsGenerateCommand(t *testing.T) {
	dir := workspace(t, map[string]string{
		"contracts/http/book.yaml": bookYAML,
		"contracts/orders.yml":     ordersYAML,
	})

	stdout, _, err := execute(t, "stubs", "generate", "--json", "-o", "mappings")
	require.NoError(t, err)

	var out StubsOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "wiremock", out.Format)
	assert.Equal(t, 2, out.Files)
	require.Len(t, out.Written, 1)
	assert.Len(t, out.Skipped, 2)

	data, err := os.ReadFile(filepath.Join(dir, "mappings", "http", "get_book.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"/books/1"`)

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := execute(t, "stubs", "generate", "--format", "pact")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wiremock")
	})
}

func TestMatchCommand(t *testing.T) {
	workspace(t, map[string]string{"contracts/orders.yml": ordersYAML})

	t.Run("selects contract", func(t *testing.T) {
		stdout, _, err := execute(t, "match", "orders",
			"-p", `{"id":1,"status":"OPEN"}`,
			"-H", "eventType=created",
			"--json")
		require.NoError(t, err)

		var out MatchOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, "order accepted", out.Matched)
		require.NotNil(t, out.Output)
		assert.Equal(t, "orders/accepted", out.Output.Destination)
		assert.JSONEq(t, `{"id":1,"accepted":true}`, out.Output.Payload)
		require.Len(t, out.Results, 1)
		assert.True(t, out.Results[0].Matched)
	})

	t.Run("explains mismatch", func(t *testing.T) {
		stdout, _, err := execute(t, "match", "orders",
			"-p", `{"id":1,"status":"CLOSED"}`,
			"-H", "eventType=created")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no contract matched")
		assert.Contains(t, stdout, "✗ order accepted")
	})

	t.Run("unknown destination", func(t *testing.T) {
		_, _, err := execute(t, "match", "invoices", "-p", "{}")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "orders")
	})

	t.Run("invalid header", func(t *testing.T) {
		_, _, err := execute(t, "match", "orders", "-H", "novalue")
		require.Error(t, err)
	})
}

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		want    map[string]any
		wantErr bool
	}{
		{name: "empty", values: nil, want: map[string]any{}},
		{name: "pairs", values: []string{"a=1", "b=x=y"}, want: map[string]any{"a": "1", "b": "x=y"}},
		{name: "empty value", values: []string{"a="}, want: map[string]any{"a": ""}},
		{name: "missing separator", values: []string{"a"}, wantErr: true},
		{name: "missing name", values: []string{"=1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHeaders(tt.values)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathsCommand(t *testing.T) {
	workspace(t, map[string]string{"orders.yml": ordersYAML})

	t.Run("chain", func(t *testing.T) {
		stdout, _, err := execute(t, "paths", "orders.yml", "--name", "order accepted")
		require.NoError(t, err)
		assert.Contains(t, stdout, `assertThatJson(parsedJson).field("['accepted']").isEqualTo(true)`)
	})

	t.Run("filter on input", func(t *testing.T) {
		stdout, _, err := execute(t, "paths", "orders.yml", "-n", "order accepted", "--part", "input", "-f", "filter", "--json")
		require.NoError(t, err)

		var out []PathOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		var rendered []string
		for _, p := range out {
			rendered = append(rendered, p.Rendered)
		}
		assert.Contains(t, rendered, `$[?(@.status =~ /NEW|OPEN/)]`)
	})

	t.Run("ambiguous file", func(t *testing.T) {
		_, _, err := execute(t, "paths", "orders.yml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--name")
	})

	t.Run("missing part", func(t *testing.T) {
		_, _, err := execute(t, "paths", "orders.yml", "-n", "order_shipped", "--part", "input")
		require.Error(t, err)
	})
}

func TestInitCommand(t *testing.T) {
	dir := workspace(t, nil)

	stdout, _, err := execute(t, "init", "--contracts", "specs", "--stubs", "out")
	require.NoError(t, err)
	assert.Contains(t, stdout, "contractd.yaml")
	assert.FileExists(t, filepath.Join(dir, "contractd.yaml"))
	assert.FileExists(t, filepath.Join(dir, "specs", "order_accepted.yml"))

	// the written config and sample are picked up by later commands
	stdout, _, err = execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 contract(s) valid")

	_, _, err = execute(t, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, "init", "--force", "--format", "json", "--no-sample")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "contractd.json"))
}

func TestBrokerURL(t *testing.T) {
	assert.Equal(t, "tcp://localhost:1883", brokerURL("localhost:1883"))
	assert.Equal(t, "ssl://host:8883", brokerURL("ssl://host:8883"))
}
