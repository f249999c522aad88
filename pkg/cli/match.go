package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/contractd/internal/matching"
	"github.com/getmockd/contractd/pkg/cli/internal/output"
	"github.com/getmockd/contractd/pkg/messaging"
)

var (
	matchContracts   string
	matchPayload     string
	matchPayloadFile string
	matchHeaders     []string
)

// MatchOutput is the JSON form of a match run.
type MatchOutput struct {
	Destination string             `json:"destination"`
	Matched     string             `json:"matched,omitempty"`
	Output      *MatchMessage      `json:"output,omitempty"`
	Results     []*matching.Result `json:"results"`
}

// MatchMessage is an output message.
type MatchMessage struct {
	Destination string            `json:"destination"`
	Headers     map[string]string `json:"headers,omitempty"`
	Payload     string            `json:"payload"`
}

var matchCmd = &cobra.Command{
	Use:   "match <destination>",
	Short: "Show which messaging contract a message would select",
	Long: `Match a message received on destination against every contract listening
there, in declaration order, and print why each one did or did not match.
The first matching contract wins; its output message is printed.`,
	Example: `  contractd match orders --payload '{"id":1,"status":"NEW"}' --header eventType=created
  contractd match orders --payload-file order.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		destination := args[0]

		payload, err := readPayload(cmd.InOrStdin())
		if err != nil {
			return err
		}
		headers, err := parseHeaders(matchHeaders)
		if err != nil {
			return err
		}

		path := matchContracts
		if path == "" {
			path = cfg.Contracts.Dir
		}
		contracts, err := mustLoadContracts(path)
		if err != nil {
			return err
		}

		opts, err := cfg.EngineOptions()
		if err != nil {
			return err
		}
		engine := matching.New(append(opts, matching.WithLogger(componentLogger("matching")))...)
		router := messaging.NewRouter(contracts,
			messaging.WithRouterEngine(engine),
			messaging.WithRouterLogger(componentLogger("router")))

		sel := router.Selector(destination)
		if sel == nil {
			return fmt.Errorf("no contracts listen on %s (destinations: %s)",
				destination, strings.Join(router.Destinations(), ", "))
		}

		msg := messaging.NewMessage(destination, payload, headers)
		out := MatchOutput{Destination: destination}
		for _, c := range sel.Contracts() {
			res, err := engine.Match(matching.InputOf(c), matching.Candidate{Headers: msg.Headers, Payload: msg.Payload})
			if err != nil {
				return err
			}
			out.Results = append(out.Results, res)
		}

		routed, selected, err := router.Route(cmd.Context(), destination, msg)
		if err == nil {
			out.Matched = selected.String()
			if routed != nil {
				out.Output = &MatchMessage{Destination: routed.Destination, Payload: string(routed.Bytes())}
				out.Output.Headers = make(map[string]string, len(routed.Headers))
				for k := range routed.Headers {
					out.Output.Headers[k] = routed.HeaderString(k)
				}
			}
		}

		if jsonOutput {
			return output.JSON(cmd.OutOrStdout(), out)
		}

		w := cmd.OutOrStdout()
		for _, res := range out.Results {
			if res.Matched {
				fmt.Fprintf(w, "✓ %s\n", res.Contract)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n", res.Contract)
			for _, reason := range res.Unmatched {
				fmt.Fprintf(w, "    %s\n", reason)
			}
		}
		if out.Matched == "" {
			return fmt.Errorf("no contract matched the message on %s", destination)
		}
		fmt.Fprintf(w, "\nselected: %s\n", out.Matched)
		if out.Output != nil {
			fmt.Fprintf(w, "output to %s: %s\n", out.Output.Destination, out.Output.Payload)
		}
		return nil
	},
}

func readPayload(stdin io.Reader) (any, error) {
	switch {
	case matchPayloadFile == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload: %w", err)
		}
		return data, nil
	case matchPayloadFile != "":
		data, err := os.ReadFile(matchPayloadFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload: %w", err)
		}
		return data, nil
	}
	return matchPayload, nil
}

// parseHeaders parses repeated name=value flags.
func parseHeaders(values []string) (map[string]any, error) {
	headers := make(map[string]any, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected name=value", v)
		}
		headers[name] = value
	}
	return headers, nil
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().StringVar(&matchContracts, "contracts", "", "Contract file or directory (default: contracts.dir)")
	matchCmd.Flags().StringVarP(&matchPayload, "payload", "p", "", "Message payload")
	matchCmd.Flags().StringVar(&matchPayloadFile, "payload-file", "", "Read the payload from a file, - for stdin")
	matchCmd.Flags().StringArrayVarP(&matchHeaders, "header", "H", nil, "Message header as name=value (repeatable)")
}
