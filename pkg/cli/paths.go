package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/contractd/internal/convert"
	"github.com/getmockd/contractd/internal/jsonpaths"
	"github.com/getmockd/contractd/internal/matching"
	"github.com/getmockd/contractd/internal/render"
	"github.com/getmockd/contractd/internal/xpaths"
	"github.com/getmockd/contractd/pkg/cli/internal/output"
	"github.com/getmockd/contractd/pkg/contract"
)

var (
	pathsName   string
	pathsPart   string
	pathsFormat string
)

// PathOutput is one rendered assertion.
type PathOutput struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	Rendered string `json:"rendered,omitempty"`
	Error    string `json:"error,omitempty"`
}

var pathsCmd = &cobra.Command{
	Use:   "paths <contract-file>",
	Short: "Print the body assertions a contract generates",
	Long: `Print the assertions generated for one body of a contract: one per leaf of the
example body, minus those replaced by explicit matchers, plus the matchers.

--format chain renders JsonAssert chains as used in generated tests, --format
filter renders WireMock matchesJsonPath filters, --format path prints the raw
assertions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contracts, err := mustLoadContracts(args[0])
		if err != nil {
			return err
		}
		c, err := findContract(contracts, pathsName)
		if err != nil {
			return err
		}

		exp, err := selectPart(c, pathsPart)
		if err != nil {
			return err
		}
		assertions, err := buildAssertions(exp)
		if err != nil {
			return err
		}

		rendered := make([]PathOutput, 0, len(assertions))
		for _, a := range assertions {
			p := PathOutput{Path: a.Path, Kind: a.Kind.String()}
			var text string
			switch pathsFormat {
			case "chain":
				text, err = render.Chain(a)
			case "filter":
				text, err = render.FilterPath(a)
			case "path":
				text = a.String()
			default:
				return fmt.Errorf("unknown format %q (chain, filter, path)", pathsFormat)
			}
			if err != nil {
				if !errors.Is(err, render.ErrNotRepresentable) {
					return err
				}
				p.Error = err.Error()
			}
			p.Rendered = text
			rendered = append(rendered, p)
		}

		if jsonOutput {
			return output.JSON(cmd.OutOrStdout(), rendered)
		}
		for _, p := range rendered {
			if p.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", p.Error)
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.Rendered)
		}
		return nil
	},
}

// selectPart returns the expectation for one part of a contract. An empty
// part selects the side a producer test verifies.
func selectPart(c *contract.Contract, part string) (matching.Expectation, error) {
	if part == "" {
		part = "response"
		if c.IsMessaging() {
			part = "output"
		}
	}
	switch part {
	case "request":
		if c.Request != nil {
			return matching.RequestOf(c), nil
		}
	case "response":
		if c.Response != nil {
			return matching.ResponseOf(c), nil
		}
	case "input":
		if c.Input != nil {
			return matching.InputOf(c), nil
		}
	case "output":
		if c.OutputMessage != nil {
			return matching.OutputOf(c), nil
		}
	default:
		return matching.Expectation{}, fmt.Errorf("unknown part %q (request, response, input, output)", part)
	}
	return matching.Expectation{}, fmt.Errorf("contract %s has no %s", c, part)
}

func buildAssertions(exp matching.Expectation) ([]jsonpaths.Assertion, error) {
	if exp.Body == nil {
		return nil, nil
	}
	body, err := convert.Project(exp.Body, exp.Side)
	if err != nil {
		return nil, err
	}

	switch matching.ResolveContentType(exp.Headers, exp.Side, nil, body) {
	case matching.ContentXML:
		doc, err := xpaths.Parse(body)
		if err != nil {
			return nil, err
		}
		return xpaths.Build(doc, exp.Matchers)
	case matching.ContentJSON:
		switch body.(type) {
		case map[string]any, []any:
		default:
			if body, err = jsonpaths.ParseDocument(body); err != nil {
				return nil, err
			}
		}
		arrays, err := jsonpaths.ParseArrayMode(cfg.Matching.ArrayMode)
		if err != nil {
			return nil, err
		}
		return jsonpaths.Build(body, exp.Matchers, jsonpaths.Options{Arrays: arrays})
	}
	return nil, fmt.Errorf("contract %s: body is neither JSON nor XML", exp.Name)
}

func init() {
	rootCmd.AddCommand(pathsCmd)
	pathsCmd.Flags().StringVarP(&pathsName, "name", "n", "", "Contract name or label when the file holds several")
	pathsCmd.Flags().StringVar(&pathsPart, "part", "", "request, response, input or output (default: the verified side)")
	pathsCmd.Flags().StringVarP(&pathsFormat, "format", "f", "chain", "chain, filter or path")
}
