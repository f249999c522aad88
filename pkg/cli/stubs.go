package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/contractd/pkg/cli/internal/output"
	"github.com/getmockd/contractd/pkg/stubs"
)

var (
	stubsFormat string
	stubsOut    string
)

// StubsOutput is the JSON form of a generation run.
type StubsOutput struct {
	Format  string   `json:"format"`
	Files   int      `json:"files"`
	Written []string `json:"written"`
	Skipped []string `json:"skipped,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

var stubsCmd = &cobra.Command{
	Use:   "stubs",
	Short: "Generate stubs from HTTP contracts",
}

var stubsGenerateCmd = &cobra.Command{
	Use:   "generate [path]",
	Short: "Convert every HTTP contract into a stub mapping",
	Long: `Convert every HTTP contract below path (default: contracts.dir) into a stub
mapping under --out (default: stubs.dir), mirroring the directory layout.
Messaging contracts are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := stubs.DefaultRegistry()

		format := stubsFormat
		if format == "" {
			format = cfg.Stubs.Format
		}
		gen, err := registry.Get(format)
		if err != nil {
			return fmt.Errorf("%w (available: %s)", err, strings.Join(registry.Names(), ", "))
		}
		out := stubsOut
		if out == "" {
			out = cfg.Stubs.Dir
		}

		cv := &stubs.Converter{Generator: gen, Pattern: cfg.Contracts.Include, Log: componentLogger("stubs")}
		report, err := cv.Convert(cmd.Context(), contractsPath(args), out)
		if err != nil {
			return err
		}

		res := StubsOutput{Format: gen.Name(), Files: report.Files, Written: report.Written, Skipped: report.Skipped}
		for _, e := range report.Errors {
			res.Errors = append(res.Errors, e.Error())
		}

		if jsonOutput {
			if err := output.JSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
		} else {
			for _, path := range res.Written {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", path)
			}
			for _, e := range res.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s\n", e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d stub(s) written from %d file(s), %d contract(s) skipped\n",
				len(res.Written), res.Files, len(res.Skipped))
		}

		if len(res.Errors) > 0 {
			return fmt.Errorf("%d contract(s) could not be converted", len(res.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stubsCmd)
	stubsCmd.AddCommand(stubsGenerateCmd)
	stubsGenerateCmd.Flags().StringVarP(&stubsFormat, "format", "f", "", "Stub format (default: stubs.format)")
	stubsGenerateCmd.Flags().StringVarP(&stubsOut, "out", "o", "", "Output directory (default: stubs.dir)")
}
