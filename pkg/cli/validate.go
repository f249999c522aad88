package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/contractd/pkg/cli/internal/output"
)

// ErrInvalidContracts is returned when validation finds broken files.
var ErrInvalidContracts = errors.New("contract validation failed")

// ValidateOutput is the JSON form of a validation run.
type ValidateOutput struct {
	Valid     bool            `json:"valid"`
	Contracts []ContractInfo  `json:"contracts"`
	Errors    []ValidateError `json:"errors,omitempty"`
}

// ContractInfo summarizes a loaded contract.
type ContractInfo struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Source string `json:"source"`
}

// ValidateError is a file that failed to load.
type ValidateError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate contract files",
	Long: `Parse and validate every contract file below path (default: contracts.dir).

Each file is checked against the contract document schema, then every contract
is checked for its own invariants, such as matcher paths that must parse and
regular expressions that must compile.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contracts, failed, err := loadContracts(contractsPath(args))
		if err != nil {
			return err
		}

		out := ValidateOutput{Valid: len(failed) == 0}
		for _, c := range contracts {
			kind := "http"
			if c.IsMessaging() {
				kind = "messaging"
			}
			out.Contracts = append(out.Contracts, ContractInfo{Name: c.Name, Kind: kind, Source: c.Source})
		}
		for _, f := range failed {
			out.Errors = append(out.Errors, ValidateError{Path: f.Path, Error: f.Err.Error()})
		}

		if jsonOutput {
			if err := output.JSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
		} else {
			w := output.Table(cmd.OutOrStdout())
			fmt.Fprintln(w, "NAME\tKIND\tSOURCE")
			for _, c := range out.Contracts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Kind, c.Source)
			}
			_ = w.Flush()
			for _, e := range out.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s: %s\n", e.Path, e.Error)
			}
			if out.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %d contract(s) valid\n", len(out.Contracts))
			}
		}

		if !out.Valid {
			return fmt.Errorf("%w: %d file(s)", ErrInvalidContracts, len(out.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
