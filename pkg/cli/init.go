package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/getmockd/contractd/pkg/cli/internal/output"
	"github.com/getmockd/contractd/pkg/config"
)

var (
	initContracts string
	initStubs     string
	initFormat    string
	initForce     bool
	initNoSample  bool
)

// sampleContract is written into a fresh contracts directory.
const sampleContract = `# Answer a new order with an acceptance event.
name: order accepted
input:
  messageFrom: orders
  messageHeaders:
    eventType: created
  messageBody:
    id: 1
    status: NEW
  matchers:
    body:
      - path: $.id
        type: by_regex
        predefined: number
outputMessage:
  sentTo: orders/accepted
  headers:
    contentType: application/json
  body:
    id: 1
    accepted: true
`

// InitOutput is the JSON form of an init run.
type InitOutput struct {
	Config   string `json:"config"`
	Contract string `json:"contract,omitempty"`
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter contractd configuration",
	Long: `Write contractd.yaml (or contractd.json) in the working directory and a
sample messaging contract in the contracts directory.

When run in a terminal without flags, the settings are asked for interactively.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !anyChanged(cmd, "contracts", "stubs", "format") && isTerminal(cmd.InOrStdin()) {
			if err := initForm(); err != nil {
				return err
			}
		}

		var name string
		switch initFormat {
		case "yaml":
			name = config.DefaultFileNames[0]
		case "json":
			name = "contractd.json"
		default:
			return fmt.Errorf("unknown format %q (yaml, json)", initFormat)
		}
		if !initForce {
			if existing := config.Find("."); existing != "" {
				return fmt.Errorf("%s already exists (use --force to overwrite)", existing)
			}
		}

		c := config.Default()
		c.Contracts.Dir = initContracts
		c.Stubs.Dir = initStubs
		if err := c.Validate(); err != nil {
			return err
		}
		if err := config.SaveToFile(name, c); err != nil {
			return err
		}
		out := InitOutput{Config: name}

		if !initNoSample {
			path, err := writeSample(initContracts)
			if err != nil {
				return err
			}
			out.Contract = path
		}

		if jsonOutput {
			return output.JSON(cmd.OutOrStdout(), out)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ wrote %s\n", out.Config)
		if out.Contract != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ wrote %s\n", out.Contract)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "\nNext: contractd validate && contractd mqtt serve")
		return nil
	},
}

func initForm() error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Where do your contracts live?").
				Value(&initContracts).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("contracts directory is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Where should generated stubs go?").
				Value(&initStubs).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("stubs directory is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Config file format").
				Options(
					huh.NewOption("YAML", "yaml"),
					huh.NewOption("JSON", "json"),
				).
				Value(&initFormat),
		),
	)
	return form.Run()
}

// writeSample adds the sample contract unless the directory already holds
// one with the same name.
func writeSample(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, "order_accepted.yml")
	if _, err := os.Stat(path); err == nil && !initForce {
		return "", nil
	}
	if err := os.WriteFile(path, []byte(sampleContract), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initContracts, "contracts", "contracts", "Contracts directory")
	initCmd.Flags().StringVar(&initStubs, "stubs", "stubs", "Stub output directory")
	initCmd.Flags().StringVar(&initFormat, "format", "yaml", "Config file format: yaml or json")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration")
	initCmd.Flags().BoolVar(&initNoSample, "no-sample", false, "Do not write the sample contract")
}
