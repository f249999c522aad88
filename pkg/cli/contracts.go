package cli

import (
	"fmt"
	"os"

	"github.com/getmockd/contractd/pkg/contract"
)

// contractsPath returns the positional path argument or the configured
// contracts directory.
func contractsPath(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfg.Contracts.Dir
}

// loadContracts reads a single contract file or every contract below a
// directory. Files that fail to load are returned alongside the contracts
// that did.
func loadContracts(path string) ([]*contract.Contract, []contract.LoadError, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", contract.ErrFileNotFound, path)
		}
		return nil, nil, err
	}
	if !info.IsDir() {
		contracts, err := contract.LoadFile(path)
		if err != nil {
			return nil, []contract.LoadError{{Path: path, Err: err}}, nil
		}
		return contracts, nil, nil
	}

	res, err := contract.LoadDir(path, cfg.Contracts.Include)
	if err != nil {
		return nil, nil, err
	}
	return res.Contracts, res.Errors, nil
}

// mustLoadContracts is loadContracts for commands that refuse to run on a
// partially broken contract set.
func mustLoadContracts(path string) ([]*contract.Contract, error) {
	contracts, failed, err := loadContracts(path)
	if err != nil {
		return nil, err
	}
	if len(failed) > 0 {
		return nil, fmt.Errorf("%d contract file(s) failed to load, first: %w", len(failed), &failed[0])
	}
	return contracts, nil
}

// findContract selects a contract by name, or the only one when name is empty.
func findContract(contracts []*contract.Contract, name string) (*contract.Contract, error) {
	if name == "" {
		if len(contracts) == 1 {
			return contracts[0], nil
		}
		return nil, fmt.Errorf("%d contracts found, select one with --name", len(contracts))
	}
	for _, c := range contracts {
		if c.Name == name || c.Label == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no contract named %q", name)
}
