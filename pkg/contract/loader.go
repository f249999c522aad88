package contract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Sentinel errors for contract loading.
var (
	ErrInvalidYAML  = errors.New("invalid YAML contract")
	ErrNotDirectory = errors.New("path is not a directory")
)

// DefaultPattern selects contract files below a directory.
const DefaultPattern = "**/*.{yml,yaml}"

// ParseYAML parses every document of a YAML contract file. source names the
// file and is used to resolve bodyFromFile references and default names.
func ParseYAML(data []byte, source string) ([]*Contract, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	mp := &mapper{}
	if source != "" {
		mp.dir = filepath.Dir(source)
	}

	var docs []*yamlContract
	for i := 0; ; i++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
		}
		if err := validateDocument(&node); err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", ErrInvalidYAML, i, err)
		}
		var y yamlContract
		if err := node.Decode(&y); err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", ErrInvalidYAML, i, err)
		}
		docs = append(docs, &y)
	}

	contracts := make([]*Contract, 0, len(docs))
	for i, y := range docs {
		c, err := mp.contract(y)
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", ErrInvalidContract, i, err)
		}
		c.Source = source
		if c.Name == "" {
			c.Name = defaultName(source, i, len(docs))
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("contract %q: %w", c.Name, err)
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}

func defaultName(source string, index, total int) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if source == "" {
		base = "contract"
	}
	if total > 1 {
		return fmt.Sprintf("%s_%d", base, index)
	}
	return base
}

// LoadFile reads all contracts of one YAML file.
func LoadFile(path string) ([]*Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read contract file: %w", err)
	}
	return ParseYAML(data, path)
}

// LoadResult contains the result of loading a directory.
type LoadResult struct {
	// Contracts in file order, then document order.
	Contracts []*Contract

	// FileCount is the number of files processed.
	FileCount int

	// Errors are the files that failed to load.
	Errors []LoadError
}

// LoadError represents an error loading a specific file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadDir loads every file below dir that matches pattern (DefaultPattern
// when empty). Files are visited in lexical order so that declaration order
// is stable across runs. A file that fails to load is reported in
// LoadResult.Errors and does not stop the scan.
func LoadDir(dir, pattern string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, dir)
		}
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	files, err := FindFiles(dir, pattern)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	for _, file := range files {
		contracts, err := LoadFile(file)
		if err != nil {
			result.Errors = append(result.Errors, LoadError{Path: file, Err: err})
			continue
		}
		result.Contracts = append(result.Contracts, contracts...)
		result.FileCount++
	}
	return result, nil
}

// FindFiles returns the files below dir matching pattern, sorted.
func FindFiles(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	files, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(files)
	for i, f := range files {
		files[i] = filepath.Join(dir, filepath.FromSlash(f))
	}
	return files, nil
}
