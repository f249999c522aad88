package stubs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/getmockd/contractd/pkg/contract"
	"github.com/getmockd/contractd/pkg/logging"
)

// Report summarizes a conversion run.
type Report struct {
	Files   int
	Written []string
	Skipped []string
	Errors  []error
}

// Converter walks a contracts directory and writes one stub per convertible
// contract, mirroring the directory layout under the output directory.
type Converter struct {
	Generator Generator
	// Pattern selects contract files; defaults to contract.DefaultPattern.
	Pattern string
	Log     *slog.Logger
}

// Convert converts every contract below srcDir into dstDir. Unreadable
// contract files and failing contracts are collected in the report;
// only problems with the directories themselves are returned as errors.
func (cv *Converter) Convert(ctx context.Context, srcDir, dstDir string) (*Report, error) {
	log := cv.Log
	if log == nil {
		log = logging.Nop()
	}
	pattern := cv.Pattern
	if pattern == "" {
		pattern = contract.DefaultPattern
	}

	files, err := contract.FindFiles(srcDir, pattern)
	if err != nil {
		return nil, err
	}

	report := &Report{Files: len(files)}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		contracts, err := contract.LoadFile(path)
		if err != nil {
			report.Errors = append(report.Errors, err)
			log.Warn("failed to load contract file", "path", path, "error", err)
			continue
		}

		rel, err := filepath.Rel(srcDir, filepath.Dir(path))
		if err != nil {
			rel = "."
		}
		outDir := filepath.Join(dstDir, rel)

		used := make(map[string]int)
		for _, c := range contracts {
			if !cv.Generator.CanHandle(c) {
				log.Debug("skipping contract", "contract", c.String(), "generator", cv.Generator.Name())
				report.Skipped = append(report.Skipped, c.String())
				continue
			}
			data, err := cv.Generator.Generate(c)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("%s: %w", path, err))
				log.Warn("failed to generate stub", "contract", c.String(), "error", err)
				continue
			}

			name := fileName(c.Name)
			if n := used[name]; n > 0 {
				name += "_" + strconv.Itoa(n)
			}
			used[fileName(c.Name)]++

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return report, fmt.Errorf("failed to create %s: %w", outDir, err)
			}
			out := filepath.Join(outDir, name+cv.Generator.Extension())
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return report, fmt.Errorf("failed to write %s: %w", out, err)
			}
			log.Debug("wrote stub", "contract", c.String(), "path", out)
			report.Written = append(report.Written, out)
		}
	}
	return report, nil
}

// fileName turns a contract name into a safe file name.
func fileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "contract"
	}
	return b.String()
}
