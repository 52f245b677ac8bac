package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shibukawa/sqldoctest"
	"github.com/shibukawa/sqldoctest/extractor"
)

// collectTestFiles resolves the given paths to source files and extracts
// their tests. Directories are walked recursively and filtered by the
// configured extensions; explicitly named files are taken as-is. Files
// without any tests are dropped.
func collectTestFiles(config *sqldoctest.Config, paths []string) ([]sqldoctest.TestFile, []error) {
	var (
		files []sqldoctest.TestFile
		errs  []error
	)

	sources, err := resolveSources(config, paths)
	if err != nil {
		return nil, []error{err}
	}

	for _, source := range sources {
		contents, err := os.ReadFile(source)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read %s: %w", source, err))
			continue
		}

		file, extractErrs := extractor.ExtractFile(source, string(contents),
			config.Markers.Start, config.Markers.End)

		errs = append(errs, extractErrs...)

		if len(file.Tests) > 0 {
			files = append(files, file)
		}
	}

	return files, errs
}

// resolveSources expands directories into their matching files. WalkDir
// visits entries in lexical order, so the result is deterministic.
func resolveSources(config *sqldoctest.Config, paths []string) ([]string, error) {
	var sources []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", path, err)
		}

		if !info.IsDir() {
			sources = append(sources, path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				// An explicitly named root is always walked; below it,
				// hidden directories like .git and vendored code are never
				// worth visiting.
				if p == path {
					return nil
				}

				name := d.Name()
				if strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules" {
					return filepath.SkipDir
				}

				return nil
			}

			if matchesExtension(config.Extensions, p) {
				sources = append(sources, p)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
	}

	return sources, nil
}

func matchesExtension(extensions []string, path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")

	for _, e := range extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}

	return false
}
