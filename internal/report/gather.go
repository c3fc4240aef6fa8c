package report

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// JUnitExt is the extension of per-test report files.
const JUnitExt = ".junit"

// FindJUnit lists the per-test report files in dir, sorted by name.
func FindJUnit(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+JUnitExt))
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Gather merges the suites of several report files into one document.
// Every unreadable file is reported; the merged document holds the rest.
func Gather(paths []string) (*JUnitSuites, error) {
	doc := NewJUnit()
	var result *multierror.Error

	for _, path := range paths {
		part, err := ReadJUnitFile(path)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		for _, s := range part.Suites {
			doc.add(s)
		}
	}
	return doc, result.ErrorOrNil()
}
