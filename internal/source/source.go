// Package source maps test identifiers to the source files that declare them.
package source

import (
	"path/filepath"
	"strings"
)

// Rule maps a family of test identifiers to a source location.
type Rule struct {
	// Prefix selects identifiers starting with it. Empty matches any.
	Prefix string

	// Suffix selects identifiers ending with it. Empty matches any.
	Suffix string

	// StripPrefix removes Prefix from the identifier before building the file name.
	StripPrefix bool

	// Dir is the directory holding the source, relative to the repository root.
	Dir string

	// Ext is the source file extension, with leading dot.
	Ext string
}

// Matches reports whether the rule selects test.
func (r Rule) Matches(test string) bool {
	return strings.HasPrefix(test, r.Prefix) && strings.HasSuffix(test, r.Suffix)
}

// Path returns the source path of test under this rule.
func (r Rule) Path(test string) string {
	name := test
	if r.StripPrefix {
		name = strings.TrimPrefix(name, r.Prefix)
	}
	return filepath.Join(r.Dir, name+r.Ext)
}

// rules is evaluated in order; the last rule matches every identifier.
var rules = []Rule{
	{Prefix: "petsc-", StripPrefix: true, Dir: "examples/petsc", Ext: ".c"},
	{Prefix: "mfem-", StripPrefix: true, Dir: "examples/mfem", Ext: ".cpp"},
	{Prefix: "nek-", StripPrefix: true, Dir: "examples/nek/bps", Ext: ".usr"},
	{Prefix: "fluids-", StripPrefix: true, Dir: "examples/fluids", Ext: ".c"},
	{Prefix: "solids-", StripPrefix: true, Dir: "examples/solids", Ext: ".c"},
	{Prefix: "ex", Dir: "examples/ceed", Ext: ".c"},
	{Suffix: "-f", Dir: "tests", Ext: ".f90"},
	{Dir: "tests", Ext: ".c"},
}

// Resolve returns the source path of test, relative to the repository root.
func Resolve(test string) string {
	for _, r := range rules {
		if r.Matches(test) {
			return r.Path(test)
		}
	}
	// Unreachable: the final rule matches everything.
	return filepath.Join("tests", test+".c")
}
