package directive

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Placeholder is substituted with the backend identifier for each run.
const Placeholder = "{ceed_resource}"

// ErrUnsupportedSourceKind is returned when no dialect handles a file extension.
var ErrUnsupportedSourceKind = errors.New("unsupported source kind")

// Variant is one named argument combination for a test, independent of backend.
type Variant struct {
	// Args are the argument tokens passed after the executable path.
	// Exactly one of them is expected to be Placeholder.
	Args []string `json:"args" yaml:"args"`

	// Name labels the variant in reports. Empty for the default variant.
	Name string `json:"name" yaml:"name"`
}

// DefaultVariant is used when a source declares no directives.
func DefaultVariant() Variant {
	return Variant{Args: []string{Placeholder}, Name: ""}
}

// Dialect parses the directives of one source language.
type Dialect interface {
	// Name identifies the dialect in logs and errors.
	Name() string

	// Extensions lists the file extensions (with leading dot) handled by the dialect.
	Extensions() []string

	// Parse returns the variants declared in r, in source order.
	// An empty result is valid.
	Parse(r io.Reader) ([]Variant, error)
}

// prefixDialect is a dialect whose directives are lines starting with a fixed token.
type prefixDialect struct {
	name       string
	token      string
	extensions []string
}

func (d prefixDialect) Name() string         { return d.name }
func (d prefixDialect) Extensions() []string { return d.extensions }

func (d prefixDialect) Parse(r io.Reader) ([]Variant, error) {
	var variants []Variant

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		rest, ok := strings.CutPrefix(scanner.Text(), d.token)
		if !ok || !endsToken(rest) {
			continue
		}
		variants = append(variants, parseDirective(rest))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s directives: %w", d.name, err)
	}
	return variants, nil
}

// endsToken reports whether rest starts where a directive token may end:
// at a name group, whitespace or the end of the line.
func endsToken(rest string) bool {
	if rest == "" || rest[0] == '(' {
		return true
	}
	return unicode.IsSpace(rune(rest[0]))
}

// parseDirective splits the text following a directive token into the name
// group and the argument tokens.
func parseDirective(rest string) Variant {
	fields := strings.Fields(rest)
	if !strings.HasPrefix(rest, "(") {
		return Variant{Args: nonNil(fields)}
	}
	return Variant{Name: parseName(fields[0]), Args: nonNil(fields[1:])}
}

// parseName reduces (name="x"), (name=x) and (x) to x.
func parseName(group string) string {
	name := strings.TrimPrefix(group, "(")
	name = strings.TrimSuffix(name, ")")
	name = strings.TrimPrefix(name, "name=")
	return strings.Trim(name, `"'`)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var (
	// C covers the C and C++ test and example sources.
	C Dialect = prefixDialect{name: "c", token: "//TESTARGS", extensions: []string{".c", ".cpp"}}

	// Nek covers Nek5000 user files.
	Nek Dialect = prefixDialect{name: "nek", token: "C_TESTARGS", extensions: []string{".usr"}}

	// Fortran covers Fortran 90 sources.
	Fortran Dialect = prefixDialect{name: "fortran", token: "! TESTARGS", extensions: []string{".f90"}}
)

// Dialects lists the registered dialects in lookup order.
var Dialects = []Dialect{C, Nek, Fortran}

// ForFile returns the dialect handling the extension of path.
func ForFile(path string) (Dialect, error) {
	ext := filepath.Ext(path)
	for _, d := range Dialects {
		for _, e := range d.Extensions() {
			if e == ext {
				return d, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedSourceKind, path)
}

// ParseFile reads the directives declared in the source at path.
func ParseFile(path string) ([]Variant, error) {
	d, err := ForFile(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	return d.Parse(f)
}

// Variants returns the variants of the source at path, falling back to
// DefaultVariant when the source declares none.
func Variants(path string) ([]Variant, error) {
	variants, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return []Variant{DefaultVariant()}, nil
	}
	return variants, nil
}

// PlaceholderCount reports how many arguments equal Placeholder.
func (v Variant) PlaceholderCount() int {
	n := 0
	for _, a := range v.Args {
		if a == Placeholder {
			n++
		}
	}
	return n
}

// Substitute returns a copy of Args with the placeholder replaced by backend.
func (v Variant) Substitute(backend string) []string {
	out := make([]string, len(v.Args))
	for i, a := range v.Args {
		if a == Placeholder {
			a = backend
		}
		out[i] = a
	}
	return out
}
