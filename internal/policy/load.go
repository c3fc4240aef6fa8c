package policy

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// File is the on-disk form of a rule set.
type File struct {
	// Replace discards the compiled-in tables instead of extending them.
	Replace bool `json:"replace" yaml:"replace" toml:"replace"`

	Skip             []SkipRule        `json:"skip" yaml:"skip" toml:"skip"`
	Limitations      []Limitation      `json:"limitations" yaml:"limitations" toml:"limitations"`
	RequiredFailures []RequiredFailure `json:"required_failures" yaml:"required_failures" toml:"required_failures"`
	StdoutExempt     []string          `json:"stdout_exempt" yaml:"stdout_exempt" toml:"stdout_exempt"`
}

// Rules returns the tables declared in the file.
func (f *File) Rules() *Rules {
	return &Rules{
		Skip:             f.Skip,
		Limitations:      f.Limitations,
		RequiredFailures: f.RequiredFailures,
		StdoutExempt:     f.StdoutExempt,
	}
}

// Load reads a rule file and applies it to the compiled-in defaults.
// The format is chosen by extension: .yaml/.yml, .toml or .cue.
func Load(path string) (*Rules, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	rules := Default()
	if f.Replace {
		rules = &Rules{}
	}
	rules.Merge(f.Rules())
	return rules, nil
}

// ReadFile decodes and validates a rule file without applying it.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	f := &File{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(f); err != nil {
			return nil, fmt.Errorf("decode rules %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), f)
		if err != nil {
			return nil, fmt.Errorf("decode rules %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decode rules %s: unknown keys %v", path, undecoded)
		}
	case ".cue":
		if err := decodeCUE(path, data, f); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported rules format %q", ext)
	}

	if err := f.Rules().Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules %s: %w", path, err)
	}
	return f, nil
}

// decodeCUE unifies the file with the #RuleFile schema before decoding.
func decodeCUE(path string, data []byte, f *File) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile rules schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return fmt.Errorf("compile rules %s: %w", path, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#RuleFile")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validate rules %s: %w", path, err)
	}

	if err := unified.Decode(f); err != nil {
		return fmt.Errorf("decode rules %s: %w", path, err)
	}
	return nil
}

// Validate checks every table entry and reports all problems at once.
func (r *Rules) Validate() error {
	var result *multierror.Error

	for i, s := range r.Skip {
		if s.Prefix == "" {
			result = multierror.Append(result, fmt.Errorf("skip[%d]: empty prefix", i))
		}
		if len(s.Backends) == 0 {
			result = multierror.Append(result, fmt.Errorf("skip[%d]: no backend substrings", i))
		}
		for _, b := range s.Backends {
			if b == "" {
				result = multierror.Append(result, fmt.Errorf("skip[%d]: empty backend substring", i))
			}
		}
	}

	for i, l := range r.Limitations {
		if l.Substring == "" {
			result = multierror.Append(result, fmt.Errorf("limitations[%d]: empty substring", i))
		}
	}

	for i, f := range r.RequiredFailures {
		if f.Required == "" {
			result = multierror.Append(result, fmt.Errorf("required_failures[%d]: empty required text", i))
		}
		if len(f.Prefixes) == 0 {
			result = multierror.Append(result, fmt.Errorf("required_failures[%d]: no prefixes", i))
		}
		for _, p := range f.Prefixes {
			if len(p) != 4 {
				result = multierror.Append(result, fmt.Errorf("required_failures[%d]: prefix %q is not 4 characters", i, p))
			}
		}
		for _, b := range f.Backends {
			if b == "" {
				result = multierror.Append(result, fmt.Errorf("required_failures[%d]: empty backend substring", i))
			}
		}
	}

	for i, p := range r.StdoutExempt {
		if p == "" {
			result = multierror.Append(result, fmt.Errorf("stdout_exempt[%d]: empty prefix", i))
		}
	}

	return result.ErrorOrNil()
}
