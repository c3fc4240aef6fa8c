package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// RulesOptions holds flags for the rules command.
type RulesOptions struct {
	*RootOptions
	RulesFile string
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the effective classification rules",
		Long: `Print the skip rules, environment limitations, required failures and
stdout exemptions the run command applies, as YAML (or JSON with
--format json).

Examples:
  testmatrix rules
  testmatrix rules --rules ci-rules.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RulesFile, "rules", "", "rule file (.yaml, .toml or .cue) applied to the default rules")

	return cmd
}

func runRules(opts *RulesOptions, cmd *cobra.Command) error {
	rules, err := loadRules(opts.RulesFile)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(rules)
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(rules); err != nil {
		return WrapExitError(ExitCommandError, "failed to encode rules", err)
	}
	return enc.Close()
}
