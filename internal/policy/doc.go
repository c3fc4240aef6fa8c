// Package policy holds the rule tables that decide how a test run is judged
// before and after its process executes.
//
// Three ordered tables make up a rule set:
//
//   - Skip rules: (test prefix, backend substrings) pairs known to be
//     incompatible. A match skips the run before anything is spawned.
//   - Limitations: stderr substrings that identify a benign environment
//     limitation (feature unsupported by the backend). A match skips the run
//     regardless of exit code or output.
//   - Required failures: contract tests that must fail with a specific
//     message. The required text must appear in stderr for the run to pass.
//
// The compiled-in tables are returned by Default. A rule file in YAML, TOML
// or CUE can extend or replace them (see Load).
package policy
