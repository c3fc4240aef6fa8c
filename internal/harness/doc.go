// Package harness runs one logical test against a matrix of backends and
// classifies every run.
//
// # Planning
//
// A test identifier is resolved to its source file, the source's directives
// are parsed into invocation variants, and the variants are expanded across
// the configured backends. Expansion is variant-major, backend-minor; the
// resulting order is the order in which results are reported.
//
// Every variant must carry exactly one {ceed_resource} placeholder. A variant
// with none or several is a configuration defect and fails planning before any
// process is spawned.
//
// # Classification
//
// Each run is judged by an ordered procedure that stops at the first rule
// that applies:
//
//  1. Pre-run skip rule: skipped, nothing is spawned.
//  2. The process is spawned. A spawn failure is an error.
//  3. Environment limitation in stderr: skipped.
//  4. Required-failure contract: passed if stderr carries the required text,
//     failed otherwise.
//  5. Non-empty stderr: failed.
//  6. Non-zero exit code: error.
//  7. Reference file present: failed on any diff, passed otherwise.
//  8. Non-empty stdout outside the exempt group: failed.
//  9. Passed.
//
// Classification never aborts the batch; every request yields exactly one
// Result.
//
// # Concurrency
//
// Runs execute sequentially by default. With Config.Jobs > 1 the backends of
// a single variant fan out concurrently; results are still delivered to the
// Observer in plan order.
package harness
