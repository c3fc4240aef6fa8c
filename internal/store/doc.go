// Package store keeps a SQLite history of matrix runs.
//
// Each invocation of the driver for one test is a run. A run owns the
// classified results of every (variant, backend) pair it executed, in the
// order they were reported.
//
// # Ordering
//
// Runs are listed newest first by start time, then by ID. Results are
// returned by their 1-based position within the run.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
