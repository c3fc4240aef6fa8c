// Package report renders classified runs.
//
// Two emission modes exist. TAP streams one result line per completed run,
// preceded by a plan line with the total number of runs; it is meant for CI
// log parsers and never influences the process exit status. JUnit writes one
// XML document per test once every run has completed, while Console echoes
// failing runs to the terminal as they happen.
package report
