// Package logs tails the daemon log file for the CLI.
//
// Negative offsets read the last N lines; non-negative offsets resume from a
// byte position returned by an earlier call, which is how follow mode polls.
// An asset filter keeps only lines tagged with that asset id in either the
// JSON or console log format.
package logs
