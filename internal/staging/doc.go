// Package staging manages per-invocation scratch directories for the local
// worker and sweeps the ones a crashed process left behind.
//
// Every scratch directory holds a flock on its lock file for as long as it is
// in use, so the sweeper can tell an abandoned directory from a slow encode.
package staging
