// Package preflight provides readiness checks for the filesystem paths and
// external binaries foreverstream depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs failures without exiting.
//   - The CLI "foreverstream doctor" command renders every result in a table
//     and exits non-zero when a required check fails.
//
// Encoder binaries are only checked when the local backend is selected.
package preflight
