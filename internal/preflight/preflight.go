package preflight

import (
	"context"

	"foreverstream/internal/config"
	"foreverstream/internal/deps"
)

// minScratchFreeBytes is the free space the local worker needs to stage a
// raw upload alongside its encoded output.
const minScratchFreeBytes = 10 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir))

	if cfg.Pipeline.Backend == config.BackendLocal {
		results = append(results, CheckFreeSpace("Scratch free space", cfg.Paths.ScratchDir, minScratchFreeBytes))
	}
	if cfg.UsesLocalBuckets() {
		results = append(results, CheckDirectoryAccess("Local bucket root", cfg.Buckets.LocalRoot))
	}

	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, FromDependency(status))
	}
	return results
}

// FromDependency converts a binary availability status into a check result.
// Optional binaries always pass.
func FromDependency(status deps.Status) Result {
	detail := status.Detail
	if status.Available && detail == "" {
		detail = status.Command
	}
	return Result{
		Name:   status.Name,
		Passed: status.Available || status.Optional,
		Detail: detail,
	}
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
