package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteExecutable writes a shell script called name into dir and returns its
// path. An empty body produces a stub that exits 0, enough for PATH lookups
// and availability checks.
func WriteExecutable(t testing.TB, dir, name, body string) string {
	t.Helper()

	if body == "" {
		body = "exit 0\n"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}
