package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"foreverstream/internal/config"
	"foreverstream/internal/deps"
	"foreverstream/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("scratch", dir, 1); !result.Passed {
		t.Fatalf("expected pass for 1 byte, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("scratch", dir, 1<<62); result.Passed {
		t.Fatal("expected failure for absurd requirement")
	}
	if result := CheckFreeSpace("scratch", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[uint64]string{
		512:      "512 B",
		2048:     "2.0 KiB",
		10 << 30: "10.0 GiB",
	}
	for in, want := range cases {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ManagedTreatsEncodersAsOptional(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.FFmpegBinary = "clearly-not-present-ffmpeg"
	cfg.Pipeline.FFprobeBinary = "clearly-not-present-ffprobe"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %#v", failed)
	}
}

func TestRunAll_LocalRequiresEncoders(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLocalPipeline())
	cfg.Pipeline.FFmpegBinary = "clearly-not-present-ffmpeg"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	failed := Failed(RunAll(context.Background(), cfg))
	found := false
	for _, r := range failed {
		if r.Name == "FFmpeg" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected FFmpeg failure, got %#v", failed)
	}
}

func TestFromDependencyOptionalPasses(t *testing.T) {
	result := FromDependency(deps.Status{Name: "FFmpeg", Optional: true, Detail: "binary \"ffmpeg\" not found"})
	if !result.Passed {
		t.Fatal("optional dependency should pass")
	}
}

func TestCheckSystemDepsNilConfig(t *testing.T) {
	if got := CheckSystemDeps(context.Background(), (*config.Config)(nil)); got != nil {
		t.Fatalf("expected nil, got %#v", got)
	}
}
