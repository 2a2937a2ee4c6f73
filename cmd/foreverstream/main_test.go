package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"foreverstream/internal/api"
	"foreverstream/internal/streamplan"
	"foreverstream/internal/testsupport"
)

func TestLadderCommandSkipsConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, _, err := runCLI(t, []string{"ladder", "1920", "1080"}, "")
	if err != nil {
		t.Fatalf("ladder: %v", err)
	}
	requireContains(t, out, "1080p")
	requireContains(t, out, "4.5 Mbps")
	requireContains(t, out, "480p")
	if strings.Contains(out, "1440p") {
		t.Fatalf("ladder must not upscale, got:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"ladder", "wide", "1080"}, ""); err == nil {
		t.Fatal("expected invalid width error")
	}
}

func TestPlanCommandJSON(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, _, err := runCLI(t, []string{"plan", "1280", "720", "--json"}, "")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	var plan streamplan.Plan
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v\n%s", err, out)
	}
	if len(plan.Manifests) != 1 || plan.Manifests[0].FileName != streamplan.ManifestFileName {
		t.Fatalf("unexpected manifests %+v", plan.Manifests)
	}
	if len(plan.MuxStreams) == 0 || len(plan.ElementaryStreams) < len(plan.MuxStreams) {
		t.Fatalf("unexpected plan shape: %d elementary, %d mux", len(plan.ElementaryStreams), len(plan.MuxStreams))
	}
}

func TestAssetsLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"assets", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("assets list: %v", err)
	}
	requireContains(t, out, "No assets found")

	out, _, err = runCLI(t, []string{"assets", "create",
		"--owner", "owner-1",
		"--raw-object", "clip-42.mov",
		"--title", "Harbour at dusk",
		"--dimensions", "1920x1080",
	}, env.configPath)
	if err != nil {
		t.Fatalf("assets create: %v", err)
	}
	requireContains(t, out, "Created asset clip-42 (raw object clip-42.mov)")

	out, _, err = runCLI(t, []string{"assets", "list", "--status", "uploaded"}, env.configPath)
	if err != nil {
		t.Fatalf("assets list filtered: %v", err)
	}
	requireContains(t, out, "clip-42")
	requireContains(t, out, "1920x1080")

	out, _, err = runCLI(t, []string{"assets", "list", "--status", "processed"}, env.configPath)
	if err != nil {
		t.Fatalf("assets list processed: %v", err)
	}
	requireContains(t, out, "No assets found")

	if _, _, err := runCLI(t, []string{"assets", "list", "--status", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected unknown status to fail")
	}

	out, _, err = runCLI(t, []string{"assets", "show", "clip-42", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("assets show: %v", err)
	}
	var item api.Asset
	if err := json.Unmarshal([]byte(out), &item); err != nil {
		t.Fatalf("decode asset: %v\n%s", err, out)
	}
	if item.OwnerID != "owner-1" || item.Status != "uploaded" || item.Title != "Harbour at dusk" {
		t.Fatalf("unexpected asset %+v", item)
	}

	if _, _, err := runCLI(t, []string{"assets", "show", "missing"}, env.configPath); err == nil {
		t.Fatal("expected missing asset error")
	}

	out, _, err = runCLI(t, []string{"assets", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("assets stats: %v", err)
	}
	requireContains(t, out, "uploaded")
	requireContains(t, out, "total")
}

func TestAssetsCreateRequiresOwner(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"assets", "create", "--raw-object", "a.mp4"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--owner") {
		t.Fatalf("expected owner error, got %v", err)
	}
}

func TestAssetsCreateDerivesIDFromOwner(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"assets", "create", "--owner", "uploader"}, env.configPath)
	if err != nil {
		t.Fatalf("assets create: %v", err)
	}
	requireContains(t, out, "Created asset uploader-")
	requireContains(t, out, ".mp4)")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "projects/test-project/locations/")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestDoctorManagedBackend(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "State directory")
	requireContains(t, out, "Scratch directory")
	requireContains(t, out, "FFmpeg")
}

func TestSweepList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"sweep", "--list"}, env.configPath)
	if err != nil {
		t.Fatalf("sweep --list: %v", err)
	}
	requireContains(t, out, "No scratch directories")

	if err := os.MkdirAll(filepath.Join(env.cfg.Paths.ScratchDir, "clip-1"), 0o755); err != nil {
		t.Fatalf("mkdir scratch: %v", err)
	}
	out, _, err = runCLI(t, []string{"sweep", "--list"}, env.configPath)
	if err != nil {
		t.Fatalf("sweep --list: %v", err)
	}
	requireContains(t, out, "clip-1")

	out, _, err = runCLI(t, []string{"sweep"}, env.configPath)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	requireContains(t, out, "Removed 0")
}

func TestSubmitRequiresManagedBackend(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithLocalPipeline())

	_, _, err := runCLI(t, []string{"submit", "clip-1"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "managed") {
		t.Fatalf("expected managed backend error, got %v", err)
	}
	_, _, err = runCLI(t, []string{"reconcile"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "managed") {
		t.Fatalf("expected managed backend error, got %v", err)
	}
}

func TestLogsCommandFiltersAsset(t *testing.T) {
	env := setupCLITestEnv(t)
	content := "2026-01-02 10:00:00 INFO trigger: dispatched asset_id=clip-1\n" +
		"2026-01-02 10:00:01 INFO trigger: dispatched asset_id=clip-2\n"
	if err := os.MkdirAll(env.cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatalf("mkdir state: %v", err)
	}
	if err := os.WriteFile(env.cfg.LogPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--asset", "clip-2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "asset_id=clip-2")
	if strings.Contains(out, "asset_id=clip-1") {
		t.Fatalf("unexpected clip-1 line in:\n%s", out)
	}
}
