package daemon_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"foreverstream/internal/config"
	"foreverstream/internal/daemon"
	"foreverstream/internal/testsupport"
	"foreverstream/internal/trigger"
)

type noopHandler struct{}

func (noopHandler) Handle(context.Context, trigger.ObjectEvent) (trigger.Outcome, error) {
	return trigger.OutcomeIgnored, nil
}

func (noopHandler) HandleLocal(context.Context, trigger.ObjectEvent) (trigger.Outcome, error) {
	return trigger.OutcomeIgnored, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	return cfg
}

func newDaemon(t *testing.T, cfg *config.Config, loops ...daemon.Loop) *daemon.Daemon {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(daemon.Options{
		Config:     cfg,
		Store:      store,
		Ingest:     noopHandler{},
		Completion: noopHandler{},
		Loops:      loops,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := daemon.New(daemon.Options{}); err == nil {
		t.Fatal("expected error for empty options")
	}
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
	if status.APIAddress == "" {
		t.Fatal("expected API to be listening")
	}

	resp, err := http.Get("http://" + status.APIAddress + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Fatalf("unexpected healthz response %d %q", resp.StatusCode, body)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondInstanceBlockedByLock(t *testing.T) {
	cfg := testConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock contention error")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestLoopFailureEndsWait(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.APIBind = ""
	boom := errors.New("subscription deleted")
	d := newDaemon(t, cfg, daemon.Loop{
		Name: "pubsub-raw",
		Run:  func(context.Context) error { return boom },
	})

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- d.Wait() }()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Fatalf("expected loop error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after loop failure")
	}
}

func TestCancelStopsLoops(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.APIBind = ""
	exited := make(chan struct{})
	d := newDaemon(t, cfg, daemon.Loop{
		Name: "reconciler",
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			close(exited)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
	if err := d.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	select {
	case <-exited:
	default:
		t.Fatal("loop did not observe cancellation")
	}
}
