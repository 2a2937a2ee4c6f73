// Package daemon coordinates the long-running foreverstream process.
//
// It wires the status store, the trigger handlers, and a set of background
// loops (Pub/Sub pull subscriptions, the managed job reconciler, the scratch
// sweeper) into a single lifecycle with flock-based locking to prevent
// multiple instances. The HTTP API exposes trigger endpoints for push
// delivery, read-only asset queries, daemon status, health, and Prometheus
// metrics.
//
// Keep orchestration logic here: pipeline steps live in their respective
// packages while the daemon focuses on startup, shutdown, and high level
// coordination. Runtime construction of those packages lives in daemonrun.
package daemon
