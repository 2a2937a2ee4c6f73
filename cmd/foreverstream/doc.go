// Command foreverstream is the operator CLI for the transcoding pipeline.
//
// It runs the daemon (serve), inspects and seeds the status store (assets),
// previews the rendition ladder and stream plan for a frame size (ladder,
// plan), drives one-shot pipeline work (process, submit, reconcile, sweep),
// and checks the environment (probe, doctor, config).
package main
