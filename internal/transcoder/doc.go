// Package transcoder submits stream plans to a managed transcoding backend and
// reconciles the asset records of jobs whose completion event never arrived.
//
// Backend abstracts the job service; GCPBackend implements it on the Cloud
// Transcoder API. Submitter performs one submission per claimed asset with no
// internal retry. Reconciler is the polling safety net run by the daemon.
package transcoder
