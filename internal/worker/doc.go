// Package worker runs the local transcode pipeline: download the raw upload
// into a locked scratch directory, encode it with ffmpeg, optionally validate
// the result with ffprobe, and publish it to the processed bucket.
//
// Scratch files are removed on every exit path. The asset record, when one
// exists, is moved to processed or error.
package worker
