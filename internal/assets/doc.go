// Package assets persists video asset records and enforces their status
// lifecycle.
//
// A record is created with status uploaded when the raw object lands, then
// moves to processing, and finally to processed or error. The Store exposes
// the idempotency gate (ClaimForProcessing) as a single compare-and-set so
// at-least-once trigger delivery never processes an asset twice, and every
// later transition is a conditional write on the status the caller observed.
//
// Store is backed by SQLite; the firestore subpackage provides the same
// Repository contract on Cloud Firestore. Both share the transition table and
// field rules defined here. Schema changes bump schemaVersion in schema.go;
// operators delete the database to adopt the new schema.
package assets
