// Package trigger holds the entry points fired by object-store events.
//
// IngestHandler reacts to a finalized raw upload: it claims the asset through
// the status store and dispatches it to the managed submitter or the local
// worker. CompletionHandler reacts to a finalized manifest in the processed
// bucket and marks the asset playable. Both accept events decoded from Pub/Sub
// push envelopes, direct object-metadata bodies, or pull messages, and share a
// KeyedMutex so work for one asset id is serialized inside the process.
package trigger
