// Package processor drives the per-file ingestion pass: parse, resolve,
// dispatch, dispose.
//
// Disposition is the load-bearing part. A file is deleted only after
// every batch it produced was accepted by the store; a malformed file
// is quarantined so it stops blocking the directory; anything in
// between stays put for the next pass. The processor never terminates
// the process, it reports outcomes and lets the pipeline decide.
package processor
