// Package dispatch batches datapoint delivery to the remote store.
//
// The store's insertion endpoint takes a list of series entries per
// request. Sending one request per column would be chatty and sending
// one per file could exceed request limits on wide files, so the
// dispatcher buffers entries and flushes whenever the batch ceiling is
// reached, plus once at end of file.
package dispatch
