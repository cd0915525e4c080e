// Package statestore persists pipeline state across restarts.
//
// The only state the pipeline carries between runs is the live-mode
// watermark: the modification time below which files are considered
// already ingested. Persisting it means a restarted live extractor does
// not re-scan (and re-deliver) the files it already disposed of.
//
// The store is a single-row SQLite table. SQLite buys crash safety and
// atomic upserts for the price of a file; the extractor is the only
// writer.
package statestore
