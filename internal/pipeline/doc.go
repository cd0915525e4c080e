// Package pipeline runs the ingestion loop in its two modes.
//
// Historical mode drains the backlog once, oldest first, and exits.
// Live mode polls the input directory indefinitely, newest first with a
// per-cycle limit, and tracks a watermark so restarts do not reprocess
// files that were already disposed. The watermark is conservative: it
// never moves past a file that is still in the directory.
package pipeline
