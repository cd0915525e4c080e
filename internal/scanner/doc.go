// Package scanner discovers measurement CSV files in the watched input
// directory.
//
// The scanner is a pure listing layer: it applies the *.csv filter, the
// watermark cut, the quiet period, ordering and the scan limit, and
// leaves disposition of the files it reports to the pipeline. It holds
// no state between calls; the watermark is threaded in by the caller.
package scanner
