// Package telemetry pushes ingestion counters to InfluxDB.
//
// Two counters are recorded, both tagged with the run mode and the
// series external identifier:
//
//   - series_registered: incremented when the registry auto-creates a
//     series for an unseen external identifier
//   - datapoints_ingested: incremented by the number of datapoints
//     handed to the dispatcher for a column
//
// Counters are buffered and flushed after each file completes. Push
// failures are reported through an error callback and are never fatal
// to ingestion.
//
// The pipeline depends on the Recorder interface, so a disabled sink is
// just the Nop implementation.
package telemetry
