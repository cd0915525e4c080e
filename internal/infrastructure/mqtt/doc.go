// Package mqtt publishes per-file ingestion events to an MQTT broker.
//
// Downstream systems (dashboards, alerting) can subscribe to the event
// topic to observe ingestion without scraping logs. One JSON event is
// published per disposed file:
//
//	{"path":"/data/incoming/a.csv","points":14,"disposition":"deleted","timestamp":"..."}
//
// Event publishing is optional and disabled by default; failures are
// logged and never affect file disposition. The pipeline depends on the
// Notifier interface, so a disabled notifier is just the Nop
// implementation.
package mqtt
