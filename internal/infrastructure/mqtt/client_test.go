package mqtt_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fieldline/datapump/internal/infrastructure/config"
	"github.com/fieldline/datapump/internal/infrastructure/mqtt"
)

func TestConnect_Disabled(t *testing.T) {
	cfg := config.EventsConfig{Enabled: false}

	client, err := mqtt.Connect(cfg)
	if client != nil {
		t.Error("Connect() should return nil client when disabled")
	}
	if !errors.Is(err, mqtt.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestNop_ImplementsNotifier(t *testing.T) {
	var n mqtt.Notifier = mqtt.Nop{}

	// Should not panic or block.
	n.FileProcessed(mqtt.FileEvent{Path: "/data/incoming/a.csv"})
}

func TestFileEvent_JSONShape(t *testing.T) {
	event := mqtt.FileEvent{
		Path:        "/data/incoming/a.csv",
		Points:      14,
		Disposition: "deleted",
		Timestamp:   time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshalling event: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshalling event: %v", err)
	}

	if decoded["path"] != "/data/incoming/a.csv" {
		t.Errorf("path = %v, want /data/incoming/a.csv", decoded["path"])
	}
	if decoded["disposition"] != "deleted" {
		t.Errorf("disposition = %v, want deleted", decoded["disposition"])
	}
	if _, present := decoded["error"]; present {
		t.Error("error field should be omitted when empty")
	}
}

func TestFileEvent_ErrorIncluded(t *testing.T) {
	event := mqtt.FileEvent{
		Path:        "/data/incoming/b.csv",
		Disposition: "quarantined",
		Error:       "parsing file: bad header",
	}

	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshalling event: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshalling event: %v", err)
	}

	if decoded["error"] != "parsing file: bad header" {
		t.Errorf("error = %v, want the parse failure text", decoded["error"])
	}
}
