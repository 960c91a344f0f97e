package infra

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLoggerProductionJSON(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "production")
	l.Debug().Msg("hidden")
	l.Info().Str("run_id", "r1").Msg("run started")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != ServiceName {
		t.Fatalf("service = %v, want %q", entry["service"], ServiceName)
	}
	if entry["run_id"] != "r1" || entry["message"] != "run started" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewLoggerDevelopmentDebug(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "development")
	l.Debug().Msg("visible")
	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Fatalf("debug line missing from development output: %q", buf.String())
	}
}
