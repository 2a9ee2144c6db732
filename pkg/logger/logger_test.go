package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func fileLogger(t *testing.T, cfg Config) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.log")
	cfg.Output = path
	return New(cfg), path
}

func lastLine(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("Log line is not JSON: %v (%q)", err, data)
	}
	return entry
}

func TestNew_WritesJSONToFile(t *testing.T) {
	log, path := fileLogger(t, Config{Level: "info", Format: "json"})

	log.Info("scan started")

	entry := lastLine(t, path)
	if entry["message"] != "scan started" {
		t.Errorf("Wrong message: %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("Wrong level: %v", entry["level"])
	}
}

func TestWithFieldChaining(t *testing.T) {
	log, path := fileLogger(t, Config{Level: "debug", Format: "json"})

	log.WithField("component", "prober").
		WithFields(map[string]interface{}{"site": "demo", "urls": 42}).
		Info("probing")

	entry := lastLine(t, path)
	if entry["component"] != "prober" || entry["site"] != "demo" {
		t.Errorf("Chained fields missing: %v", entry)
	}
	if entry["urls"].(float64) != 42 {
		t.Errorf("Numeric field wrong: %v", entry["urls"])
	}
}

func TestWithError(t *testing.T) {
	log, path := fileLogger(t, Config{Level: "info", Format: "json"})

	log.WithError(os.ErrNotExist).Error("fetch failed")

	entry := lastLine(t, path)
	if entry["error"] != os.ErrNotExist.Error() {
		t.Errorf("Error field wrong: %v", entry["error"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
