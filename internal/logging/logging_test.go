package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ragsearch/config"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	logger.Info().Msg("hidden")
	logger.Warn().Str("url", "https://a.org").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, `"url":"https://a.org"`) {
		t.Errorf("expected structured field, got %s", out)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	if _, _, err := New(config.LoggingConfig{Level: "loud"}, &buf); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew_TeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ragsearch.log")
	var buf bytes.Buffer
	logger, closer, err := New(config.LoggingConfig{Level: "debug", Format: "console", File: path}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug().Msg("written twice")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "written twice") {
		t.Errorf("file missing log line: %s", data)
	}
	if !strings.Contains(buf.String(), "written twice") {
		t.Errorf("console missing log line: %s", buf.String())
	}
}
