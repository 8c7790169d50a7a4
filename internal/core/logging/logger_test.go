package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log: %v", err)
	}
	return logEntry
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	logger := Component("gateway")
	logger.Info().Msg("request sent")

	logEntry := decodeEntry(t, &buf)

	if cmp := logEntry["cmp"]; cmp != "gateway" {
		t.Errorf("Component() cmp = %q, want %q", cmp, "gateway")
	}

	if msg := logEntry["message"]; msg != "request sent" {
		t.Errorf("Component() message = %q, want %q", msg, "request sent")
	}
}

func TestSub(t *testing.T) {
	var buf bytes.Buffer
	parent := zerolog.New(&buf).With().Str("app", "flatfinder").Logger()

	logger := Sub(parent, "realtime")
	logger.Warn().Msg("dial failed")

	logEntry := decodeEntry(t, &buf)

	if cmp := logEntry["cmp"]; cmp != "realtime" {
		t.Errorf("Sub() cmp = %q, want %q", cmp, "realtime")
	}
	if app := logEntry["app"]; app != "flatfinder" {
		t.Errorf("Sub() app = %q, want parent field preserved", app)
	}
}
