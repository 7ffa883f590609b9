package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %v", log.GetLevel())
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("balance rebuilt")

	output := buf.String()
	if output == "" {
		t.Error("Expected log output, got empty string")
	}
	if !strings.Contains(output, "balance rebuilt") {
		t.Errorf("Expected output to contain 'balance rebuilt', got: %s", output)
	}
}

func TestNewWithOptions(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		logDebug  bool
		wantJSON  bool
		wantEmpty bool
	}{
		{name: "json at debug", opts: Options{Level: "debug", Format: "json"}, logDebug: true, wantJSON: true},
		{name: "json drops debug at info", opts: Options{Level: "info", Format: "json"}, logDebug: true, wantEmpty: true},
		{name: "console", opts: Options{Level: "warn", Format: "console"}},
		{name: "unknown level means info", opts: Options{Level: "loud", Format: "JSON"}, wantJSON: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.opts.Out = buf
			log := NewWithOptions(tt.opts)

			if tt.logDebug {
				log.Debug().Msg("posted")
			} else {
				log.Error().Msg("posted")
			}

			output := buf.String()
			if tt.wantEmpty {
				if output != "" {
					t.Errorf("Expected no output, got: %s", output)
				}
				return
			}
			if !strings.Contains(output, "posted") {
				t.Fatalf("Expected message in output, got: %s", output)
			}
			if isJSON := strings.HasPrefix(output, "{"); isJSON != tt.wantJSON {
				t.Errorf("JSON output = %v, want %v: %s", isJSON, tt.wantJSON, output)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":      zerolog.InfoLevel,
		"debug": zerolog.DebugLevel,
		"WARN":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"bogus": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithContext(t *testing.T) {
	log := New()
	ctx := context.Background()

	ctxWithLogger := WithContext(ctx, log)

	if ctxWithLogger.Value(LoggerKey) == nil {
		t.Error("Expected logger in context, got nil")
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	testLog := NewWithWriter(buf)
	ctx := WithContext(context.Background(), testLog)

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	// Should return a default logger when none is in context
	log := FromContext(context.Background())

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	logWithFields := WithFields(log, map[string]interface{}{
		"transaction_id": "t-123",
		"mutation":       "add_transaction",
	})
	logWithFields.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "transaction_id") || !strings.Contains(output, "t-123") {
		t.Errorf("Expected output to contain transaction_id field, got: %s", output)
	}
	if !strings.Contains(output, "add_transaction") {
		t.Errorf("Expected output to contain mutation field, got: %s", output)
	}
}
