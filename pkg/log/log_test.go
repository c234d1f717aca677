package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/margo-stats/margo/pkg/errors"
)

func TestErrFmtHandler_AddsStacktrace(t *testing.T) {
	var buf bytes.Buffer
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler)

	logger.Error("estimation failed", ErrAttr(errors.New("covariance is rank deficient")))

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if record["msg"] != "estimation failed" {
		t.Errorf("msg = %v", record["msg"])
	}
	if _, ok := record[ErrAttrKey]; !ok {
		t.Error("error attribute missing")
	}
	if st, ok := record[StacktraceAttrKey].(string); !ok || st == "" {
		t.Error("stacktrace attribute missing for a stack-carrying error")
	}
}

func TestErrFmtHandler_PlainRecordPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler)

	logger.Info("done", slog.Int(QuantitiesKey, 3))

	if strings.Contains(buf.String(), StacktraceAttrKey) {
		t.Error("stacktrace attribute emitted without an error")
	}
	if !strings.Contains(buf.String(), QuantitiesKey) {
		t.Error("attribute key missing from output")
	}
}

func TestToLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, want := range tests {
		if got := ToLogLevel(name); got != want {
			t.Errorf("ToLogLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestEnableZerologWarnings(t *testing.T) {
	var buf bytes.Buffer
	EnableZerologWarnings(&buf)
	defer errors.SetZerologWarnFunc(nil)

	errors.Warn(errors.NewDegenerateVarianceWarning("b1 - b2", 2, -1e-20))

	out := buf.String()
	if !strings.Contains(out, "b1 - b2") {
		t.Errorf("warning output missing term: %s", out)
	}
	if !strings.Contains(out, "DegenerateVarianceWarning") {
		t.Errorf("warning output missing type tag: %s", out)
	}
}
