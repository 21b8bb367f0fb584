package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func newJSONLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json", Output: "stdout"}, "test-svc", buf)
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.Service() != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.Service())
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "invalid-level", Format: "json"}, "test", &buf)
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("expected invalid level to fall back to info")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("expected info message to be written")
	}
}

func TestNewFromEnv(t *testing.T) {
	os.Setenv("GOHOST_LOG_LEVEL", "debug")
	os.Setenv("GOHOST_LOG_FORMAT", "json")
	defer os.Unsetenv("GOHOST_LOG_LEVEL")
	defer os.Unsetenv("GOHOST_LOG_FORMAT")

	l := NewFromEnv("env-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestJSONOutputIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "info").WithComponent("host")
	l.Info("started", Fields("state", "Running"))

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "started" {
		t.Errorf("expected message 'started', got %v", line["message"])
	}
	if line[FieldComponent] != "host" {
		t.Errorf("expected component 'host', got %v", line[FieldComponent])
	}
	if line[FieldService] != "test-svc" {
		t.Errorf("expected service 'test-svc', got %v", line[FieldService])
	}
	if line["state"] != "Running" {
		t.Errorf("expected state 'Running', got %v", line["state"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "warn")
	l.Info("info msg")
	l.Warn("warn msg")
	if strings.Contains(buf.String(), "info msg") {
		t.Error("expected info to be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "warn msg") {
		t.Error("expected warn to be written")
	}
}

func TestWithComponent(t *testing.T) {
	l := NewDefault("test")
	cl := l.WithComponent("handler")
	if cl.Service() != "test" {
		t.Errorf("service should be preserved, got %q", cl.Service())
	}
}

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "info").
		WithFields(map[string]interface{}{"key": "value"}).
		WithError(fmt.Errorf("boom"))
	l.Error("failed")
	out := buf.String()
	if !strings.Contains(out, `"key":"value"`) || !strings.Contains(out, `"error":"boom"`) {
		t.Errorf("expected key and error fields, got %q", out)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded")
	l.WithComponent("x").Error("discarded")
}

func TestInitAndGlobal(t *testing.T) {
	Init(&Config{Level: "info", Format: "json"}, "global-svc")
	gl := GetGlobalLogger()
	if gl.Service() != "global-svc" {
		t.Errorf("expected global logger for 'global-svc', got %q", gl.Service())
	}

	custom := NewDefault("custom")
	SetGlobalLogger(custom)
	if GetGlobalLogger() != custom {
		t.Error("expected SetGlobalLogger to set the global logger")
	}

	// These should not panic
	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")
	_ = WithComponent("x")
	_ = Get("y")
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json", Output: "stdout"}, false},
		{"valid console", Config{Level: "debug", Format: "console", Output: "stderr"}, false},
		{"invalid level", Config{Level: "bad", Format: "json", Output: "stdout"}, true},
		{"invalid format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"invalid output", Config{Level: "info", Format: "json", Output: "file"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConsoleLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "test-svc", &buf)
	l.Info("hello")
	if !strings.Contains(buf.String(), "[TES][INF]") {
		t.Errorf("expected service and level tag, got %q", buf.String())
	}
}

func TestRegistryGetCachesDerivedLoggers(t *testing.T) {
	r := NewRegistry(NewDefault("root"))

	first := r.Get("orders")
	second := r.Get("orders")
	if first != second {
		t.Error("expected Get to cache derived loggers")
	}
	if first.Service() != "root" {
		t.Errorf("expected derived logger to keep root service, got %q", first.Service())
	}
}

func TestRegistryRegisterOverrides(t *testing.T) {
	r := NewRegistry(NewDefault("root"))
	custom := NewDefault("custom")
	r.Register("orders", custom)

	if r.Get("orders") != custom {
		t.Error("expected Get to return the registered logger")
	}
	if len(r.Names()) != 1 {
		t.Errorf("expected 1 name, got %v", r.Names())
	}
}

func TestRegistryConcurrentGet(t *testing.T) {
	r := NewRegistry(Nop())
	var wg sync.WaitGroup
	results := make([]*Logger, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Get("shared")
		}(i)
	}
	wg.Wait()
	for _, l := range results {
		if l != results[0] {
			t.Fatal("expected every goroutine to observe the same cached logger")
		}
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name     string
		input    []interface{}
		expected map[string]interface{}
	}{
		{"key-value pairs", []interface{}{"op", "save", "id", 42}, map[string]interface{}{"op": "save", "id": 42}},
		{"odd number of args", []interface{}{"op", "save", "trailing"}, map[string]interface{}{"op": "save"}},
		{"empty", []interface{}{}, map[string]interface{}{}},
		{"non-string key skipped", []interface{}{123, "value", "key", "val"}, map[string]interface{}{"key": "val"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Fields(tc.input...)
			if len(result) != len(tc.expected) {
				t.Errorf("expected %d fields, got %d", len(tc.expected), len(result))
			}
			for k, v := range tc.expected {
				if result[k] != v {
					t.Errorf("Fields[%q] = %v, expected %v", k, result[k], v)
				}
			}
		})
	}
}

func TestErrorAndDurationFields(t *testing.T) {
	fields := ErrorFields("dispose", fmt.Errorf("something broke"))
	if fields[FieldOperation] != "dispose" || fields[FieldError] != "something broke" {
		t.Errorf("unexpected error fields %v", fields)
	}

	fields = DurationFields("configure", 150*time.Millisecond)
	if fields[FieldDuration] != int64(150) {
		t.Errorf("expected duration 150, got %v", fields[FieldDuration])
	}

	merged := MergeWithError(nil, fmt.Errorf("x"))
	if merged[FieldError] != "x" {
		t.Errorf("expected error field from nil map, got %v", merged)
	}
}
