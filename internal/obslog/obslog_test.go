package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitWritesJSONFile(t *testing.T) {
	defer Set(nil)
	path := filepath.Join(t.TempDir(), "nested", "server.log")
	if err := Init(Options{Level: "debug", ToFile: true, File: path, Format: "json"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Info("match_create", zap.String("match_id", "m-1"))
	L().Debug("debug_line")
	Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(raw)
	if !strings.Contains(out, `"msg":"match_create"`) || !strings.Contains(out, `"match_id":"m-1"`) || !strings.Contains(out, "debug_line") {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestLevelFiltersAndSet(t *testing.T) {
	defer Set(nil)
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	L().Debug("hidden")
	L().Warn("shown", zap.Int("n", 1))
	if logs.Len() != 1 || logs.All()[0].Message != "shown" {
		t.Fatalf("unexpected entries: %+v", logs.All())
	}

	cases := map[string]zapcore.Level{"debug": zapcore.DebugLevel, "WARNING": zapcore.WarnLevel, "error": zapcore.ErrorLevel, "": zapcore.InfoLevel, "bogus": zapcore.InfoLevel}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDefaultLoggerIsNop(t *testing.T) {
	Set(nil)
	if L() == nil {
		t.Fatalf("L() must never be nil")
	}
	L().Info("nothing happens")
}
