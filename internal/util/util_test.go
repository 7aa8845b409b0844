package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetLineAndColumn(t *testing.T) {
	src := "var a = 1;\nprint a;\n  print b;"
	tests := []struct {
		pos          int
		line, column int
	}{
		{0, 1, 1},
		{4, 1, 5},
		{11, 2, 1},
		{17, 2, 7},
		{22, 3, 3},
	}

	for _, tt := range tests {
		line, col := GetLineAndColumn(src, tt.pos)
		if line != tt.line || col != tt.column {
			t.Errorf("pos %d: expected %d:%d, got %d:%d", tt.pos, tt.line, tt.column, line, col)
		}
	}
}

func TestGetContextLines(t *testing.T) {
	src := "var a = 1;\nvar b = 2;\nvar c = 3;\nprint d;\n"

	got := GetContextLines(src, 4, 7)
	expected := "" +
		"       2 | var b = 2;\n" +
		"       3 | var c = 3;\n" +
		"  >    4 | print d;\n" +
		"                 ^ here"
	if got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}
}

func TestGetContextLinesFirstLineAndOutOfRange(t *testing.T) {
	got := GetContextLines("print x;", 1, 100)
	if !strings.HasPrefix(got, "  >    1 | print x;\n") || !strings.HasSuffix(got, "^ here") {
		t.Errorf("unexpected context: %q", got)
	}
	if GetContextLines("print x;", 3, 1) != "" {
		t.Errorf("expected empty context past the end of the source")
	}
}

func TestDefaultConfiguration(t *testing.T) {
	cfg := DefaultConfiguration()
	if cfg.REPL.Prompt != "> " {
		t.Errorf("expected default prompt, got %q", cfg.REPL.Prompt)
	}
	if cfg.History.Driver != "" {
		t.Errorf("history should be disabled by default")
	}
	if cfg.Path != "" {
		t.Errorf("defaults should have no path")
	}
}

func TestFindAndLoadConfiguration(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	content := `
log-level = "debug"
debug-ast = true

[history]
driver = "sqlite3"
dsn = "runs.db"

[repl]
history-file = "/tmp/lox_history"
`
	path := filepath.Join(root, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := FindAndLoadConfiguration(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Path != path {
		t.Errorf("expected path %s, got %s", path, cfg.Path)
	}
	if cfg.LogLevel != "debug" || !cfg.DebugAST {
		t.Errorf("top-level keys not decoded: %+v", cfg)
	}
	if cfg.History.Driver != "sqlite3" || cfg.History.DSN != "runs.db" {
		t.Errorf("history not decoded: %+v", cfg.History)
	}
	if cfg.REPL.HistoryFile != "/tmp/lox_history" {
		t.Errorf("repl history file not decoded: %q", cfg.REPL.HistoryFile)
	}
	if cfg.REPL.Prompt != "> " {
		t.Errorf("expected default prompt to survive, got %q", cfg.REPL.Prompt)
	}
}

func TestFindAndLoadConfigurationWithoutFile(t *testing.T) {
	cfg, err := FindAndLoadConfiguration(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Path != "" && !strings.HasSuffix(cfg.Path, ConfigFileName) {
		t.Errorf("unexpected path %q", cfg.Path)
	}
}

func TestLoadConfigurationErrors(t *testing.T) {
	if _, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(bad, []byte("log-level = "), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfiguration(bad); err == nil || !strings.Contains(err.Error(), "parse error") {
		t.Errorf("expected parse error, got %v", err)
	}
}
