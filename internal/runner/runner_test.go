package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type fixtureCase struct {
	Name   string   `yaml:"name"`
	Source string   `yaml:"source"`
	Output string   `yaml:"output"`
	Status string   `yaml:"status"`
	Errors []string `yaml:"errors"`
}

type fixtureFile struct {
	Cases []fixtureCase `yaml:"cases"`
}

func loadFixtures(t *testing.T) map[string][]fixtureCase {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	if err != nil {
		t.Fatalf("glob fixtures: %v", err)
	}
	if len(paths) == 0 {
		t.Fatalf("no fixtures found")
	}

	fixtures := make(map[string][]fixtureCase)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		var file fixtureFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		fixtures[filepath.Base(path)] = file.Cases
	}
	return fixtures
}

func TestFixtures(t *testing.T) {
	for file, cases := range loadFixtures(t) {
		for _, tc := range cases {
			t.Run(file+"/"+tc.Name, func(t *testing.T) {
				res, err := Run(context.Background(), tc.Source, Options{Name: tc.Name})
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				if res.Status.String() != tc.Status {
					t.Errorf("expected status %s, got %s (diagnostics %q)", tc.Status, res.Status, res.Diagnostics())
				}
				if res.Output != tc.Output {
					t.Errorf("expected output=%q, got=%q", tc.Output, res.Output)
				}

				diags := res.Diagnostics()
				if len(diags) != len(tc.Errors) {
					t.Fatalf("expected %d errors, got %d: %q", len(tc.Errors), len(diags), diags)
				}
				for i := range diags {
					if diags[i] != tc.Errors[i] {
						t.Errorf("errors[%d] expected=%q, got=%q", i, tc.Errors[i], diags[i])
					}
				}
			})
		}
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		status   Status
		expected int
	}{
		{StatusOK, ExitOK},
		{StatusStaticFailure, ExitStaticError},
		{StatusRuntimeFailure, ExitRuntimeError},
	}

	for _, tt := range tests {
		if got := tt.status.ExitCode(); got != tt.expected {
			t.Errorf("%s: expected exit %d, got %d", tt.status, tt.expected, got)
		}
	}
	if ExitStaticError == ExitRuntimeError {
		t.Fatalf("static and runtime failures must be distinguishable")
	}
}

func TestSessionPersistsGlobals(t *testing.T) {
	session := NewSession()
	ctx := context.Background()

	steps := []struct {
		src    string
		output string
	}{
		{"var greeting = \"hi\";", ""},
		{"fun shout(s) { return s + \"!\"; }", ""},
		{"print shout(greeting);", "hi!\n"},
	}

	for _, step := range steps {
		res, err := session.Run(ctx, step.src, Options{})
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", step.src, err)
		}
		if res.Status != StatusOK {
			t.Fatalf("%q: expected ok, got %s %q", step.src, res.Status, res.Diagnostics())
		}
		if res.Output != step.output {
			t.Errorf("%q: expected output %q, got %q", step.src, step.output, res.Output)
		}
	}
}

func TestSessionSurvivesErrors(t *testing.T) {
	session := NewSession()
	ctx := context.Background()

	res, _ := session.Run(ctx, "var x = 1; print missing;", Options{})
	if res.Status != StatusRuntimeFailure {
		t.Fatalf("expected runtime failure, got %s", res.Status)
	}

	res, _ = session.Run(ctx, "print x;", Options{})
	if res.Status != StatusOK || res.Output != "1\n" {
		t.Errorf("expected session to keep x, got %s %q", res.Status, res.Output)
	}
}

func TestSeparateRunsAreIsolated(t *testing.T) {
	ctx := context.Background()
	if _, err := Run(ctx, "var shared = 1;", Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, _ := Run(ctx, "print shared;", Options{})
	if res.Status != StatusRuntimeFailure {
		t.Errorf("expected undefined variable in a fresh run, got %s", res.Status)
	}
}

func TestStaticErrorsSuppressExecution(t *testing.T) {
	var stdout bytes.Buffer
	res, err := Run(context.Background(), "print \"side effect\";\n{ var a = 1; var a = 2; }", Options{Stdout: &stdout})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusStaticFailure {
		t.Fatalf("expected static failure, got %s", res.Status)
	}
	if stdout.Len() != 0 || res.Output != "" {
		t.Errorf("expected no output, got %q", stdout.String())
	}
}

func TestStdoutReceivesOutput(t *testing.T) {
	var stdout bytes.Buffer
	res, err := Run(context.Background(), "print 1; print 2;", Options{Stdout: &stdout})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout.String() != "1\n2\n" || res.Output != "1\n2\n" {
		t.Errorf("expected tee'd output, got stdout=%q result=%q", stdout.String(), res.Output)
	}
}

func TestASTDump(t *testing.T) {
	var ast bytes.Buffer
	if _, err := Run(context.Background(), "print 1;", Options{AST: &ast}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(ast.String(), `"PrintStatement"`) {
		t.Errorf("expected AST JSON, got %s", ast.String())
	}
}

func TestCancelledContextSkipsExecution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout bytes.Buffer
	res, err := Run(ctx, "print 1;", Options{Name: "cancelled", Stdout: &stdout})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res != nil {
		t.Errorf("expected no result")
	}
	if stdout.Len() != 0 {
		t.Errorf("expected nothing printed, got %q", stdout.String())
	}
}

func TestResultTiming(t *testing.T) {
	res, _ := Run(context.Background(), "print 1;", Options{Name: "timed"})
	if res.StartedAt.IsZero() {
		t.Errorf("expected start time")
	}
	if res.Duration < 0 {
		t.Errorf("expected non-negative duration")
	}
	if res.Name != "timed" {
		t.Errorf("expected name to be carried, got %q", res.Name)
	}
}

func TestRuntimeErrorContext(t *testing.T) {
	res, _ := Run(context.Background(), "var a = 1;\nprint a + nil;", Options{})
	if res.Status != StatusRuntimeFailure {
		t.Fatalf("expected runtime failure, got %s", res.Status)
	}
	if !strings.Contains(res.ErrorContext, ">    2 | print a + nil;") {
		t.Errorf("expected error line in context, got:\n%s", res.ErrorContext)
	}
	if !strings.HasSuffix(res.ErrorContext, "^ here") {
		t.Errorf("expected caret, got:\n%s", res.ErrorContext)
	}
}
