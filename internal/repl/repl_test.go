package repl

import (
	"bytes"
	"context"
	"io"
	"lox/internal/runner"
	"strings"
	"testing"

	"github.com/peterh/liner"
)

func TestStartKeepsSessionAcrossLines(t *testing.T) {
	in := strings.NewReader("var a = 1;\nfun inc() { a = a + 1; return a; }\nprint inc();\nprint a;\n")
	var out, errOut bytes.Buffer

	Start(context.Background(), in, &out, &errOut, Options{})

	if !strings.Contains(out.String(), "2\n") {
		t.Errorf("expected output 2, got %q", out.String())
	}
	if errOut.Len() != 0 {
		t.Errorf("expected no diagnostics, got %q", errOut.String())
	}
	if strings.Count(out.String(), PROMPT) != 5 {
		t.Errorf("expected a prompt per line plus the final one, got %q", out.String())
	}
}

func TestStartReportsErrorsAndContinues(t *testing.T) {
	in := strings.NewReader("print missing;\nvar = ;\nprint \"still here\";\n")
	var out, errOut bytes.Buffer

	var statuses []runner.Status
	Start(context.Background(), in, &out, &errOut, Options{
		OnResult: func(res *runner.Result) { statuses = append(statuses, res.Status) },
	})

	if !strings.Contains(errOut.String(), "Undefined variable 'missing'.\n[line 1]") {
		t.Errorf("expected runtime error, got %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "Expect variable name.") {
		t.Errorf("expected syntax error, got %q", errOut.String())
	}
	if !strings.Contains(out.String(), "still here\n") {
		t.Errorf("expected session to continue, got %q", out.String())
	}

	expected := []runner.Status{runner.StatusRuntimeFailure, runner.StatusStaticFailure, runner.StatusOK}
	if len(statuses) != len(expected) {
		t.Fatalf("expected %d results, got %v", len(expected), statuses)
	}
	for i := range expected {
		if statuses[i] != expected[i] {
			t.Errorf("result %d: expected %s, got %s", i, expected[i], statuses[i])
		}
	}
}

func TestStartJoinsMultiLineInput(t *testing.T) {
	in := strings.NewReader("class Greeter {\n  hi() {\n    print \"hi\";\n  }\n}\nGreeter().hi();\n")
	var out, errOut bytes.Buffer

	Start(context.Background(), in, &out, &errOut, Options{Prompt: "lox> "})

	if errOut.Len() != 0 {
		t.Fatalf("expected no diagnostics, got %q", errOut.String())
	}
	if !strings.Contains(out.String(), "hi\n") {
		t.Errorf("expected method output, got %q", out.String())
	}
	if strings.Count(out.String(), CONTINUE_PROMPT) != 4 {
		t.Errorf("expected 4 continuation prompts, got %q", out.String())
	}
	if !strings.HasPrefix(out.String(), "lox> ") {
		t.Errorf("expected custom prompt, got %q", out.String())
	}
}

func TestStartPrintsErrorContext(t *testing.T) {
	in := strings.NewReader("print -\"x\";\n")
	var out, errOut bytes.Buffer

	Start(context.Background(), in, &out, &errOut, Options{Context: true})

	if !strings.Contains(errOut.String(), "Operand must be a number.") {
		t.Errorf("expected runtime error, got %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "^ here") {
		t.Errorf("expected context caret, got %q", errOut.String())
	}
}

func TestIncomplete(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"print 1;", false},
		{"fun f() {", true},
		{"fun f() { print 1; }", false},
		{"print (1 +", true},
		{"print \"open", true},
		{"}", false},
	}

	for _, tt := range tests {
		if got := incomplete(tt.input); got != tt.expected {
			t.Errorf("incomplete(%q): expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

type scriptedPrompter struct {
	lines []string
	errs  []error
}

func (s *scriptedPrompter) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line, err := s.lines[0], s.errs[0]
	s.lines, s.errs = s.lines[1:], s.errs[1:]
	return line, err
}

func TestAbortedPromptDropsPendingInput(t *testing.T) {
	p := &scriptedPrompter{
		lines: []string{"fun f() {", "", "print 3;"},
		errs:  []error{nil, liner.ErrPromptAborted, nil},
	}
	var out, errOut bytes.Buffer
	var remembered []string

	loop(context.Background(), p, &out, &errOut, Options{}, func(src string) { remembered = append(remembered, src) })

	if out.String() != "3\n" {
		t.Errorf("expected only the later statement to run, got %q", out.String())
	}
	if len(remembered) != 1 || remembered[0] != "print 3;" {
		t.Errorf("unexpected history %q", remembered)
	}
}

func TestCancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out, errOut bytes.Buffer
	Start(ctx, strings.NewReader("print 1;\n"), &out, &errOut, Options{})

	if out.Len() != 0 {
		t.Errorf("expected nothing read, got %q", out.String())
	}
}
