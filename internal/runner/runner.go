package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"lox/internal/evaluator"
	"lox/internal/lexer"
	"lox/internal/parser"
	"lox/internal/resolver"
	"lox/internal/util"
	"time"
)

// Process exit codes, following the BSD sysexits convention.
const (
	ExitOK           = 0
	ExitUsage        = 64
	ExitStaticError  = 65
	ExitRuntimeError = 70
)

type Status int

const (
	StatusOK Status = iota
	StatusStaticFailure
	StatusRuntimeFailure
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusStaticFailure:
		return "static_failure"
	case StatusRuntimeFailure:
		return "runtime_failure"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) ExitCode() int {
	switch s {
	case StatusStaticFailure:
		return ExitStaticError
	case StatusRuntimeFailure:
		return ExitRuntimeError
	default:
		return ExitOK
	}
}

type Options struct {
	// Name identifies the source in logs and history, e.g. a file path.
	Name string
	// Stdout, when set, receives program output as it is printed.
	Stdout io.Writer
	// AST, when set, receives the parsed program as JSON before execution.
	AST io.Writer
}

type Result struct {
	Name         string
	Output       string
	StaticErrors []string
	RuntimeError string
	// ErrorContext shows the source around a runtime error.
	ErrorContext string
	Status       Status
	StartedAt    time.Time
	Duration     time.Duration
}

// Diagnostics joins every reported error, one per line.
func (r *Result) Diagnostics() []string {
	if r.RuntimeError != "" {
		return append(append([]string{}, r.StaticErrors...), r.RuntimeError)
	}
	return r.StaticErrors
}

// Session is one execution context. Globals defined by one Run are visible
// to the next.
type Session struct {
	out       *outputWriter
	evaluator *evaluator.Evaluator
}

func NewSession() *Session {
	out := &outputWriter{}
	return &Session{
		out:       out,
		evaluator: evaluator.New(evaluator.NewGlobals(), out),
	}
}

// Run executes src in a fresh session.
func Run(ctx context.Context, src string, opts Options) (*Result, error) {
	return NewSession().Run(ctx, src, opts)
}

// Run lexes, parses, resolves and interprets src. Any static error skips
// execution entirely. The returned error is non-nil only when ctx is done
// before execution starts.
func (s *Session) Run(ctx context.Context, src string, opts Options) (*Result, error) {
	res := &Result{Name: opts.Name, StartedAt: time.Now()}
	defer func() { res.Duration = time.Since(res.StartedAt) }()

	l := lexer.New(src)
	p := parser.New(l)
	program := p.ParseProgram()

	for _, err := range l.Errors() {
		res.StaticErrors = append(res.StaticErrors, err.Error())
	}
	for _, err := range p.Errors() {
		res.StaticErrors = append(res.StaticErrors, err.Error())
	}
	if len(res.StaticErrors) > 0 {
		res.Status = StatusStaticFailure
		s.logResult(res)
		return res, nil
	}

	if opts.AST != nil {
		if err := parser.WriteASTToJSON(program, opts.AST); err != nil {
			slog.Warn("failed to dump AST", slog.Any("error", err))
		}
	}

	locals, staticErrs := resolver.New().Resolve(program)
	for _, err := range staticErrs {
		res.StaticErrors = append(res.StaticErrors, err.Error())
	}
	if len(res.StaticErrors) > 0 {
		res.Status = StatusStaticFailure
		s.logResult(res)
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run %s: %w", opts.Name, err)
	}

	s.out.reset(opts.Stdout)
	rte := s.evaluator.Interpret(program, locals)
	res.Output = s.out.String()

	if rte != nil {
		res.RuntimeError = rte.Error()
		res.Status = StatusRuntimeFailure
		_, col := util.GetLineAndColumn(src, rte.Token.Position)
		res.ErrorContext = util.GetContextLines(src, rte.Token.Line, col)
	}
	s.logResult(res)
	return res, nil
}

func (s *Session) logResult(res *Result) {
	slog.Debug("run finished",
		slog.String("name", res.Name),
		slog.String("status", res.Status.String()),
		slog.Int("static_errors", len(res.StaticErrors)),
		slog.Bool("runtime_error", res.RuntimeError != ""))
}

// outputWriter captures one run's output and optionally forwards it.
type outputWriter struct {
	buf bytes.Buffer
	tee io.Writer
}

func (w *outputWriter) reset(tee io.Writer) {
	w.buf.Reset()
	w.tee = tee
}

func (w *outputWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if w.tee != nil {
		return w.tee.Write(p)
	}
	return len(p), nil
}

func (w *outputWriter) String() string {
	return w.buf.String()
}
