package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"lox/internal/lexer"
	"lox/internal/runner"
	"lox/internal/token"
	"os"
	"strings"

	"github.com/peterh/liner"
)

const (
	PROMPT          = "> "
	CONTINUE_PROMPT = "... "
)

type Options struct {
	Prompt      string
	HistoryFile string
	// Context prints the source around runtime errors.
	Context bool
	// OnResult, when set, sees every completed run.
	OnResult func(*runner.Result)
}

// prompter reads one line after showing prompt. io.EOF ends the session,
// liner.ErrPromptAborted drops the pending input.
type prompter interface {
	Prompt(prompt string) (string, error)
}

// Start runs a session over in, writing prompts and program output to out
// and diagnostics to errOut.
func Start(ctx context.Context, in io.Reader, out, errOut io.Writer, opts Options) {
	loop(ctx, &scannerPrompter{scanner: bufio.NewScanner(in), out: out}, out, errOut, opts, nil)
}

// StartTerminal runs a line-editing session on the process terminal. When
// stdin is not a terminal it reads plain lines instead.
func StartTerminal(ctx context.Context, opts Options) {
	if !isTerminal(os.Stdin) || !liner.TerminalSupported() {
		Start(ctx, os.Stdin, os.Stdout, os.Stderr, opts)
		return
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if opts.HistoryFile != "" {
		if f, err := os.Open(opts.HistoryFile); err == nil {
			if _, err := ln.ReadHistory(f); err != nil {
				slog.Warn("failed to read REPL history", slog.String("file", opts.HistoryFile), slog.Any("error", err))
			}
			f.Close()
		}
	}

	loop(ctx, ln, os.Stdout, os.Stderr, opts, func(src string) {
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
	})
	fmt.Fprintln(os.Stdout)

	if opts.HistoryFile != "" {
		if err := saveHistory(ln, opts.HistoryFile); err != nil {
			slog.Warn("failed to save REPL history", slog.String("file", opts.HistoryFile), slog.Any("error", err))
		}
	}
}

func loop(ctx context.Context, p prompter, out, errOut io.Writer, opts Options, remember func(string)) {
	prompt := opts.Prompt
	if prompt == "" {
		prompt = PROMPT
	}
	session := runner.NewSession()

	for n := 1; ctx.Err() == nil; n++ {
		src, err := readInput(p, prompt)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) {
				slog.Warn("failed to read input", slog.Any("error", err))
				return
			}
			continue
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		if remember != nil {
			remember(src)
		}

		res, err := session.Run(ctx, src, runner.Options{Name: fmt.Sprintf("repl:%d", n), Stdout: out})
		if err != nil {
			return
		}
		for _, msg := range res.Diagnostics() {
			fmt.Fprintln(errOut, msg)
		}
		if opts.Context && res.ErrorContext != "" {
			fmt.Fprintln(errOut, res.ErrorContext)
		}
		if opts.OnResult != nil {
			opts.OnResult(res)
		}
	}
}

// readInput reads lines until brackets balance and strings close, so a
// class or function can span several lines.
func readInput(p prompter, prompt string) (string, error) {
	var b strings.Builder
	for {
		current := prompt
		if b.Len() > 0 {
			current = CONTINUE_PROMPT
		}
		line, err := p.Prompt(current)
		if err != nil {
			if errors.Is(err, io.EOF) && b.Len() > 0 {
				return b.String(), nil
			}
			return "", err
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if !incomplete(b.String()) {
			return b.String(), nil
		}
	}
}

func incomplete(src string) bool {
	l := lexer.New(src)
	depth := 0
	for _, tok := range l.Tokens() {
		switch tok.Type {
		case token.LBRACE, token.LPAREN:
			depth++
		case token.RBRACE, token.RPAREN:
			depth--
		}
	}
	for _, err := range l.Errors() {
		if err.Message == "Unterminated string." {
			return true
		}
	}
	return depth > 0
}

func saveHistory(ln *liner.State, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := ln.WriteHistory(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

type scannerPrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (s *scannerPrompter) Prompt(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}
