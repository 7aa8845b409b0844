package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"lox/internal/history"
	"lox/internal/repl"
	"lox/internal/runner"
	"lox/internal/util"
	"os"
	"os/signal"
	"path/filepath"
	"time"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
	help      bool
	version   bool
	// logging
	logLevel string
	logFile  string
	// config vars
	configPath    string
	historyDriver string
	historyDSN    string
	debugAST      bool
	showContext   bool
	listHistory   bool
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	flag.StringVar(&configPath, "config", "", "Configuration file (default: nearest lox.toml)")
	// parser config
	flag.BoolVar(&debugAST, "debug-ast", false, "Print the parsed AST as JSON")
	flag.BoolVar(&showContext, "context", false, "Show source context under runtime errors")
	// history config
	flag.StringVar(&historyDriver, "history-driver", "", "Record runs with sqlite3, mysql or postgres")
	flag.StringVar(&historyDSN, "history-dsn", "", "Data source name for the history database")
	flag.BoolVar(&listHistory, "history", false, "List recent runs and exit")
	// log config
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	config, err := loadConfiguration()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return runner.ExitUsage
	}

	// Creates a new Logger that uses a JSONHandler to write to the configured log writer
	loggerOptions := &slog.HandlerOptions{
		AddSource: false,
		Level:     logLevelFromString(config.LogLevel),
	}
	logWriter := configureLogWriter(config.LogFile)
	defaultLogger := slog.New(slog.NewJSONHandler(logWriter, loggerOptions))
	slog.SetDefault(defaultLogger)

	if version {
		printVersion()
		return runner.ExitOK
	}

	if help {
		printHelp()
		return runner.ExitOK
	}

	if flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Usage: lox [options] [script]")
		return runner.ExitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store := openHistory(ctx, config)
	if store != nil {
		defer store.Close()
	}

	if listHistory {
		return printHistory(ctx, store)
	}

	if flag.NArg() == 1 {
		return runFile(ctx, flag.Arg(0), config, store)
	}

	// liner handles Ctrl+C itself, so the REPL is not tied to the signal context
	stop()
	repl.StartTerminal(context.Background(), repl.Options{
		Prompt:      config.REPL.Prompt,
		HistoryFile: config.REPL.HistoryFile,
		Context:     showContext,
		OnResult:    func(res *runner.Result) { record(context.Background(), store, res) },
	})
	return runner.ExitOK
}

// loadConfiguration reads the config file and applies flag overrides.
func loadConfiguration() (util.Configuration, error) {
	var (
		config util.Configuration
		err    error
	)
	if configPath != "" {
		config, err = util.LoadConfiguration(configPath)
	} else {
		config, err = util.FindAndLoadConfiguration(".")
	}
	if err != nil {
		return config, err
	}

	config.Version = Version
	config.BuildDate = BuildDate
	config.Commit = Commit

	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if logFile != "" {
		config.LogFile = logFile
	}
	if historyDriver != "" {
		config.History.Driver = historyDriver
	}
	if historyDSN != "" {
		config.History.DSN = historyDSN
	}
	config.DebugAST = config.DebugAST || debugAST
	return config, nil
}

func runFile(ctx context.Context, path string, config util.Configuration, store *history.Store) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read %s: %v\n", path, err)
		return runner.ExitUsage
	}

	opts := runner.Options{Name: path, Stdout: os.Stdout}
	if config.DebugAST {
		opts.AST = os.Stderr
	}

	res, err := runner.Run(ctx, string(src), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return runner.ExitRuntimeError
	}

	for _, msg := range res.Diagnostics() {
		fmt.Fprintln(os.Stderr, msg)
	}
	if showContext && res.ErrorContext != "" {
		fmt.Fprintln(os.Stderr, res.ErrorContext)
	}

	record(ctx, store, res)
	return res.Status.ExitCode()
}

// openHistory returns nil when recording is disabled or the database is
// unreachable; a broken history store never stops a program from running.
func openHistory(ctx context.Context, config util.Configuration) *history.Store {
	if config.History.Driver == "" {
		return nil
	}
	store, err := history.Open(ctx, config.History.Driver, config.History.DSN)
	if err != nil {
		slog.Error("history disabled", slog.String("driver", config.History.Driver), slog.Any("error", err))
		return nil
	}
	return store
}

func record(ctx context.Context, store *history.Store, res *runner.Result) {
	if store == nil {
		return
	}
	if err := store.Record(ctx, history.NewRun(res)); err != nil {
		slog.Error("failed to record run", slog.String("name", res.Name), slog.Any("error", err))
	}
}

func printHistory(ctx context.Context, store *history.Store) int {
	if store == nil {
		fmt.Fprintln(os.Stderr, "no history store configured (use -history-driver and -history-dsn)")
		return runner.ExitUsage
	}
	runs, err := store.Recent(ctx, 20)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return runner.ExitRuntimeError
	}
	writeHistory(os.Stdout, runs)
	return runner.ExitOK
}

func writeHistory(w io.Writer, runs []history.Run) {
	for _, run := range runs {
		fmt.Fprintf(w, "%s  %s  %-15s %3d  %8s  %s\n",
			run.ID,
			run.StartedAt.Format(time.RFC3339),
			run.Status,
			run.ExitCode,
			run.Duration.Round(time.Microsecond),
			run.Source)
	}
}

func configureLogWriter(logFile string) *os.File {
	var logWriter *os.File
	var err error
	if logFile != "" {
		// Create parent directories if they don't exist
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", logFile, err)
			return os.Stderr
		}
		logWriter, err = os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
			logWriter = os.Stderr
		}
	} else {
		logWriter = os.Stderr
	}
	return logWriter
}

func printVersion() {
	fmt.Printf("lox version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: lox [options] [script]

Options:
  -config <path>          Read configuration from path. Default is the nearest lox.toml.
  -debug-ast              Print the parsed AST as JSON to stderr before running.
  -context                Show the source lines around a runtime error.
  -history-driver <name>  Record runs in a database: sqlite3, mysql or postgres.
  -history-dsn <dsn>      Data source name for the history database.
  -history                List the most recent recorded runs and exit.
  -help                   Display this help information and exit.
  -version                Display version information and exit.
  -log-level <level>      Set the log level: debug, info, warn, error. Default is 'error'.
  -log-file <path>        Specify a log file to write logs. Default is stderr.

Details:
Without a script lox starts an interactive prompt. Exit codes are 64 for
usage errors, 65 for syntax and resolution errors and 70 for runtime errors.

Examples:
  lox                                     Start the REPL
  lox hello.lox                           Run a script
  lox -history-driver sqlite3 -history-dsn runs.db hello.lox
                                          Run a script and record it

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, Version, BuildDate, Commit)
}

func logLevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelError
	}
}
