package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"lox/internal/runner"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var ErrNotFound = errors.New("run not found")

// Run is one recorded execution of a program.
type Run struct {
	ID          uuid.UUID
	Source      string
	Status      string
	ExitCode    int
	Output      string
	Diagnostics []string
	StartedAt   time.Time
	Duration    time.Duration
}

// NewRun captures res under a fresh id.
func NewRun(res *runner.Result) Run {
	return Run{
		ID:          uuid.New(),
		Source:      res.Name,
		Status:      res.Status.String(),
		ExitCode:    res.Status.ExitCode(),
		Output:      res.Output,
		Diagnostics: res.Diagnostics(),
		StartedAt:   res.StartedAt,
		Duration:    res.Duration,
	}
}

type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to dsn with one of the supported drivers and applies the
// schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported history driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	if driver == DriverSQLite {
		// sqlite serializes writers; one connection also keeps :memory: stable
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("history store opened", slog.String("driver", driver))
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id VARCHAR(36) PRIMARY KEY,
	source VARCHAR(1024) NOT NULL,
	status VARCHAR(32) NOT NULL,
	exit_code INTEGER NOT NULL,
	output TEXT NOT NULL,
	diagnostics TEXT NOT NULL,
	started_at BIGINT NOT NULL,
	duration_ns BIGINT NOT NULL
)`

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate history: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, run Run) error {
	query := s.rebind(`INSERT INTO runs
		(id, source, status, exit_code, output, diagnostics, started_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	diagnostics, err := json.Marshal(run.Diagnostics)
	if err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query,
		run.ID.String(),
		run.Source,
		run.Status,
		run.ExitCode,
		run.Output,
		string(diagnostics),
		run.StartedAt.UnixNano(),
		int64(run.Duration),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	query := s.rebind(`SELECT id, source, status, exit_code, output, diagnostics, started_at, duration_ns
		FROM runs ORDER BY started_at DESC LIMIT ?`)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return runs, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	query := s.rebind(`SELECT id, source, status, exit_code, output, diagnostics, started_at, duration_ns
		FROM runs WHERE id = ?`)

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run         Run
		id          string
		diagnostics string
		startedAt   int64
		duration    int64
	)
	err := row.Scan(&id, &run.Source, &run.Status, &run.ExitCode, &run.Output, &diagnostics, &startedAt, &duration)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.ID, err = uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("scan run id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(diagnostics), &run.Diagnostics); err != nil {
		return Run{}, fmt.Errorf("decode diagnostics of %s: %w", id, err)
	}
	run.StartedAt = time.Unix(0, startedAt)
	run.Duration = time.Duration(duration)
	return run, nil
}

// rebind rewrites ? placeholders for drivers that number them.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
