// Package journal records finished fit runs in a SQL database.
//
// Two drivers are supported: "sqlite" (a file path or ":memory:") and
// "mysql" (a go-sql-driver DSN). The fit_runs table is created on open.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	_ "modernc.org/sqlite"
)

const (
	SQLite = "sqlite"
	MySQL  = "mysql"
)

const createTable = `
CREATE TABLE IF NOT EXISTS fit_runs (
	id           VARCHAR(36) PRIMARY KEY,
	created_at   BIGINT NOT NULL,
	method       VARCHAR(8) NOT NULL,
	format       VARCHAR(8) NOT NULL,
	cube_size    INTEGER NOT NULL,
	samples      INTEGER NOT NULL,
	fit_rms      DOUBLE PRECISION NOT NULL,
	fit_max      DOUBLE PRECISION NULL,
	lut_rms      DOUBLE PRECISION NOT NULL,
	mean_delta_e DOUBLE PRECISION NOT NULL,
	max_delta_e  DOUBLE PRECISION NOT NULL,
	output       TEXT NOT NULL,
	elapsed_ms   BIGINT NOT NULL
)`

const insertRun = `INSERT INTO fit_runs
	(id, created_at, method, format, cube_size, samples, fit_rms, fit_max,
	 lut_rms, mean_delta_e, max_delta_e, output, elapsed_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectRuns = `SELECT
	id, created_at, method, format, cube_size, samples, fit_rms, fit_max,
	lut_rms, mean_delta_e, max_delta_e, output, elapsed_ms
FROM fit_runs
ORDER BY created_at DESC, id
LIMIT ?`

// Run is one journal entry.
type Run struct {
	ID         string
	Time       time.Time
	Method     string
	Format     string
	CubeSize   int
	Samples    int
	FitRMS     float64
	FitMax     sql.NullFloat64
	LUTRMS     float64
	MeanDeltaE float64
	MaxDeltaE  float64
	Output     string
	Elapsed    time.Duration
}

type Journal struct {
	db *sql.DB
}

// Open connects to the journal database and creates the fit_runs table if
// needed. A mysql DSN without password prompts for one when stdin is a
// terminal.
func Open(driver, dsn string) (*Journal, error) {
	switch driver {
	case SQLite:
	case MySQL:
		var prompt func() (string, error)
		if term.IsTerminal(int(os.Stdin.Fd())) {
			prompt = credentials
		}
		var err error
		if dsn, err = mysqlDSN(dsn, prompt); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("journal: unknown driver %q, use one of [%s | %s]", driver, SQLite, MySQL)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == SQLite {
		// A private in-memory database only lives as long as its connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetConnMaxLifetime(time.Minute * 3)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: init table: %w", err)
	}
	logrus.WithField("driver", driver).Debug("journal opened")
	return &Journal{db: db}, nil
}

func credentials() (string, error) {
	fmt.Fprint(os.Stderr, "Enter Password: ")
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(bytePassword)), nil
}

// mysqlDSN fills in a missing password from prompt, if given.
func mysqlDSN(dsn string, prompt func() (string, error)) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("journal: %w", err)
	}
	if cfg.Passwd == "" && prompt != nil {
		if cfg.Passwd, err = prompt(); err != nil {
			return "", fmt.Errorf("journal: reading password: %w", err)
		}
	}
	return cfg.FormatDSN(), nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores run. A missing ID or time is filled in.
func (j *Journal) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Time.IsZero() {
		run.Time = time.Now()
	}
	_, err := j.db.ExecContext(ctx, insertRun,
		run.ID, run.Time.UnixMilli(), run.Method, run.Format, run.CubeSize, run.Samples,
		run.FitRMS, run.FitMax, run.LUTRMS, run.MeanDeltaE, run.MaxDeltaE,
		run.Output, run.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("journal: record run: %w", err)
	}
	return nil
}

// List returns up to limit runs, most recent first.
func (j *Journal) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, selectRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created, elapsed int64
		err := rows.Scan(&r.ID, &created, &r.Method, &r.Format, &r.CubeSize, &r.Samples,
			&r.FitRMS, &r.FitMax, &r.LUTRMS, &r.MeanDeltaE, &r.MaxDeltaE, &r.Output, &elapsed)
		if err != nil {
			return nil, err
		}
		r.Time = time.UnixMilli(created)
		r.Elapsed = time.Duration(elapsed) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
