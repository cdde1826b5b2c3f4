// Package history records generation runs in a local SQLite database so
// classifications can be compared across runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/manifest"
	"github.com/papapumpkin/constellation/internal/star"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id                TEXT PRIMARY KEY,
    started_at        TEXT NOT NULL,
    finished_at       TEXT NOT NULL,
    rules_fingerprint TEXT NOT NULL DEFAULT '',
    modules           INTEGER NOT NULL,
    manifests         INTEGER NOT NULL,
    failures          INTEGER NOT NULL,
    success_rate      REAL NOT NULL,
    violations        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_stars (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    star   TEXT NOT NULL,
    count  INTEGER NOT NULL,
    PRIMARY KEY (run_id, star)
);

CREATE TABLE IF NOT EXISTS assignments (
    run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    lane       TEXT NOT NULL,
    path       TEXT NOT NULL,
    star       TEXT NOT NULL,
    confidence REAL NOT NULL,
    rule       TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, lane, path)
);
`

// Run summarizes one recorded generation run.
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	RulesFingerprint string
	Modules          int
	Manifests        int
	Failures         int
	SuccessRate      float64
	Violations       int
	Stars            map[star.Star]int
}

// Assignment is the star a module received in a run.
type Assignment struct {
	Lane       inventory.Lane
	Path       string
	Star       star.Star
	Confidence float64
	Rule       string
}

// Key returns the module-lane key.
func (a Assignment) Key() string {
	return inventory.Key(a.Lane, a.Path)
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path in WAL mode and
// creates its tables if they do not exist.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	// SQLite has a single writer; one connection keeps PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores run together with the assignment of every manifest in one
// transaction. A run without an ID is given one; the ID is returned.
func (s *Store) Record(ctx context.Context, run Run, manifests []manifest.Manifest) (string, error) {
	if run.ID == "" {
		run.ID = NewRunID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const insertRun = `
		INSERT INTO runs (id, started_at, finished_at, rules_fingerprint, modules, manifests, failures, success_rate, violations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertRun,
		run.ID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.RulesFingerprint,
		run.Modules, run.Manifests, run.Failures, run.SuccessRate, run.Violations,
	); err != nil {
		return "", fmt.Errorf("history: insert run %s: %w", run.ID, err)
	}

	stars := run.Stars
	if stars == nil {
		stars = StarCounts(manifests)
	}
	for _, st := range star.All() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO run_stars (run_id, star, count) VALUES (?, ?, ?)",
			run.ID, string(st), stars[st]); err != nil {
			return "", fmt.Errorf("history: insert star counts: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO assignments (run_id, lane, path, star, confidence, rule) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("history: prepare assignments: %w", err)
	}
	defer stmt.Close()
	for _, m := range manifests {
		if _, err := stmt.ExecContext(ctx, run.ID, string(m.Lane), m.Path, string(m.Star), m.Confidence, m.Rule); err != nil {
			return "", fmt.Errorf("history: insert assignment %s: %w", m.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("history: commit: %w", err)
	}
	return run.ID, nil
}

// Runs returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, started_at, finished_at, rules_fingerprint, modules, manifests, failures, success_rate, violations
		FROM runs ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		if runs[i].Stars, err = s.starCounts(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Run returns the run with the given ID.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, rules_fingerprint, modules, manifests, failures, success_rate, violations
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	if r.Stars, err = s.starCounts(ctx, id); err != nil {
		return Run{}, err
	}
	return r, nil
}

// Assignments returns every module assignment recorded for a run, ordered
// by lane and path.
func (s *Store) Assignments(ctx context.Context, runID string) ([]Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT lane, path, star, confidence, rule FROM assignments WHERE run_id = ? ORDER BY lane, path", runID)
	if err != nil {
		return nil, fmt.Errorf("history: assignments for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		var lane, st string
		if err := rows.Scan(&lane, &a.Path, &st, &a.Confidence, &a.Rule); err != nil {
			return nil, fmt.Errorf("history: scan assignment: %w", err)
		}
		a.Lane = inventory.Lane(lane)
		a.Star = star.Star(st)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) starCounts(ctx context.Context, runID string) (map[star.Star]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT star, count FROM run_stars WHERE run_id = ?", runID)
	if err != nil {
		return nil, fmt.Errorf("history: star counts for %s: %w", runID, err)
	}
	defer rows.Close()

	counts := make(map[star.Star]int)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("history: scan star count: %w", err)
		}
		counts[star.Star(st)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var started, finished string
	if err := row.Scan(&r.ID, &started, &finished, &r.RulesFingerprint,
		&r.Modules, &r.Manifests, &r.Failures, &r.SuccessRate, &r.Violations); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("history: scan run: %w", err)
	}
	var err error
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("history: run %s started_at: %w", r.ID, err)
	}
	if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("history: run %s finished_at: %w", r.ID, err)
	}
	return r, nil
}

// StarCounts tallies manifests per star.
func StarCounts(ms []manifest.Manifest) map[star.Star]int {
	counts := make(map[star.Star]int, len(star.All()))
	for _, m := range ms {
		counts[m.Star]++
	}
	return counts
}
