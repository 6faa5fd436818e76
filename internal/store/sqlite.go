package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/wardrive-cli/internal/pipeline"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection; a single connection keeps them all in force.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	zone        TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	records     INTEGER NOT NULL DEFAULT 0,
	kept        INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	devices     INTEGER NOT NULL DEFAULT 0,
	candidates  INTEGER NOT NULL DEFAULT 0,
	encryption  TEXT
);

CREATE TABLE IF NOT EXISTS run_files (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	path        TEXT NOT NULL,
	output      TEXT NOT NULL DEFAULT '',
	records     INTEGER NOT NULL DEFAULT 0,
	malformed   INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	kept        INTEGER NOT NULL DEFAULT 0,
	blocked     INTEGER NOT NULL DEFAULT 0,
	out_of_zone INTEGER NOT NULL DEFAULT 0,
	no_fix      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS creep_candidates (
	run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	rank           INTEGER NOT NULL,
	mac            TEXT NOT NULL,
	ssid           TEXT NOT NULL DEFAULT '',
	location_count INTEGER NOT NULL,
	observations   INTEGER NOT NULL,
	max_spread_km  REAL NOT NULL,
	locations      TEXT NOT NULL,
	footprint      BLOB,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_creep_candidates_mac ON creep_candidates(mac);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// insertSQL builds a positional INSERT for table and columns.
func insertSQL(table string, columns []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" + marks + ")"
}

func (s *SQLiteStore) SaveRun(ctx context.Context, res *pipeline.Result) error {
	run, err := runValues(res)
	if err != nil {
		return err
	}
	cands, err := candidateRows(res)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save run")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertSQL("runs", runColumns), run...); err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", res.RunID)
	}
	if err := insertRows(ctx, tx, "run_files", fileColumns, fileRows(res)); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, "creep_candidates", candidateColumns, cands); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save run")
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(table, columns))
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s", table)
		}
	}
	return nil
}

const runSelect = `SELECT id, mode, zone, started_at, finished_at, records, kept, failed, devices, candidates, encryption FROM runs`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, runSelect+` WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, output, records, malformed, skipped, kept, blocked, out_of_zone, no_fix, error
		 FROM run_files WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get files for run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var f pipeline.FileResult
		if err := rows.Scan(&f.Path, &f.Output, &f.Records, &f.Malformed, &f.Skipped,
			&f.Kept, &f.Blocked, &f.OutOfZone, &f.NoFix, &f.Error); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run file")
		}
		r.Files = append(r.Files, f)
	}
	return r, eris.Wrap(rows.Err(), "sqlite: get files iterate")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := runSelect + ` WHERE 1=1`
	var args []any

	if filter.Mode != "" {
		query += ` AND mode LIKE ?`
		args = append(args, "%"+filter.Mode+"%")
	}
	if !filter.Since.IsZero() {
		query += ` AND started_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) ListCandidates(ctx context.Context, runID string) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, rank, mac, ssid, location_count, observations, max_spread_km, locations, footprint
		 FROM creep_candidates WHERE run_id = ? ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list candidates for run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []Candidate
	for rows.Next() {
		var (
			c         Candidate
			locs      string
			footprint []byte
		)
		if err := rows.Scan(&c.RunID, &c.Rank, &c.MAC, &c.SSID, &c.LocationCount,
			&c.Observations, &c.MaxSpreadKM, &locs, &footprint); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		if err := decodeCandidate(&c, []byte(locs), footprint); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list candidates iterate")
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var (
		r         Run
		zone, enc sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Mode, &zone, &r.StartedAt, &r.FinishedAt,
		&r.Records, &r.Kept, &r.Failed, &r.Devices, &r.Candidates, &enc); err != nil {
		return nil, err
	}
	if err := decodeRunPayloads(&r, []byte(zone.String), []byte(enc.String)); err != nil {
		return nil, err
	}
	return &r, nil
}
