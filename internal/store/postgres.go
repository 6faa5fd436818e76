package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/wardrive-cli/internal/db"
	"github.com/sells-group/wardrive-cli/internal/pipeline"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	zone        JSONB,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	records     INTEGER NOT NULL DEFAULT 0,
	kept        INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	devices     INTEGER NOT NULL DEFAULT 0,
	candidates  INTEGER NOT NULL DEFAULT 0,
	encryption  JSONB
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
	max_spread_km  DOUBLE PRECISION NOT NULL,
	locations      JSONB NOT NULL,
	footprint      BYTEA,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_creep_candidates_mac ON creep_candidates(mac);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const insertRunSQL = `INSERT INTO runs (id, mode, zone, started_at, finished_at, records, kept, failed, devices, candidates, encryption)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (s *PostgresStore) SaveRun(ctx context.Context, res *pipeline.Result) error {
	run, err := runValues(res)
	if err != nil {
		return err
	}
	cands, err := candidateRows(res)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save run")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertRunSQL, run...); err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", res.RunID)
	}
	if _, err := db.CopyFrom(ctx, tx, "run_files", fileColumns, fileRows(res)); err != nil {
		return err
	}
	if _, err := db.CopyFrom(ctx, tx, "creep_candidates", candidateColumns, cands); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit save run")
}

const pgRunSelect = `SELECT id, mode, zone, started_at, finished_at, records, kept, failed, devices, candidates, encryption FROM runs`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx, pgRunSelect+` WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT path, output, records, malformed, skipped, kept, blocked, out_of_zone, no_fix, error
		 FROM run_files WHERE run_id = $1 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get files for run %s", runID)
	}
	defer rows.Close()

	for rows.Next() {
		var f pipeline.FileResult
		if err := rows.Scan(&f.Path, &f.Output, &f.Records, &f.Malformed, &f.Skipped,
			&f.Kept, &f.Blocked, &f.OutOfZone, &f.NoFix, &f.Error); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run file")
		}
		r.Files = append(r.Files, f)
	}
	return r, eris.Wrap(rows.Err(), "postgres: get files iterate")
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := pgRunSelect + ` WHERE 1=1`
	var args []any
	argIdx := 1

	if filter.Mode != "" {
		query += fmt.Sprintf(` AND mode LIKE $%d`, argIdx)
		args = append(args, "%"+filter.Mode+"%")
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND started_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, argIdx)
	args = append(args, filter.limit())
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) ListCandidates(ctx context.Context, runID string) ([]Candidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, rank, mac, ssid, location_count, observations, max_spread_km, locations, footprint
		 FROM creep_candidates WHERE run_id = $1 ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list candidates for run %s", runID)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var (
			c         Candidate
			locs      []byte
			footprint []byte
		)
		if err := rows.Scan(&c.RunID, &c.Rank, &c.MAC, &c.SSID, &c.LocationCount,
			&c.Observations, &c.MaxSpreadKM, &locs, &footprint); err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		if err := decodeCandidate(&c, locs, footprint); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list candidates iterate")
}

func (s *PostgresStore) DeleteRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM runs WHERE id = $1`, runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	return nil
}

func scanPgRun(row pgx.Row) (*Run, error) {
	var (
		r         Run
		zone, enc []byte
	)
	if err := row.Scan(&r.ID, &r.Mode, &zone, &r.StartedAt, &r.FinishedAt,
		&r.Records, &r.Kept, &r.Failed, &r.Devices, &r.Candidates, &enc); err != nil {
		return nil, err
	}
	if err := decodeRunPayloads(&r, zone, enc); err != nil {
		return nil, err
	}
	return &r, nil
}
