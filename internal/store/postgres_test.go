package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var runRowColumns = []string{"id", "mode", "zone", "started_at", "finished_at", "records", "kept", "failed", "devices", "candidates", "encryption"}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC)
	res := testResult("run-1", started)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", res.Mode, pgxmock.AnyArg(), started, started.Add(2*time.Second),
			5, 2, 1, 3, 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"run_files"}, fileColumns).WillReturnResult(3)
	mock.ExpectCopyFrom(pgx.Identifier{"creep_candidates"}, candidateColumns).WillReturnResult(1)
	mock.ExpectCommit()

	require.NoError(t, s.SaveRun(context.Background(), res))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun_InsertFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	res := testResult("run-1", time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).WillReturnError(fmt.Errorf("duplicate key"))
	mock.ExpectRollback()

	err := s.SaveRun(context.Background(), res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert run run-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, mode, zone, .* FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(runRowColumns).AddRow(
			"run-1", "scrub(here)", []byte(`{"lat":1.5,"lon":2.5,"delta":0.001}`), started, started.Add(time.Second),
			10, 4, 0, 0, 0, []byte(nil),
		))
	mock.ExpectQuery(`FROM run_files WHERE run_id = \$1 ORDER BY position`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"path", "output", "records", "malformed", "skipped", "kept", "blocked", "out_of_zone", "no_fix", "error"}).
			AddRow("a.csv", "Scrub/a.csv", 10, 0, 0, 4, 0, 6, 0, ""))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "scrub(here)", run.Mode)
	require.NotNil(t, run.Zone)
	assert.InDelta(t, 2.5, run.Zone.Lon, 1e-12)
	assert.Nil(t, run.Encryption)
	require.Len(t, run.Files, 1)
	assert.Equal(t, 6, run.Files[0].OutOfZone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM runs WHERE 1=1 AND mode LIKE \$1 AND started_at >= \$2 ORDER BY started_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("%creeps%", since, 5, 10).
		WillReturnRows(pgxmock.NewRows(runRowColumns).
			AddRow("r1", "creeps", []byte(nil), since, since, 1, 0, 0, 1, 0, []byte(nil)).
			AddRow("r2", "scrub+creeps", []byte(nil), since, since, 2, 2, 0, 2, 1, []byte(nil)))

	runs, err := s.ListRuns(context.Background(), RunFilter{Mode: "creeps", Since: since, Limit: 5, Offset: 10})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[1].ID)
	assert.Equal(t, 1, runs[1].Candidates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`ORDER BY started_at DESC LIMIT \$1$`).
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows(runRowColumns))

	runs, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCandidates(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	res := testResult("run-1", time.Now().UTC())
	rows, err := candidateRows(res)
	require.NoError(t, err)
	row := rows[0]

	mock.ExpectQuery(`FROM creep_candidates WHERE run_id = \$1 ORDER BY rank`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(candidateColumns).AddRow(
			row[0], row[1], row[2], row[3], row[4], row[5], row[6], []byte(row[7].(string)), row[8],
		))

	cands, err := s.ListCandidates(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "AA:BB:CC:11:22:33", cands[0].MAC)
	assert.Len(t, cands[0].Locations, 2)
	require.NotNil(t, cands[0].Footprint)
	assert.Equal(t, 2, cands[0].Footprint.NumPoints())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM runs WHERE id = \$1`).
		WithArgs("run-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.DeleteRun(context.Background(), "run-1"))
	err := s.DeleteRun(context.Background(), "run-2")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	called := false
	s := &PostgresStore{closeFn: func() { called = true }}
	require.NoError(t, s.Close())
	assert.True(t, called)
}
