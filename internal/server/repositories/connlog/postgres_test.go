package connlog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chestkeeper/chestkeeper/internal/server/models"
)

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestAppend(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO connection_log`).
		WithArgs("alice", models.OutcomeFailPassword, at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(context.Background(), "alice", models.OutcomeFailPassword, at)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendError(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO connection_log`).
		WillReturnError(assert.AnError)

	err := repo.Append(context.Background(), "alice", models.OutcomeBlocked, time.Now())

	require.Error(t, err)
}

func TestCountSince(t *testing.T) {
	repo, mock := newMock(t)
	since := time.Now().Add(-15 * time.Minute)

	mock.ExpectQuery(`SELECT count\(\*\) FROM connection_log`).
		WithArgs("alice", models.OutcomeFailPassword, since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountSince(context.Background(), "alice", models.OutcomeFailPassword, since)

	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
