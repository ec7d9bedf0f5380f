package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scholarship-api/internal/models"
)

func TestOperationRepositoryLifecycle(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOperationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO operations")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	appID := int64(3)
	op := &models.Operation{Kind: models.OperationVerify, ActorAddress: "0xSag", ApplicationID: &appID}
	require.NoError(t, repo.Create(context.Background(), op))
	assert.NotEmpty(t, op.ID)
	assert.Equal(t, models.OperationPending, op.Status)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE operations SET status = $2")).
		WithArgs(op.ID, models.OperationConfirmed, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Finish(context.Background(), op.ID, models.OperationConfirmed, nil, nil))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE operations SET status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Finish(context.Background(), op.ID, models.OperationFailed, nil, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOperationRepositoryExpirePending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOperationRepository(db)
	cutoff := time.Now().Add(-time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("error_code = 'ABANDONED'")).
		WithArgs(cutoff, "abandoned").
		WillReturnResult(sqlmock.NewResult(0, 2))
	n, err := repo.ExpirePending(context.Background(), cutoff, "abandoned")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM operations")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	count, err := repo.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
