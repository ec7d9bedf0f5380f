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

var identityColumns = []string{"address", "role", "is_active", "assigned_by", "updated_at"}

func TestIdentityRepositoryRegisterStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewIdentityRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO identities")).
		WithArgs("0xStudent").
		WillReturnRows(sqlmock.NewRows(identityColumns).AddRow("0xStudent", "STUDENT", true, "0xStudent", time.Now()))

	identity, err := repo.RegisterStudent(context.Background(), "0xStudent")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, identity.Role)
	assert.True(t, identity.IsActive)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO identities")).
		WithArgs("0xAdmin").
		WillReturnRows(sqlmock.NewRows(identityColumns))
	_, err = repo.RegisterStudent(context.Background(), "0xAdmin")
	assert.ErrorIs(t, err, ErrConflictingRole)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepositoryUpsertAndDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewIdentityRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (address) DO UPDATE SET role = EXCLUDED.role")).
		WithArgs("0xSag", models.RoleSagBureau, "0xOwner").
		WillReturnRows(sqlmock.NewRows(identityColumns).AddRow("0xSag", "SAG_BUREAU", true, "0xOwner", time.Now()))
	identity, err := repo.Upsert(context.Background(), "0xSag", models.RoleSagBureau, "0xOwner")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSagBureau, identity.Role)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE identities SET is_active = FALSE")).
		WithArgs("0xSag", "0xOwner").
		WillReturnRows(sqlmock.NewRows(identityColumns).AddRow("0xSag", "SAG_BUREAU", false, "0xOwner", time.Now()))
	identity, err = repo.Deactivate(context.Background(), "0xSag", "0xOwner")
	require.NoError(t, err)
	assert.False(t, identity.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepositoryOwnership(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewIdentityRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ownership")).
		WithArgs("0xOwner").
		WillReturnResult(sqlmock.NewResult(0, 1))
	seeded, err := repo.SeedOwner(context.Background(), "0xOwner")
	require.NoError(t, err)
	assert.True(t, seeded)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE ownership SET owner_address = $2")).
		WithArgs("0xStale", "0xNext").
		WillReturnRows(sqlmock.NewRows([]string{"owner_address", "updated_at"}))
	_, err = repo.TransferOwnership(context.Background(), "0xStale", "0xNext")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_address, updated_at FROM ownership")).
		WillReturnRows(sqlmock.NewRows([]string{"owner_address", "updated_at"}).AddRow("0xOwner", time.Now()))
	owner, err := repo.Owner(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xOwner", owner.OwnerAddress)
	require.NoError(t, mock.ExpectationsWereMet())
}
