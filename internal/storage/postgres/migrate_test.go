package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck-backend/config"
)

func TestMigrations_Ordered(t *testing.T) {
	ms, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)

	for i := 1; i < len(ms); i++ {
		assert.Less(t, ms[i-1].Version, ms[i].Version)
	}
	assert.Equal(t, "0001_users", ms[0].Version)
}

func TestMigrate_SkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ms, err := Migrations()
	require.NoError(t, err)

	mock.ExpectExec(`create table if not exists schema_migrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`select version from schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(ms[0].Version))

	for _, m := range ms[1:] {
		mock.ExpectBegin()
		mock.ExpectExec(`create`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`insert into schema_migrations`).
			WithArgs(m.Version).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	applied, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Len(t, applied, len(ms)-1)
	assert.NotContains(t, applied, ms[0].Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "taskdeck"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=taskdeck sslmode=disable", DSN(cfg))

	cfg.SSLMode = "require"
	assert.Contains(t, DSN(cfg), "sslmode=require")
}

func TestWithTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE a`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, WithTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), `UPDATE a SET x = 1`)
		return err
	}))

	mock.ExpectBegin()
	mock.ExpectRollback()
	boom := errors.New("boom")
	assert.ErrorIs(t, WithTx(context.Background(), db, func(*sql.Tx) error { return boom }), boom)

	require.NoError(t, mock.ExpectationsWereMet())
}
