package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := Options{User: "app", Pass: "pw", Host: "db", Port: "3306", Name: "tickets"}.DSN()
	assert.Contains(t, dsn, "app:pw@tcp(db:3306)/tickets?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "multiStatements=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestSchemaKeepsBookingsOnEventDelete(t *testing.T) {
	assert.Contains(t, schema, "REFERENCES events (id) ON DELETE RESTRICT")
	assert.Contains(t, schema, "available_tickets <= total_tickets")
	assert.NotContains(t, schema, "CASCADE")
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Migrate(context.Background(), db))

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("denied"))
	assert.Error(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
