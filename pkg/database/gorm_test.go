package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGormDBSQLiteInMemory(t *testing.T) {
	db, err := NewGormDB(Config{Driver: DriverSQLite, Silent: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestNewGormDBRejectsUnknownDriver(t *testing.T) {
	_, err := NewGormDB(Config{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)

	_, err = NewGormDB(Config{Driver: DriverPostgres})
	assert.Error(t, err)
}
