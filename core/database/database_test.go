package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("Invalid Connection", func(t *testing.T) {
		cfg := Config{
			Driver:         DriverMySQL,
			Host:           "localhost",
			Port:           9999, // Unused port
			User:           "root",
			Password:       "wrongpassword",
			Name:           "diary",
			TimeoutSeconds: 1,
		}

		db, err := Connect(cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("Unsupported Driver", func(t *testing.T) {
		db, err := Connect(Config{Driver: "oracle"})
		assert.ErrorContains(t, err, "unsupported database driver")
		assert.Nil(t, db)
	})

	t.Run("SQLite Memory", func(t *testing.T) {
		db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
		require.NoError(t, err)

		sqlDB, err := db.DB()
		require.NoError(t, err)
		assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	})
}

func TestMigrate(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for table, expected := range ExpectedColumns() {
		missing, err := MissingColumns(db, table, expected)
		require.NoError(t, err)
		assert.Empty(t, missing, table)
	}

	// Running twice is harmless.
	assert.NoError(t, Migrate(db))
}

func TestDialectorFor(t *testing.T) {
	d, err := dialectorFor(Config{Driver: DriverPostgres, Host: "db", User: "u", Name: "n", SSLMode: "disable"}, 5)
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = dialectorFor(Config{Driver: DriverMySQL, Host: "db", User: "u", Name: "n"}, 5)
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	d, err = dialectorFor(Config{Driver: ""}, 5)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())
}

func TestConfigPort(t *testing.T) {
	assert.Equal(t, 5432, Config{Driver: DriverPostgres}.port())
	assert.Equal(t, 3306, Config{Driver: DriverMySQL}.port())
	assert.Equal(t, 3307, Config{Driver: DriverMySQL, Port: 3307}.port())
}
