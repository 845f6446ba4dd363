package database

import (
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreSequential(t *testing.T) {
	src, err := iofs.New(migrations, "migrations")
	require.NoError(t, err)
	defer src.Close()

	version, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	for want := uint(2); want <= 3; want++ {
		version, err = src.Next(version)
		require.NoError(t, err)
		assert.Equal(t, want, version)

		_, _, err = src.ReadDown(version)
		require.NoError(t, err, "missing down migration for %d", version)
	}

	_, err = src.Next(version)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
