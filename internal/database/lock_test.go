package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockKey(t *testing.T) {
	assert.Equal(t, lockKey("sync"), lockKey("sync"))
	assert.NotEqual(t, lockKey("sync"), lockKey("repair"))
}
