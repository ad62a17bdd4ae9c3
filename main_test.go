package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baely/txnsync/internal/common/errors"
)

func TestRunRejectsInvalidConfig(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LEDGER_BACKEND", "sqlite")

	err := run()
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestRunReturnsListenError(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LEDGER_BACKEND", "memory")
	t.Setenv("MEMORY_ACCOUNTS", "Checking")
	t.Setenv("ADDR", "127.0.0.1:-1")

	// returning at all means the worker was closed on the way out
	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}
