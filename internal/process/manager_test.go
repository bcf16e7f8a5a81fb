package process

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_WritePIDThenIsRunningAndCleanup(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	assert.False(t, m.IsRunning())

	require.NoError(t, m.WritePID())
	assert.Equal(t, os.Getpid(), m.ReadPID())
	assert.True(t, m.IsRunning())

	m.CleanupPID()
	assert.Equal(t, 0, m.ReadPID())
	assert.False(t, m.IsRunning())
}

func TestManager_ReadPIDMissingFileReturnsZero(t *testing.T) {
	m := NewManager(t.TempDir())
	assert.Equal(t, 0, m.ReadPID())
	assert.False(t, m.IsRunning())
}

func TestManager_IsRunningCleansUpStaleFileForDeadProcess(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	require.NoError(t, os.MkdirAll(base, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, pidFilename), []byte("999999999"), 0o600))

	assert.False(t, m.IsRunning())
	assert.Equal(t, 0, m.ReadPID())
}

func TestManager_StopWithNoPIDIsNoOp(t *testing.T) {
	m := NewManager(t.TempDir())
	assert.NoError(t, m.Stop())
}
