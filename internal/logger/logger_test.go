package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLevel(t *testing.T) {
	closer, err := Init(Config{Level: "debug", Output: "stderr"})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	_, err := Init(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")

	closer, err := Init(Config{Level: "info", Output: path})
	require.NoError(t, err)

	l := WithComponent("test")
	l.Info().Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Contains(t, string(data), `"message":"hello"`)

	// Restore stderr output for other tests in the package.
	_, err = Init(Config{})
	require.NoError(t, err)
}
