package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lolwierd/cric-commentary/internal/config"
)

func TestFlagsOverrideConfig(t *testing.T) {
	chdir(t, t.TempDir())
	v := config.New()
	cmd := newRootCmd(v)

	require.NoError(t, cmd.Flags().Set("team", "ind"))
	require.NoError(t, cmd.Flags().Set("url", "https://example.test/live/2"))
	require.NoError(t, cmd.Flags().Set("status-addr", ":8081"))
	require.NoError(t, cmd.Flags().Set("log-level", "debug"))

	cfg, err := config.Load(v, "", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "IND", cfg.Source.Team)
	assert.Equal(t, "https://example.test/live/2", cfg.Source.URL)
	assert.Equal(t, ":8081", cfg.Status.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestUnsetFlagsKeepDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	v := config.New()
	_ = newRootCmd(v)

	cfg, err := config.Load(v, "", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "NZ", cfg.Source.Team)
	assert.Equal(t, config.DefaultURL, cfg.Source.URL)
	assert.Empty(t, cfg.Status.Addr)
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
