package di

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/watchstate/internal/config"
	"github.com/listenupapp/watchstate/internal/di/providers"
	"github.com/listenupapp/watchstate/internal/lifecycle"
)

func testConfig(root, mode string) *config.Config {
	return &config.Config{
		App:    config.AppConfig{Environment: "development"},
		Logger: config.LoggerConfig{Level: "debug", Format: "json"},
		Watch: config.WatchConfig{
			Root:         root,
			Mode:         mode,
			Backend:      "auto",
			SettleDelay:  50 * time.Millisecond,
			ReadyTimeout: 5 * time.Second,
		},
	}
}

func TestBootstrap_DirectoryRoot(t *testing.T) {
	root := t.TempDir()
	injector := NewContainerWithConfig(testConfig(root, config.ModeAuto))
	require.NoError(t, Bootstrap(injector))

	handle := do.MustInvoke[*providers.WatcherHandle](injector)
	assert.Equal(t, config.ModeDirectory, handle.Mode)
	assert.Equal(t, lifecycle.Watching, handle.State())

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))
	require.Eventually(t, func() bool {
		return handle.Summary()["created"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, handle.Shutdown())
	assert.Equal(t, lifecycle.Stopped, handle.State())
	assert.NoError(t, handle.Shutdown(), "shutdown is idempotent")
}

func TestBootstrap_FileRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "later.txt")
	injector := NewContainerWithConfig(testConfig(root, config.ModeAuto))
	require.NoError(t, Bootstrap(injector))

	handle := do.MustInvoke[*providers.WatcherHandle](injector)
	assert.Equal(t, config.ModeFile, handle.Mode)
	require.NoError(t, handle.Shutdown())
}

func TestBootstrap_UnwatchableRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	injector := NewContainerWithConfig(testConfig(root, config.ModeDirectory))

	err := Bootstrap(injector)
	require.Error(t, err)
	assert.Contains(t, err.Error(), root)
}
