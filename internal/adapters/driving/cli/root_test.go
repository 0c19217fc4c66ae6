package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/logger"
)

func TestRootCmd_BuildsSettingsFromConfigDir(t *testing.T) {
	h := newCLIHarness(t)
	settingsService = nil
	dir := t.TempDir()
	t.Cleanup(func() { configDir = "" })

	require.NoError(t, h.run("--config-dir", dir, "config", "set", "retrieval.k", "6"))
	require.NotNil(t, settingsService)
	assert.Equal(t, filepath.Join(dir, "config.toml"), settingsService.ConfigPath())

	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, 6, settings.Retrieval.K)
	assert.Equal(t, filepath.Join(dir, "prompts"), settings.PromptsDir)
}

func TestRootCmd_VerboseFlag(t *testing.T) {
	h := newCLIHarness(t)
	t.Cleanup(func() {
		verbose = false
		logger.SetVerbose(false)
	})

	require.NoError(t, h.run("-v", "version"))
	assert.True(t, logger.IsVerbose())
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("")
	assert.Equal(t, original, version)

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}

func TestRequireSettings_Unset(t *testing.T) {
	original := settingsService
	settingsService = nil
	defer func() { settingsService = original }()

	_, err := requireSettings()
	assert.Error(t, err)
}
