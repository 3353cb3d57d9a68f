package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/api-server-template/config"
)

func writeTestConfig(t *testing.T, port int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := config.Default()
	cfg.Server.Port = port
	require.NoError(t, cfg.SaveToFile(path))
	return path
}

func TestLoadServerConfig_PersistsPortOverride(t *testing.T) {
	path := writeTestConfig(t, 8000)

	cfg, err := loadServerConfig(path, 9443, deploymentRules())
	require.NoError(t, err)
	assert.Equal(t, 9443, cfg.Server.Port)

	reloaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9443, reloaded.Server.Port)
}

func TestLoadServerConfig_RejectedOverrideNotPersisted(t *testing.T) {
	path := writeTestConfig(t, 8000)

	_, err := loadServerConfig(path, 443, deploymentRules())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "privileged port")

	_, err = loadServerConfig(path, 70000, deploymentRules())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")

	// Neither rejected override made it into the file.
	reloaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, reloaded.Server.Port)
}

func TestLoadServerConfig_NoOverrideLeavesFileUntouched(t *testing.T) {
	path := writeTestConfig(t, 8000)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	cfg, err := loadServerConfig(path, 0, deploymentRules())
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
