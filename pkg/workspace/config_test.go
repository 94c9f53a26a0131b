// Copyright 2025, the fabdeploy authors.  All rights reserved.

package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, env, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, env+".json"), []byte(body), 0600))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "dev", `{
		"workspace": {"id": "ws-123", "name": "analytics-dev", "capacity_id": "cap-1"},
		"parameters": {"lakehouse_id": "lh-1", "env_suffix": "_dev"},
		"lakehouses": {"mainlake": {"id": "lh-1"}},
		"service_principal": {"client_id": "c", "tenant_id": "t", "secret_env_var": "DEV_SECRET"}
	}`)

	cfg, err := Load(dir, "dev")
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "ws-123", cfg.Workspace.ID)
	assert.Equal(t, "analytics-dev", cfg.Workspace.Name)
	assert.Equal(t, DefaultArtifactsRoot, cfg.ArtifactsRoot)
	assert.Equal(t, "lh-1", cfg.Parameters["lakehouse_id"])
	assert.Equal(t, "lh-1", cfg.LakehouseID("mainlake"))
	assert.Equal(t, "", cfg.LakehouseID("nosuch"))
	require.NotNil(t, cfg.ServicePrincipal)
	assert.Equal(t, "DEV_SECRET", cfg.ServicePrincipal.SecretEnvVar)
}

func TestLoadEnvironmentCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "prod", `{"workspace": {"id": "w", "name": "n"}}`)

	cfg, err := Load(dir, "PROD")
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Environment)
}

func TestLoadInvalidEnvironment(t *testing.T) {
	_, err := Load(t.TempDir(), "staging")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir(), "uat")
	require.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "dev", `{not json`)
	_, err := Load(dir, "dev")
	require.Error(t, err)
}

func TestLoadMissingWorkspaceFields(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "dev", `{"workspace": {"id": "only-id"}}`)
	_, err := Load(dir, "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'id' and 'name'")
}

func TestLoadCustomArtifactsRoot(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "dev", `{
		"workspace": {"id": "w", "name": "n"},
		"artifacts_root_folder": "src"
	}`)
	cfg, err := Load(dir, "dev")
	require.NoError(t, err)
	assert.Equal(t, "src", cfg.ArtifactsRoot)
}
