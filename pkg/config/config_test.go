package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inEmptyDir runs the test from a directory without a .env file.
func inEmptyDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	inEmptyDir(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.EqualValues(t, 11155111, cfg.Chain.ChainID)
	assert.Equal(t, 1, cfg.Workflow.SagThreshold)
	assert.Equal(t, 2, cfg.Workflow.AdminThreshold)
	assert.Equal(t, 10*time.Second, cfg.Workflow.ConfirmTimeout)
	assert.Equal(t, []string{"application/pdf", "image/jpeg", "image/png"}, cfg.Documents.AllowedMIMEs)
	assert.True(t, cfg.Events.WebsocketEnabled)
	assert.False(t, cfg.Verifier.Enabled)
}

func TestLoadReadsEnvironment(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("WORKFLOW_ADMIN_THRESHOLD", "3")
	t.Setenv("WORKFLOW_CONFIRM_TIMEOUT", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workflow.AdminThreshold)
	assert.Equal(t, 10*time.Second, cfg.Workflow.ConfirmTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsDevSecretsInProduction(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("ENV", EnvProduction)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DOCUMENTS_SIGNED_URL_SECRET", "d0c")
	_, err = Load()
	require.NoError(t, err)
}

func TestLoadRequiresVerifierURLWhenEnabled(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("ENABLE_VERIFIER", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VERIFIER_URL")
}
