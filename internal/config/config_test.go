package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultTemplateParses(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault()))
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Analytics.DueSoonDays)
	require.True(t, cfg.Auth.AllowUserHeader)
	require.False(t, cfg.Policies.Tasks.StrictTransitions)
	require.False(t, cfg.Policies.Approvals.SingleOpenPerTask)
}

func TestFromYAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := FromYAML([]byte("policies:\n  approvals:\n    require_peer_before_senior: true\n"))
	require.NoError(t, err)
	require.True(t, cfg.Policies.Approvals.RequirePeerBeforeSenior)
	require.Equal(t, 7, cfg.Analytics.DueSoonDays)
	require.True(t, cfg.Auth.AllowUserHeader)
}

func TestValidateRejectsNegativeWindow(t *testing.T) {
	_, err := FromYAML([]byte("analytics:\n  due_soon_days: -1\n"))
	require.ErrorContains(t, err, "due_soon_days")
}

func TestFromYAMLInvalid(t *testing.T) {
	_, err := FromYAML([]byte("policies: ["))
	require.ErrorContains(t, err, "invalid config yaml")
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	_, err = Load(dir)
	require.ErrorContains(t, err, "not found")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "agencydesk.yml"), []byte("policies:\n  tasks:\n    strict_transitions: true\n"), 0o644))
	cfg, err = LoadOptional(dir)
	require.NoError(t, err)
	require.True(t, cfg.Policies.Tasks.StrictTransitions)
}

func TestLoadServerEnv(t *testing.T) {
	t.Setenv("AGENCYDESK_ADDR", ":9999")
	t.Setenv("AGENCYDESK_OTEL_ENABLED", "false")
	cfg, err := LoadServerEnv()
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, "/v1", cfg.BasePath)
	require.False(t, cfg.OTelEnabled)
}

func TestLoadServerEnvRejectsBadBool(t *testing.T) {
	t.Setenv("AGENCYDESK_OTEL_ENABLED", "maybe")
	_, err := LoadServerEnv()
	require.ErrorContains(t, err, "parse env")
}
