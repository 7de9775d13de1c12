package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "financial_football", cfg.Mongo.Database)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, 5, cfg.Match.QuestionsPerTeam)
	assert.Equal(t, 30*time.Second, cfg.Match.Rules().PrimaryDuration)
	assert.Equal(t, 15*time.Second, cfg.Match.Rules().StealDuration)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  host: 127.0.0.1
  port: 9090
mongo:
  database: trivia_test
match:
  questions_per_team: 3
  primary_seconds: 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	assert.Equal(t, "trivia_test", cfg.Mongo.Database)
	assert.Equal(t, 3, cfg.Match.QuestionsPerTeam)
	assert.Equal(t, 20*time.Second, cfg.Match.Rules().PrimaryDuration)
	// untouched keys keep their defaults
	assert.Equal(t, 15, cfg.Match.StealSeconds)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
`)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("MATCH_QUESTIONS_PER_TEAM", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, 7, cfg.Match.QuestionsPerTeam)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("MATCH_QUESTIONS_PER_TEAM", "0")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("MATCH_QUESTIONS_PER_TEAM", "5")
	t.Setenv("MATCH_PRIMARY_SECONDS", "-1")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}
