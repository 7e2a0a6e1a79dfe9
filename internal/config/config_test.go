package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsAndParsesServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"servers": [
			{"host": "127.0.0.1", "port": 6000, "id": 1},
			{"host": "127.0.0.1", "port": 6001, "id": 2}
		]
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 2)
	assert.Equal(t, 500, cfg.HeartbeatIntervalMS)
	assert.Equal(t, 10, cfg.PumpIntervalMS)

	self, ok := cfg.PeerByID(1)
	require.True(t, ok)
	assert.Equal(t, 6000, self.Port)

	others := cfg.OtherPeers(1)
	require.Len(t, others, 1)
	assert.Equal(t, 2, others[0].ID)
}

func TestLoadRejectsEmptyServerList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"servers": []}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"servers": [{"host": "127.0.0.1", "port": 6000, "id": 1}]
	}`), 0o644))

	t.Setenv("GOCHAT_HEARTBEAT_INTERVAL_MS", "750")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 750, cfg.HeartbeatIntervalMS)
}
