package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalConfig = `
database:
  dsn: "host=localhost user=solver dbname=solver"
solver:
  address: "0xsolver"
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ResidualPolicyExclude, cfg.Solver.ResidualPolicy)
	assert.Equal(t, RemainderPolicyRoute, cfg.Solver.RemainderPolicy)
	assert.Equal(t, 4, cfg.Solver.MaxConcurrentSolves)
	assert.Equal(t, "external", cfg.Venue.ID)
	assert.Equal(t, 15, cfg.Venue.Timeout)
	assert.Equal(t, "SOLVER_EVENTS", cfg.NATS.StreamName)
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  host: "0.0.0.0"
  port: 9090
database:
  dsn: "host=db user=solver dbname=solver"
nats:
  url: "nats://localhost:4222"
solver:
  address: "0xsolver"
  residual_policy: "abort"
  remainder_policy: "drop"
  max_concurrent_solves: 8
venue:
  id: "lifi"
  base_url: "https://venue.example.com"
  timeout: 30
blockchain:
  network: "sepolia"
  networks:
    sepolia:
      chain_id: 11155111
      rpc_endpoint: "https://rpc.sepolia.example.com"
      registry_contract: "0xregistry"
      gas_limit: 500000
storage:
  advisor:
    bundle_capacity: 100
    savings_threshold: 35
  retention_days: 30
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ResidualPolicyAbort, cfg.Solver.ResidualPolicy)
	assert.Equal(t, RemainderPolicyDrop, cfg.Solver.RemainderPolicy)
	assert.Equal(t, 8, cfg.Solver.MaxConcurrentSolves)
	assert.Equal(t, "lifi", cfg.Venue.ID)
	assert.Equal(t, 100, cfg.Storage.Advisor.BundleCapacity)
	assert.Equal(t, 30, cfg.Storage.RetentionDays)

	network := cfg.ActiveNetwork()
	require.NotNil(t, network)
	assert.Equal(t, int64(11155111), network.ChainID)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DSN", "host=override user=env dbname=env")
	t.Setenv("SOLVER_ADDRESS", "0xenvsolver")
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "host=override user=env dbname=env", cfg.Database.DSN)
	assert.Equal(t, "0xenvsolver", cfg.Solver.Address)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing dsn",
			content: "solver:\n  address: \"0xsolver\"\n",
			wantErr: "database.dsn",
		},
		{
			name:    "missing solver address",
			content: "database:\n  dsn: \"host=localhost\"\n",
			wantErr: "solver.address",
		},
		{
			name:    "bad residual policy",
			content: minimalConfig + "  residual_policy: \"retry\"\n",
			wantErr: "residual_policy",
		},
		{
			name:    "bad remainder policy",
			content: minimalConfig + "  remainder_policy: \"refund\"\n",
			wantErr: "remainder_policy",
		},
		{
			name:    "unknown network",
			content: minimalConfig + "blockchain:\n  network: \"mainnet\"\n",
			wantErr: "blockchain.network",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestActiveNetworkUnconfigured(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Nil(t, cfg.ActiveNetwork())
}
