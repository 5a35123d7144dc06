package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/betbot/clobauth/clob/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
clob:
  host: https://clob.example.test
  chain_id: 80002
  signature_type: poly_proxy
wallet:
  private_key: "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
  funder_address: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
auth:
  timestamp_tolerance: 45s
log:
  level: debug
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://clob.example.test", cfg.Clob.Host)
	assert.Equal(t, types.ChainAmoy, cfg.Chain())
	assert.Equal(t, 45*time.Second, cfg.Auth.TimestampTolerance)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Nil(t, cfg.Auth.Creds())

	st, err := cfg.SignatureType()
	require.NoError(t, err)
	assert.Equal(t, types.SignatureTypePolyProxy, st)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CLOB_HOST", "https://override.test")
	t.Setenv("CLOB_API_KEY", "key")
	t.Setenv("CLOB_API_SECRET", "c2VjcmV0")
	t.Setenv("CLOB_API_PASSPHRASE", "pass")
	t.Setenv("CLOB_TIMESTAMP_TOLERANCE", "10s")

	cfg, err := Load(writeFile(t, "config.yaml", sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "https://override.test", cfg.Clob.Host)
	assert.Equal(t, 10*time.Second, cfg.Auth.TimestampTolerance)
	require.NotNil(t, cfg.Auth.Creds())
	assert.Equal(t, "key", cfg.Auth.Creds().Key)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultHost, cfg.Clob.Host)
	assert.Equal(t, types.ChainPolygon, cfg.Chain())
	assert.Equal(t, DefaultTimestampTolerance, cfg.Auth.TimestampTolerance)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", "x = 1"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty host", func(c *Config) { c.Clob.Host = "" }},
		{"unknown chain without contracts", func(c *Config) { c.Clob.ChainID = 1 }},
		{"bad signature type", func(c *Config) { c.Clob.SignatureType = "ledger" }},
		{"proxy without funder", func(c *Config) { c.Clob.SignatureType = "poly_proxy" }},
		{"two key sources", func(c *Config) {
			c.Wallet.PrivateKey = "0x01"
			c.Wallet.Mnemonic = "test"
		}},
		{"partial creds", func(c *Config) { c.Auth.APIKey = "key" }},
		{"negative tolerance", func(c *Config) { c.Auth.TimestampTolerance = -time.Second }},
		{"credstore without key", func(c *Config) { c.Auth.CredStore.Path = "/tmp/creds" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Clob.ChainID = 1
	cfg.Clob.Contracts.Exchange = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	require.NoError(t, cfg.Validate())
}
