package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fsdeploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultMatchesProjectSettings(t *testing.T) {
	cfg := Default()

	dev, err := cfg.Network(DefaultNetwork)
	require.NoError(t, err)
	assert.Equal(t, "localhost", dev.Host)
	assert.Equal(t, 8545, dev.Port)
	assert.True(t, dev.NetworkID.IsWildcard())
	assert.Equal(t, "http://localhost:8545", dev.URL())

	solc := cfg.Compilers.Solc
	assert.Equal(t, "0.5.10", solc.Version)
	assert.False(t, solc.Docker)
	assert.True(t, solc.Settings.Optimizer.Enabled)
	assert.Equal(t, 200, solc.Settings.Optimizer.Runs)

	assert.Empty(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
networks:
  development:
    host: 127.0.0.1
    port: 7545
    network_id: 5777
  staging:
    host: rpc.internal
    port: 8545
    network_id: "42"
compilers:
  solc:
    version: 0.5.10
    docker: true
    settings:
      optimizer:
        enabled: false
        runs: 0
deployer:
  confirmation_timeout: 30s
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"development", "staging"}, cfg.NetworkNames())
	dev, err := cfg.Network("development")
	require.NoError(t, err)
	assert.Equal(t, NetworkID("5777"), dev.NetworkID)
	assert.True(t, dev.NetworkID.Matches("5777"))
	assert.False(t, dev.NetworkID.Matches("1"))

	assert.True(t, cfg.Compilers.Solc.Docker)
	assert.False(t, cfg.Compilers.Solc.Settings.Optimizer.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Deployer.ConfirmationTimeout)
	// untouched sections keep their defaults
	assert.Equal(t, time.Second, cfg.Deployer.PollInterval)
	assert.Equal(t, "build/contracts", cfg.Paths.Build)
	assert.Equal(t, "debug", cfg.Logging.Level)

	assert.Empty(t, cfg.Validate())
}

func TestLoadWithoutNetworksKeepsDefault(t *testing.T) {
	path := writeConfig(t, "logging:\n  format: json\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	_, err = cfg.Network(DefaultNetwork)
	assert.NoError(t, err)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "networks:\n  development:\n    hostname: localhost\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigError, errors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "hostname")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Compilers, cfg.Compilers)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FSDEPLOY_DEPLOYER_PRIVATE_KEY", testKey)
	t.Setenv("FSDEPLOY_DEPLOYER_GAS_LIMIT", "4000000")
	t.Setenv("FSDEPLOY_DEPLOYER_CONFIRMATION_TIMEOUT", "45s")
	t.Setenv("FSDEPLOY_DEPLOYER_POLL_INTERVAL", "250ms")
	t.Setenv("FSDEPLOY_PATHS_CONTRACTS", "src/contracts")
	t.Setenv("FSDEPLOY_STORE_DSN", "http://rqlite:4001")
	t.Setenv("FSDEPLOY_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, testKey, cfg.Deployer.PrivateKey)
	assert.Equal(t, uint64(4000000), cfg.Deployer.GasLimit)
	assert.Equal(t, 45*time.Second, cfg.Deployer.ConfirmationTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Deployer.PollInterval)
	assert.Equal(t, "src/contracts", cfg.Paths.Contracts)
	assert.Equal(t, "http://rqlite:4001", cfg.Store.DSN)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Empty(t, cfg.ValidateForDeploy())
}

func TestNetworkNotFound(t *testing.T) {
	_, err := Default().Network("mainnet")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"empty host", func(c *Config) {
			n := c.Networks["development"]
			n.Host = ""
			c.Networks["development"] = n
		}, "networks.development.host"},
		{"port zero", func(c *Config) {
			n := c.Networks["development"]
			n.Port = 0
			c.Networks["development"] = n
		}, "networks.development.port"},
		{"port too large", func(c *Config) {
			n := c.Networks["development"]
			n.Port = 70000
			c.Networks["development"] = n
		}, "networks.development.port"},
		{"network id not numeric", func(c *Config) {
			n := c.Networks["development"]
			n.NetworkID = "any"
			c.Networks["development"] = n
		}, "networks.development.network_id"},
		{"no networks", func(c *Config) { c.Networks = nil }, "networks"},
		{"bad solc version", func(c *Config) { c.Compilers.Solc.Version = "^0.5.0" }, "compilers.solc.version"},
		{"optimizer without runs", func(c *Config) { c.Compilers.Solc.Settings.Optimizer.Runs = 0 }, "compilers.solc.settings.optimizer.runs"},
		{"short key", func(c *Config) { c.Deployer.PrivateKey = "0xabcd" }, "deployer.private_key"},
		{"two key sources", func(c *Config) {
			c.Deployer.PrivateKey = testKey
			c.Deployer.Keystore = "key.json"
		}, "deployer"},
		{"bad gas price", func(c *Config) { c.Deployer.GasPriceWei = "20gwei" }, "deployer.gas_price_wei"},
		{"zero timeout", func(c *Config) { c.Deployer.ConfirmationTimeout = 0 }, "deployer.confirmation_timeout"},
		{"poll slower than timeout", func(c *Config) { c.Deployer.PollInterval = time.Hour }, "deployer.poll_interval"},
		{"empty store", func(c *Config) { c.Store.DSN = "" }, "store.dsn"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.NotEmpty(t, errs)

			var paths []string
			for _, err := range errs {
				paths = append(paths, err.(ValidationError).Path)
			}
			assert.Contains(t, paths, tt.path, strings.Join(paths, ","))
		})
	}
}

func TestValidateForDeployRequiresKey(t *testing.T) {
	errs := Default().ValidateForDeploy()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no signing key configured")
}
