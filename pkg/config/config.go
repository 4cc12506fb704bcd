package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

// DefaultNetwork is the network used when none is selected.
const DefaultNetwork = "development"

// AnyNetworkID matches whatever network id the node reports.
const AnyNetworkID = "*"

// Config represents the full configuration of a deployment project
type Config struct {
	Networks  map[string]NetworkConfig `yaml:"networks"`
	Compilers CompilersConfig          `yaml:"compilers"`
	Deployer  DeployerConfig           `yaml:"deployer"`
	Paths     PathsConfig              `yaml:"paths"`
	Store     StoreConfig              `yaml:"store"`
	Logging   LoggingConfig            `yaml:"logging"`
}

// NetworkConfig describes one JSON-RPC endpoint a project can migrate to
type NetworkConfig struct {
	Host      string    `yaml:"host"`
	Port      int       `yaml:"port"`
	NetworkID NetworkID `yaml:"network_id"` // "*" matches any network id
}

// URL returns the HTTP JSON-RPC endpoint of the network.
func (n NetworkConfig) URL() string {
	return fmt.Sprintf("http://%s:%d", n.Host, n.Port)
}

// NetworkID is a network id as written in the config: a decimal id or "*".
// It accepts both quoted and bare YAML scalars.
type NetworkID string

// UnmarshalYAML keeps the raw scalar text so `5777` and `"5777"` are equivalent.
func (n *NetworkID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: network_id must be a scalar", value.Line)
	}
	*n = NetworkID(strings.TrimSpace(value.Value))
	return nil
}

// IsWildcard reports whether the id matches any network.
func (n NetworkID) IsWildcard() bool {
	return string(n) == AnyNetworkID
}

// Matches reports whether the node-reported id satisfies the configured one.
func (n NetworkID) Matches(actual string) bool {
	return n.IsWildcard() || string(n) == actual
}

// CompilersConfig groups compiler settings. Only solc is supported.
type CompilersConfig struct {
	Solc SolcConfig `yaml:"solc"`
}

// SolcConfig selects the solc release and how it is invoked
type SolcConfig struct {
	Version  string       `yaml:"version"` // MAJOR.MINOR.PATCH
	Docker   bool         `yaml:"docker"`  // run ethereum/solc:<version> instead of a local binary
	Binary   string       `yaml:"binary"`  // local binary name or path, default "solc"
	Settings SolcSettings `yaml:"settings"`
}

// SolcSettings mirrors the solc standard settings the tool understands
type SolcSettings struct {
	Optimizer OptimizerConfig `yaml:"optimizer"`
}

// OptimizerConfig controls the solc bytecode optimizer
type OptimizerConfig struct {
	Enabled bool `yaml:"enabled"`
	Runs    int  `yaml:"runs"`
}

// DeployerConfig contains the deploying account and transaction settings
type DeployerConfig struct {
	PrivateKey          string        `yaml:"private_key"`          // hex, with or without 0x
	Keystore            string        `yaml:"keystore"`             // path to a V3 keystore file
	Password            string        `yaml:"password"`             // keystore password
	GasLimit            uint64        `yaml:"gas_limit"`            // 0 estimates per deployment
	GasPriceWei         string        `yaml:"gas_price_wei"`        // empty uses the node's suggestion
	ConfirmationTimeout time.Duration `yaml:"confirmation_timeout"` // max wait for a receipt
	PollInterval        time.Duration `yaml:"poll_interval"`        // receipt polling interval
}

// PathsConfig locates project files
type PathsConfig struct {
	Contracts string `yaml:"contracts"` // Solidity sources
	Build     string `yaml:"build"`     // compiled artifacts
	Plan      string `yaml:"plan"`      // optional migration plan, empty for the built-in plan
}

// StoreConfig locates the deployment state store
type StoreConfig struct {
	DSN string `yaml:"dsn"` // sqlite file path, or http(s):// URL of an rqlite node
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	Format     string `yaml:"format"`      // json, console
	OutputFile string `yaml:"output_file"` // Empty for stdout
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Networks: map[string]NetworkConfig{
			DefaultNetwork: {
				Host:      "localhost",
				Port:      8545,
				NetworkID: AnyNetworkID,
			},
		},
		Compilers: CompilersConfig{
			Solc: SolcConfig{
				Version: "0.5.10",
				Docker:  false,
				Binary:  "solc",
				Settings: SolcSettings{
					Optimizer: OptimizerConfig{
						Enabled: true,
						Runs:    200,
					},
				},
			},
		},
		Deployer: DeployerConfig{
			ConfirmationTimeout: 2 * time.Minute,
			PollInterval:        time.Second,
		},
		Paths: PathsConfig{
			Contracts: "contracts",
			Build:     "build/contracts",
		},
		Store: StoreConfig{
			DSN: ".fsdeploy/state.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Network returns the named network.
func (c *Config) Network(name string) (NetworkConfig, error) {
	n, ok := c.Networks[name]
	if !ok {
		return NetworkConfig{}, errors.NewNotFoundError("network", name)
	}
	return n, nil
}

// NetworkNames returns configured network names in sorted order.
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
