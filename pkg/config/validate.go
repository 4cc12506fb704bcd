package config

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// ValidationError represents a single validation error with context.
type ValidationError struct {
	Path    string // e.g., "networks.development.port"
	Message string // e.g., "must be between 1 and 65535"
	Hint    string // e.g., "use \"*\" to match any network"
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Validate performs validation of the entire config.
// It aggregates all errors and returns them, allowing the caller to print all issues at once.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworks()...)
	errs = append(errs, c.validateCompiler()...)
	errs = append(errs, c.validateDeployer()...)
	errs = append(errs, c.validatePaths()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

// ValidateForDeploy adds the checks that only matter when transactions will be
// signed: a key source must be present.
func (c *Config) ValidateForDeploy() []error {
	errs := c.Validate()
	d := c.Deployer
	if d.PrivateKey == "" && d.Keystore == "" {
		errs = append(errs, ValidationError{
			Path:    "deployer",
			Message: "no signing key configured",
			Hint:    "set deployer.private_key, deployer.keystore or FSDEPLOY_DEPLOYER_PRIVATE_KEY",
		})
	}
	return errs
}

func (c *Config) validateNetworks() []error {
	var errs []error

	if len(c.Networks) == 0 {
		errs = append(errs, ValidationError{
			Path:    "networks",
			Message: "must define at least one network",
		})
	}

	for _, name := range c.NetworkNames() {
		n := c.Networks[name]
		path := "networks." + name

		if strings.TrimSpace(n.Host) == "" {
			errs = append(errs, ValidationError{
				Path:    path + ".host",
				Message: "must not be empty",
			})
		}
		if n.Port < 1 || n.Port > 65535 {
			errs = append(errs, ValidationError{
				Path:    path + ".port",
				Message: fmt.Sprintf("must be between 1 and 65535, got %d", n.Port),
			})
		}
		if !n.NetworkID.IsWildcard() {
			id, err := strconv.ParseUint(string(n.NetworkID), 10, 64)
			if err != nil || id == 0 {
				errs = append(errs, ValidationError{
					Path:    path + ".network_id",
					Message: fmt.Sprintf("invalid value %q", n.NetworkID),
					Hint:    `expected a positive integer or "*" to match any network`,
				})
			}
		}
	}

	return errs
}

func (c *Config) validateCompiler() []error {
	var errs []error
	solc := c.Compilers.Solc

	if !semverPattern.MatchString(solc.Version) {
		errs = append(errs, ValidationError{
			Path:    "compilers.solc.version",
			Message: fmt.Sprintf("invalid version %q", solc.Version),
			Hint:    "expected MAJOR.MINOR.PATCH, e.g. 0.5.10",
		})
	}
	if !solc.Docker && strings.TrimSpace(solc.Binary) == "" {
		errs = append(errs, ValidationError{
			Path:    "compilers.solc.binary",
			Message: "must not be empty when docker is disabled",
		})
	}
	opt := solc.Settings.Optimizer
	if opt.Runs < 0 || (opt.Enabled && opt.Runs == 0) {
		errs = append(errs, ValidationError{
			Path:    "compilers.solc.settings.optimizer.runs",
			Message: fmt.Sprintf("must be positive when the optimizer is enabled, got %d", opt.Runs),
		})
	}

	return errs
}

func (c *Config) validateDeployer() []error {
	var errs []error
	d := c.Deployer

	if d.PrivateKey != "" && d.Keystore != "" {
		errs = append(errs, ValidationError{
			Path:    "deployer",
			Message: "private_key and keystore are mutually exclusive",
		})
	}
	if d.PrivateKey != "" {
		key := strings.TrimPrefix(d.PrivateKey, "0x")
		if len(key) != 64 {
			errs = append(errs, ValidationError{
				Path:    "deployer.private_key",
				Message: "must be 32 bytes hex encoded",
			})
		}
	}
	if d.GasPriceWei != "" {
		price, ok := new(big.Int).SetString(d.GasPriceWei, 10)
		if !ok || price.Sign() < 0 {
			errs = append(errs, ValidationError{
				Path:    "deployer.gas_price_wei",
				Message: fmt.Sprintf("invalid value %q", d.GasPriceWei),
				Hint:    "expected a non-negative decimal amount in wei",
			})
		}
	}
	if d.ConfirmationTimeout <= 0 {
		errs = append(errs, ValidationError{
			Path:    "deployer.confirmation_timeout",
			Message: "must be positive",
		})
	}
	if d.PollInterval <= 0 {
		errs = append(errs, ValidationError{
			Path:    "deployer.poll_interval",
			Message: "must be positive",
		})
	} else if d.ConfirmationTimeout > 0 && d.PollInterval > d.ConfirmationTimeout {
		errs = append(errs, ValidationError{
			Path:    "deployer.poll_interval",
			Message: "must not exceed confirmation_timeout",
		})
	}

	return errs
}

func (c *Config) validatePaths() []error {
	var errs []error

	if strings.TrimSpace(c.Paths.Build) == "" {
		errs = append(errs, ValidationError{
			Path:    "paths.build",
			Message: "must not be empty",
		})
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		errs = append(errs, ValidationError{
			Path:    "store.dsn",
			Message: "must not be empty",
		})
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error
	log := c.Logging

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[log.Level] {
		errs = append(errs, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("invalid value %q", log.Level),
			Hint:    "allowed values: debug, info, warn, error",
		})
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[log.Format] {
		errs = append(errs, ValidationError{
			Path:    "logging.format",
			Message: fmt.Sprintf("invalid value %q", log.Format),
			Hint:    "allowed values: json, console",
		})
	}

	return errs
}
