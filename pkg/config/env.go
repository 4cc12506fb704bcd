package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FSDEPLOY_DEPLOYER_PRIVATE_KEY.
const EnvPrefix = "FSDEPLOY"

// envKeys lists the settings that may be overridden from the environment.
// Secrets are expected to arrive this way rather than from the file.
var envKeys = []string{
	"deployer.private_key",
	"deployer.keystore",
	"deployer.password",
	"deployer.gas_price_wei",
	"deployer.gas_limit",
	"deployer.confirmation_timeout",
	"deployer.poll_interval",
	"paths.contracts",
	"paths.build",
	"paths.plan",
	"store.dsn",
	"logging.level",
	"logging.format",
	"logging.output_file",
}

// ApplyEnv overlays FSDEPLOY_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	setString("deployer.private_key", &cfg.Deployer.PrivateKey)
	setString("deployer.keystore", &cfg.Deployer.Keystore)
	setString("deployer.password", &cfg.Deployer.Password)
	setString("deployer.gas_price_wei", &cfg.Deployer.GasPriceWei)
	setString("paths.contracts", &cfg.Paths.Contracts)
	setString("paths.build", &cfg.Paths.Build)
	setString("paths.plan", &cfg.Paths.Plan)
	setString("store.dsn", &cfg.Store.DSN)
	setString("logging.level", &cfg.Logging.Level)
	setString("logging.format", &cfg.Logging.Format)
	setString("logging.output_file", &cfg.Logging.OutputFile)

	if v.IsSet("deployer.gas_limit") {
		cfg.Deployer.GasLimit = v.GetUint64("deployer.gas_limit")
	}
	if v.IsSet("deployer.confirmation_timeout") {
		cfg.Deployer.ConfirmationTimeout = v.GetDuration("deployer.confirmation_timeout")
	}
	if v.IsSet("deployer.poll_interval") {
		cfg.Deployer.PollInterval = v.GetDuration("deployer.poll_interval")
	}
	return nil
}
