// Package config manages the operator-facing configuration surface:
// an optional config file under the agent's dot directory, PRINTERD_*
// environment variables, and flags bound by the CLI. Tracking-policy
// fields given here are this run's explicit override; persistence of
// the merged policy belongs to the policy package.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mccannical/printerd/internal/branding"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Recognized keys. Force and skip-changelog are one-shot behaviors and
// are never persisted into the working copy's policy file.
const (
	KeyChannel       = "channel"
	KeyPin           = "pin"
	KeyInstallDir    = "install-dir"
	KeyPrincipal     = "principal"
	KeyForce         = "force"
	KeySkipChangelog = "skip-changelog"
	KeyVerbosity     = "verbosity"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Dir returns the agent's config directory. PRINTERD_CONFIG_DIR
// overrides the default ~/.printerd, matching how devices relocate
// state onto persistent media.
func Dir() string {
	if v := os.Getenv(branding.EnvVar("CONFIG_DIR")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+branding.CLIName())
	}
	return filepath.Join(home, "."+branding.CLIName())
}

// Load initializes viper: defaults, the optional config file, and the
// PRINTERD_* environment. Safe to call more than once.
func Load() {
	viper.SetDefault(KeyInstallDir, branding.InstallDir())
	viper.SetDefault(KeyVerbosity, "info")

	viper.SetConfigFile(filepath.Join(Dir(), fileName+"."+fileType))
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// BindFlag routes a CLI flag into the config surface so flags win over
// environment and file values.
func BindFlag(key string, flag *pflag.Flag) {
	_ = viper.BindPFlag(key, flag)
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// GetBool returns a boolean config value by key.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
