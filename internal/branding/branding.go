// Package branding provides compile-time identity values for the agent.
//
// Forkers running a different fleet edit branding.yaml, then rebuild.
// Go's //go:embed bakes the file into the binary; hard defaults cover a
// missing or partial file.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	EnvPrefix   string `yaml:"env_prefix"`
	GitHubRepo  string `yaml:"github_repo"`
	OriginURL   string `yaml:"origin_url"`
	InstallDir  string `yaml:"install_dir"`
	CronTag     string `yaml:"cron_tag"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:     "printerd",
			DisplayName: "Printerd",
			Description: "Deployment and check-in agent for the ticket-printer fleet",
			EnvPrefix:   "PRINTERD",
			GitHubRepo:  "mccannical/ticket-printer",
			OriginURL:   "https://github.com/mccannical/ticket-printer.git",
			InstallDir:  "/opt/ticket-printer",
			CronTag:     "# printerd:managed",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "printerd").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// EnvPrefix returns the environment variable prefix (e.g., "PRINTERD").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GitHubRepo returns the "owner/repo" string of the release source.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// OriginURL returns the canonical git URL the working copy must track.
func OriginURL() string { load(); return defaults.OriginURL }

// InstallDir returns the default working copy location on a device.
func InstallDir() string { load(); return defaults.InstallDir }

// CronTag returns the marker identifying crontab entries owned by this
// agent. Reconciliation only ever removes lines carrying this tag.
func CronTag() string { load(); return defaults.CronTag }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("CHANNEL") → "PRINTERD_CHANNEL".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
