package shellserver

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	defaults "github.com/Paranoid-AF/shellserver/default"
)

// Config represents the user's shellserver front-end configuration.
type Config struct {
	Version int           `toml:"version"`
	Daemon  DaemonConfig  `toml:"daemon"`
	Predict PredictConfig `toml:"predict"`
	Listing ListingConfig `toml:"listing"`
	Theme   ThemeConfig   `toml:"theme"`
}

// DaemonConfig holds the endpoint and timing used to reach the daemon.
type DaemonConfig struct {
	Address    string `toml:"address"`
	TimeoutMS  int    `toml:"timeout_ms"`
	ClientName string `toml:"client_name"`
}

// PredictConfig holds settings for predictive path completion.
type PredictConfig struct {
	// Commands are the invocation names that trigger fuzzy prediction.
	Commands []string `toml:"commands"`
}

// ListingConfig holds settings for directory listings.
type ListingConfig struct {
	DefaultOptions string `toml:"default_options"`
}

// ThemeConfig holds line-editor theme settings.
type ThemeConfig struct {
	Light bool `toml:"light"`
}

// ConfigDir returns the config directory path.
// Resolution order: $SHELLSERVER_CONFIG_DIR > $XDG_CONFIG_HOME/shellserver > ~/.config/shellserver
func ConfigDir() string {
	if dir := os.Getenv("SHELLSERVER_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "shellserver")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "shellserver-config")
	}
	return filepath.Join(home, ".config", "shellserver")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultConfig returns the default configuration from the embedded default_config.toml.
func DefaultConfig() *Config {
	var cfg Config
	if _, err := toml.Decode(defaults.DefaultConfigTOML, &cfg); err != nil {
		panic("shellserver: invalid embedded default_config.toml: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile loads the config at path, filling missing fields from defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}
	if cfg.Daemon.Address == "" {
		cfg.Daemon.Address = defaults.Daemon.Address
	}
	if cfg.Daemon.TimeoutMS == 0 {
		cfg.Daemon.TimeoutMS = defaults.Daemon.TimeoutMS
	}
	if cfg.Daemon.ClientName == "" {
		cfg.Daemon.ClientName = defaults.Daemon.ClientName
	}
	if len(cfg.Predict.Commands) == 0 {
		cfg.Predict.Commands = defaults.Predict.Commands
	}
	if cfg.Listing.DefaultOptions == "" {
		cfg.Listing.DefaultOptions = defaults.Listing.DefaultOptions
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if cfg.Daemon.TimeoutMS < 0 {
		warnings = append(warnings, "daemon.timeout_ms is negative; the default of 3000 ms will be used")
	}
	if strings.ContainsAny(cfg.Daemon.ClientName, ";\n") {
		warnings = append(warnings, "daemon.client_name contains ';' or a newline and cannot be sent to the daemon")
	}
	if cfg.Listing.DefaultOptions != "" && !strings.HasPrefix(cfg.Listing.DefaultOptions, "-") {
		warnings = append(warnings, "listing.default_options should start with '-'")
	}
	for _, c := range cfg.Predict.Commands {
		if strings.ContainsAny(c, " \t") {
			warnings = append(warnings, "predict.commands entry "+strconv.Quote(c)+" contains whitespace and will never match")
		}
	}
	return warnings
}

// ResolveAddress returns the daemon address.
// Priority: $SHELLSERVER_ADDR env > config value > DefaultAddress.
func ResolveAddress(cfg *Config) string {
	if addr := os.Getenv("SHELLSERVER_ADDR"); addr != "" {
		return addr
	}
	if cfg != nil && cfg.Daemon.Address != "" {
		return cfg.Daemon.Address
	}
	return DefaultAddress
}

// ResolveTimeout returns the per-fragment receive timeout.
// Priority: $SHELLSERVER_TIMEOUT_MS env > config value > 3000 ms.
func ResolveTimeout(cfg *Config) time.Duration {
	if v := os.Getenv("SHELLSERVER_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	if cfg != nil && cfg.Daemon.TimeoutMS > 0 {
		return time.Duration(cfg.Daemon.TimeoutMS) * time.Millisecond
	}
	return 3000 * time.Millisecond
}

// ResolveClientName returns the identifier announced to the daemon at attach.
// Priority: $SHELLSERVER_CLIENT env > config value.
func ResolveClientName(cfg *Config) string {
	if name := os.Getenv("SHELLSERVER_CLIENT"); name != "" {
		return name
	}
	if cfg != nil {
		return cfg.Daemon.ClientName
	}
	return ""
}
