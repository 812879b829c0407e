// Package config loads the lanshare settings from a YAML file and LANSHARE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of the environment variables, LANSHARE_FTP_PORT overrides ftp.port
const EnvPrefix = "LANSHARE"

// Config is the whole configuration of the application
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	FTP     FTPConfig     `mapstructure:"ftp" yaml:"ftp"`
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	// Format is text (colored) or json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
}

type FTPConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Port     int    `mapstructure:"port" validate:"min=0,max=65535" yaml:"port"`
	Root     string `mapstructure:"root" validate:"required_if=Enabled true" yaml:"root"`
	Username string `mapstructure:"username" validate:"required_if=Enabled true" yaml:"username"`
	Password string `mapstructure:"password" validate:"required_if=Enabled true" yaml:"password"`
	Welcome  string `mapstructure:"welcome" yaml:"welcome"`

	// PublicIPv4 is advertised in PASV replies instead of the detected LAN address
	PublicIPv4  string `mapstructure:"public_ipv4" validate:"omitempty,ipv4" yaml:"public_ipv4"`
	PasvMinPort int    `mapstructure:"pasv_min_port" validate:"min=0,max=65535" yaml:"pasv_min_port"`
	PasvMaxPort int    `mapstructure:"pasv_max_port" validate:"omitempty,max=65535,gtefield=PasvMinPort" yaml:"pasv_max_port"`

	// AllowedNetworks limits the clients by address, empty allows everyone
	AllowedNetworks []string `mapstructure:"allowed_networks" validate:"dive,cidr|ip" yaml:"allowed_networks,omitempty"`
}

type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port" validate:"min=0,max=65535" yaml:"port"`
	Root    string `mapstructure:"root" validate:"required_if=Enabled true" yaml:"root"`
	// Password is the shared secret of the API and the browser UI
	Password string `mapstructure:"password" validate:"required_if=Enabled true" yaml:"password"`
	Name     string `mapstructure:"name" yaml:"name"`

	AllowedNetworks []string `mapstructure:"allowed_networks" validate:"dive,cidr|ip" yaml:"allowed_networks,omitempty"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Default returns the configuration used when there is no config file
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		FTP: FTPConfig{
			Enabled:  true,
			Port:     2121,
			Root:     "./share",
			Username: "user",
			Password: "pass",
			Welcome:  "lanshare FTP ready",
		},
		HTTP: HTTPConfig{
			Enabled:  true,
			Port:     8080,
			Root:     "./share",
			Password: "secret",
			Name:     "lanshare",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// Load reads the config file and applies the environment on top of it.
// An empty path searches the default locations, a missing file leaves the defaults in place.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks the field constraints of the configuration
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}

// Save writes the configuration as YAML, the file may hold passwords so only the owner can read it
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Marshal returns the configuration as YAML
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func setupViper(v *viper.Viper, configPath string) {
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.AddConfigPath(".")
	v.SetConfigName("lanshare")
	v.SetConfigType("yaml")
}

// setDefaults registers every key, AutomaticEnv only looks up keys viper already knows
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("ftp.enabled", cfg.FTP.Enabled)
	v.SetDefault("ftp.port", cfg.FTP.Port)
	v.SetDefault("ftp.root", cfg.FTP.Root)
	v.SetDefault("ftp.username", cfg.FTP.Username)
	v.SetDefault("ftp.password", cfg.FTP.Password)
	v.SetDefault("ftp.welcome", cfg.FTP.Welcome)
	v.SetDefault("ftp.public_ipv4", cfg.FTP.PublicIPv4)
	v.SetDefault("ftp.pasv_min_port", cfg.FTP.PasvMinPort)
	v.SetDefault("ftp.pasv_max_port", cfg.FTP.PasvMaxPort)
	v.SetDefault("ftp.allowed_networks", cfg.FTP.AllowedNetworks)

	v.SetDefault("http.enabled", cfg.HTTP.Enabled)
	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("http.root", cfg.HTTP.Root)
	v.SetDefault("http.password", cfg.HTTP.Password)
	v.SetDefault("http.name", cfg.HTTP.Name)
	v.SetDefault("http.allowed_networks", cfg.HTTP.AllowedNetworks)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
}

// readConfigFile reads the config file, not finding one is not an error
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to read config file: %w", err)
}

// getConfigDir returns $XDG_CONFIG_HOME/lanshare, ~/.config/lanshare or "." as the last resort
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "lanshare")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "lanshare")
}

// DefaultPath is where "config init" writes when no path is given
func DefaultPath() string {
	return filepath.Join(getConfigDir(), "lanshare.yaml")
}
