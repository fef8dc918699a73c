package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("console.port", cfg.Console.Port)
	v.SetDefault("console.path", cfg.Console.Path)
	v.SetDefault("channel.reconnect_base_seconds", cfg.Channel.ReconnectBaseSeconds)
	v.SetDefault("channel.reconnect_max_seconds", cfg.Channel.ReconnectMaxSeconds)
	v.SetDefault("channel.handshake_timeout_seconds", cfg.Channel.HandshakeTimeoutSeconds)
	v.SetDefault("channel.ping_interval_seconds", cfg.Channel.PingIntervalSeconds)
	v.SetDefault("channel.disable_reconnect", cfg.Channel.DisableReconnect)
	v.SetDefault("capability.binary", cfg.Capability.Binary)
	v.SetDefault("capability.args", cfg.Capability.Args)
	v.SetDefault("capability.upload_port", cfg.Capability.UploadPort)
	v.SetDefault("capability.stop_timeout_seconds", cfg.Capability.StopTimeoutSeconds)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return Config{}, err
			}
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Console.Port <= 0 || cfg.Console.Port > 65535 {
		return fmt.Errorf("console.port %d out of range", cfg.Console.Port)
	}
	if !strings.HasPrefix(cfg.Console.Path, "/") {
		return fmt.Errorf("console.path must start with /")
	}
	if cfg.Channel.ReconnectBaseSeconds <= 0 {
		return fmt.Errorf("channel.reconnect_base_seconds must be positive")
	}
	if cfg.Channel.ReconnectMaxSeconds < cfg.Channel.ReconnectBaseSeconds {
		return fmt.Errorf("channel.reconnect_max_seconds must be >= channel.reconnect_base_seconds")
	}
	if cfg.Capability.UploadPort <= 0 || cfg.Capability.UploadPort > 65535 {
		return fmt.Errorf("capability.upload_port %d out of range", cfg.Capability.UploadPort)
	}
	return nil
}

// WriteDefault writes the default config file to path. If path is empty,
// uses DefaultConfigPath. Refuses to overwrite unless told to.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
