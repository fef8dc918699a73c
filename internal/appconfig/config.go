package appconfig

import (
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	Console       ConsoleConfig    `mapstructure:"console" yaml:"console"`
	Channel       ChannelConfig    `mapstructure:"channel" yaml:"channel"`
	Capability    CapabilityConfig `mapstructure:"capability" yaml:"capability"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ConsoleConfig locates the operator console's control endpoint. The
// host itself comes from pairing, never from config.
type ConsoleConfig struct {
	Port int    `mapstructure:"port" yaml:"port"`
	Path string `mapstructure:"path" yaml:"path"`
}

// ChannelConfig controls control-channel behavior.
type ChannelConfig struct {
	ReconnectBaseSeconds    int  `mapstructure:"reconnect_base_seconds" yaml:"reconnect_base_seconds"`
	ReconnectMaxSeconds     int  `mapstructure:"reconnect_max_seconds" yaml:"reconnect_max_seconds"`
	HandshakeTimeoutSeconds int  `mapstructure:"handshake_timeout_seconds" yaml:"handshake_timeout_seconds"`
	PingIntervalSeconds     int  `mapstructure:"ping_interval_seconds" yaml:"ping_interval_seconds"`
	DisableReconnect        bool `mapstructure:"disable_reconnect" yaml:"disable_reconnect"`
}

// CapabilityConfig configures the platform scan helper.
type CapabilityConfig struct {
	Binary             string   `mapstructure:"binary" yaml:"binary"`
	Args               []string `mapstructure:"args" yaml:"args"`
	UploadPort         int      `mapstructure:"upload_port" yaml:"upload_port"`
	StopTimeoutSeconds int      `mapstructure:"stop_timeout_seconds" yaml:"stop_timeout_seconds"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Console: ConsoleConfig{
			Port: 9876,
			Path: "/control",
		},
		Channel: ChannelConfig{
			ReconnectBaseSeconds:    1,
			ReconnectMaxSeconds:     30,
			HandshakeTimeoutSeconds: 10,
			PingIntervalSeconds:     30,
			DisableReconnect:        false,
		},
		Capability: CapabilityConfig{
			Binary:             "roomscan-helper",
			Args:               []string{},
			UploadPort:         8000,
			StopTimeoutSeconds: 5,
		},
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".roomlink", "config.yaml"), nil
}
