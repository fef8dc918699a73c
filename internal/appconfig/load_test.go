package appconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := DefaultConfig()
	if cfg.Console.Port != want.Console.Port || cfg.Console.Path != want.Console.Path {
		t.Fatalf("unexpected console config: %+v", cfg.Console)
	}
	if cfg.Channel.ReconnectBaseSeconds != want.Channel.ReconnectBaseSeconds {
		t.Fatalf("unexpected channel config: %+v", cfg.Channel)
	}
	if cfg.Capability.Binary != want.Capability.Binary {
		t.Fatalf("unexpected capability config: %+v", cfg.Capability)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "config_version: 1\nconsole:\n  port: 4242\nchannel:\n  reconnect_base_seconds: 2\n  disable_reconnect: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Console.Port != 4242 {
		t.Fatalf("expected port override, got %d", cfg.Console.Port)
	}
	if cfg.Console.Path != "/control" {
		t.Fatalf("expected default path, got %q", cfg.Console.Path)
	}
	if cfg.Channel.ReconnectBaseSeconds != 2 || !cfg.Channel.DisableReconnect {
		t.Fatalf("expected channel overrides, got %+v", cfg.Channel)
	}
}

func TestLoadRejectsWrongVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("config_version: 99\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestLoadRejectsMissingVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("console:\n  port: 4242\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing version error")
	}
}

func TestLoadValidatesRanges(t *testing.T) {
	cases := []string{
		"config_version: 1\nconsole:\n  port: 0\n",
		"config_version: 1\nconsole:\n  path: control\n",
		"config_version: 1\nchannel:\n  reconnect_base_seconds: 0\n",
		"config_version: 1\nchannel:\n  reconnect_base_seconds: 10\n  reconnect_max_seconds: 5\n",
		"config_version: 1\ncapability:\n  upload_port: 99999\n",
	}
	for _, content := range cases {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("expected validation error for %q", content)
		}
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomlink", "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if written != path {
		t.Fatalf("unexpected path: %q", written)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	want := DefaultConfig()
	if cfg.ConfigVersion != want.ConfigVersion || cfg.Console != want.Console ||
		cfg.Channel != want.Channel || cfg.Capability.Binary != want.Capability.Binary {
		t.Fatalf("written config does not round trip: %+v", cfg)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("WriteDefault force: %v", err)
	}
}
