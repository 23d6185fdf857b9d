package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Seednode/slotpick/games/slots"
	"github.com/spf13/viper"
)

func TestParseSlots(t *testing.T) {
	got, err := parseSlots([]string{"Alpha", " Bravo :b:pass", "Charlie:"})
	if err != nil {
		t.Fatal(err)
	}

	want := []slots.Binding{
		{Name: "Alpha"},
		{Name: "Bravo", Secret: "b:pass"},
		{Name: "Charlie"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d bindings", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("binding %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if _, err := parseSlots([]string{":secret"}); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			identity:     identityToken,
			pollInterval: slots.DefaultPollInterval,
			port:         8080,
			slots:        defaultSlots,
		}
	}

	if err := base().validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.port = 0 }},
		{"port too high", func(c *Config) { c.port = 70000 }},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }},
		{"unknown identity", func(c *Config) { c.identity = "cookie" }},
		{"zero poll interval", func(c *Config) { c.pollInterval = 0 }},
		{"no slots", func(c *Config) { c.slots = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := base()
	cfg.slots = nil
	if err := cfg.validate(); !errors.Is(err, slots.ErrNoSlots) {
		t.Fatalf("expected ErrNoSlots, got %v", err)
	}
}

func TestConfigFileSuppliesSlots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slotpick.yaml")
	data := []byte(`port: 9090
identity: address
slots:
  - name: Hidden One
    secret: one
  - name: Hidden Two
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{}
	cmd := newCmd(cfg)
	if err := cmd.ParseFlags([]string{"--config", path, "--port", "7070"}); err != nil {
		t.Fatal(err)
	}

	if err := loadConfigFile(viper.New(), cfg, cmd.Flags()); err != nil {
		t.Fatal(err)
	}
	if err := cfg.validate(); err != nil {
		t.Fatal(err)
	}

	if cfg.port != 7070 {
		t.Errorf("command line port overridden: %d", cfg.port)
	}
	if cfg.identity != identityAddress {
		t.Errorf("identity from file not applied: %q", cfg.identity)
	}
	if len(cfg.bindings) != 2 || cfg.bindings[0].Name != "Hidden One" || cfg.bindings[0].Secret != "one" || cfg.bindings[1].Secret != "" {
		t.Fatalf("unexpected bindings %+v", cfg.bindings)
	}
}

func TestSlotFlagBeatsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slotpick.toml")
	data := []byte("[[slots]]\nname = \"From File\"\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{}
	cmd := newCmd(cfg)
	if err := cmd.ParseFlags([]string{"--config", path, "--slot", "One:1", "--slot", "Two"}); err != nil {
		t.Fatal(err)
	}

	if err := loadConfigFile(viper.New(), cfg, cmd.Flags()); err != nil {
		t.Fatal(err)
	}
	if err := cfg.validate(); err != nil {
		t.Fatal(err)
	}

	if len(cfg.bindings) != 2 || cfg.bindings[0].Name != "One" || cfg.bindings[0].Secret != "1" {
		t.Fatalf("unexpected bindings %+v", cfg.bindings)
	}
}
