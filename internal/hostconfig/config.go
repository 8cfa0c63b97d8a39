// Package hostconfig loads cmd/hostupdate's YAML configuration: key
// file locations and default serial-port settings.
package hostconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Dynosol/Embedded-Bootloader/pkg/bootcore"
)

// Config is the top-level document cmd/hostupdate loads with --config.
type Config struct {
	Keys    KeysConfig    `yaml:"keys"`
	Runtime RuntimeConfig `yaml:"runtime"`
}

// KeysConfig names the hex key files provisioned for one device.
type KeysConfig struct {
	HMACKeyFile string `yaml:"hmac_key_file"`
	AESKeyFile  string `yaml:"aes_key_file"`
}

// RuntimeConfig holds the defaults a CLI flag can override. The
// bootloader speaks over three physical serial ports, one per logical
// channel, matching the reference implementation's UART0/UART1/UART2
// split rather than multiplexing all traffic onto a single port.
type RuntimeConfig struct {
	HostInPort  string `yaml:"host_in_port"`
	HostAckPort string `yaml:"host_ack_port"`
	DebugPort   string `yaml:"debug_port"`
	Baud        int    `yaml:"baud"`
}

// Load reads and validates the YAML document at path. Unknown fields
// are rejected and relative key-file paths resolve against the
// directory containing path, not the process's working directory.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.resolvePaths(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that both key files are named, exist and are not
// directories, and that the baud rate is not negative. It does not open
// the key files.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Keys.HMACKeyFile) == "" {
		return fmt.Errorf("config.keys.hmac_key_file is required")
	}
	if err := validateReadableFile(c.Keys.HMACKeyFile, "config.keys.hmac_key_file"); err != nil {
		return err
	}

	if strings.TrimSpace(c.Keys.AESKeyFile) == "" {
		return fmt.Errorf("config.keys.aes_key_file is required")
	}
	if err := validateReadableFile(c.Keys.AESKeyFile, "config.keys.aes_key_file"); err != nil {
		return err
	}

	if c.Runtime.Baud < 0 {
		return fmt.Errorf("config.runtime.baud must be >= 0")
	}

	return nil
}

func (c *Config) resolvePaths(configPath string) {
	configDir := filepath.Dir(configPath)
	c.Keys.HMACKeyFile = resolvePath(configDir, c.Keys.HMACKeyFile)
	c.Keys.AESKeyFile = resolvePath(configDir, c.Keys.AESKeyFile)
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}

// LoadKeys reads the two key files named in cfg into a bootcore.Keys.
func LoadKeys(cfg *Config) (bootcore.Keys, error) {
	return bootcore.LoadKeys(cfg.Keys.HMACKeyFile, cfg.Keys.AESKeyFile)
}

func validateReadableFile(path string, field string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s must point to a file, got directory", field)
	}
	return nil
}
