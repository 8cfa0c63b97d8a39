package hostconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadValidConfigAndResolveRelativePaths(t *testing.T) {
	tmp := t.TempDir()
	hmacPath := filepath.Join(tmp, "hmac.hex")
	aesPath := filepath.Join(tmp, "aes.hex")
	if err := os.WriteFile(hmacPath, []byte(strings.Repeat("ab", 32)+"\n"), 0o644); err != nil {
		t.Fatalf("write hmac key: %v", err)
	}
	if err := os.WriteFile(aesPath, []byte(strings.Repeat("cd", 16)+"\n"), 0o644); err != nil {
		t.Fatalf("write aes key: %v", err)
	}

	cfgPath := filepath.Join(tmp, "config.yaml")
	cfgYAML := `
keys:
  hmac_key_file: "hmac.hex"
  aes_key_file: "aes.hex"
runtime:
  host_in_port: "/dev/ttyUSB0"
  host_ack_port: "/dev/ttyUSB1"
  debug_port: "/dev/ttyUSB2"
  baud: 115200
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Keys.HMACKeyFile != hmacPath {
		t.Fatalf("expected resolved hmac key path %q, got %q", hmacPath, cfg.Keys.HMACKeyFile)
	}
	if cfg.Keys.AESKeyFile != aesPath {
		t.Fatalf("expected resolved aes key path %q, got %q", aesPath, cfg.Keys.AESKeyFile)
	}
	if cfg.Runtime.Baud != 115200 {
		t.Fatalf("expected baud 115200, got %d", cfg.Runtime.Baud)
	}
}

func TestLoadFailsWhenHMACKeyFileMissing(t *testing.T) {
	cfgPath := writeConfig(t, `
keys:
  aes_key_file: "aes.hex"
runtime:
  host_in_port: "/dev/ttyUSB0"
  host_ack_port: "/dev/ttyUSB1"
  debug_port: "/dev/ttyUSB2"
  baud: 115200
`)
	_, err := Load(cfgPath)
	if err == nil || !strings.Contains(err.Error(), "config.keys.hmac_key_file is required") {
		t.Fatalf("expected missing hmac key file error, got %v", err)
	}
}

func TestLoadFailsWhenKeyFileUnreadable(t *testing.T) {
	cfgPath := writeConfig(t, `
keys:
  hmac_key_file: "missing-hmac.hex"
  aes_key_file: "missing-aes.hex"
runtime:
  host_in_port: "/dev/ttyUSB0"
  host_ack_port: "/dev/ttyUSB1"
  debug_port: "/dev/ttyUSB2"
  baud: 115200
`)
	_, err := Load(cfgPath)
	if err == nil || !strings.Contains(err.Error(), "config.keys.hmac_key_file") {
		t.Fatalf("expected unreadable hmac key file error, got %v", err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	cfgPath := writeConfig(t, `
keys:
  hmac_key_file: "hmac.hex"
  aes_key_file: "aes.hex"
extra_field: true
`)
	_, err := Load(cfgPath)
	if err == nil {
		t.Fatalf("expected error for unknown field, got nil")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}
