package bootcore

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadHexKeyFile loads a fixed-width key from a file containing a
// single line of hex characters. It is used at startup to build a
// Keys value: cmd/bootloader and cmd/simulate load their keys from the
// files named by their flags, and the host tool loads the
// hmac_key_file/aes_key_file its config points at.
func LoadHexKeyFile(path string, width int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(line) != width*2 {
			return nil, fmt.Errorf("key must be %d hex chars, got %d", width*2, len(line))
		}
		key, err := hex.DecodeString(line)
		if err != nil {
			return nil, fmt.Errorf("invalid hex key: %w", err)
		}
		return key, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("key file is empty")
}

// LoadKeys reads the HMAC and AES keys from two hex key files and
// returns a populated Keys value.
func LoadKeys(hmacKeyFile, aesKeyFile string) (Keys, error) {
	var keys Keys

	hmacKey, err := LoadHexKeyFile(hmacKeyFile, len(keys.HMACKey))
	if err != nil {
		return Keys{}, fmt.Errorf("hmac key: %w", err)
	}
	aesKey, err := LoadHexKeyFile(aesKeyFile, len(keys.AESKey))
	if err != nil {
		return Keys{}, fmt.Errorf("aes key: %w", err)
	}

	copy(keys.HMACKey[:], hmacKey)
	copy(keys.AESKey[:], aesKey)
	return keys, nil
}
