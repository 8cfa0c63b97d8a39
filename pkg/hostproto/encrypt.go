package hostproto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/Dynosol/Embedded-Bootloader/pkg/bootcore"
)

// Update is one fully packaged update: the AES-128-GCM ciphertext and
// its IV/tag, plus the plaintext metadata the device will persist.
type Update struct {
	Version        uint16
	Ciphertext     []byte
	IV             [bootcore.GCMIVSize]byte
	Tag            [bootcore.GCMTagSize]byte
	ReleaseMessage []byte
}

// Pack encrypts plaintext under keys.AESKey with a fresh random IV and
// bundles it with the version and release message into an Update ready
// to Send. This is the host-side counterpart to the device's gcm_open:
// the device will decrypt exactly what this function produced.
func Pack(plaintext []byte, version uint16, releaseMessage []byte, keys bootcore.Keys) (*Update, error) {
	block, err := aes.NewCipher(keys.AESKey[:])
	if err != nil {
		return nil, fmt.Errorf("hostproto: invalid AES key: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, bootcore.GCMIVSize)
	if err != nil {
		return nil, fmt.Errorf("hostproto: GCM init failed: %w", err)
	}

	var iv [bootcore.GCMIVSize]byte
	if _, err := rand.Read(iv[:]); err != nil {
		return nil, fmt.Errorf("hostproto: IV generation failed: %w", err)
	}

	sealed := gcm.Seal(nil, iv[:], plaintext, nil)
	ciphertext := sealed[:len(plaintext)]
	tag := sealed[len(plaintext):]

	u := &Update{
		Version:        version,
		Ciphertext:     ciphertext,
		ReleaseMessage: releaseMessage,
	}
	u.IV = iv
	copy(u.Tag[:], tag)
	return u, nil
}

// Metadata builds the FirmwareMetadata record describing u.
func (u *Update) Metadata() bootcore.FirmwareMetadata {
	return bootcore.FirmwareMetadata{
		Version:        u.Version,
		FWSize:         uint16(len(u.Ciphertext)),
		ReleaseMsgSize: uint16(len(u.ReleaseMessage)),
	}
}
