package bootcore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
)

// HMACSize is the width of the pre-shared-key authenticator used at every
// protocol step.
const HMACSize = 32

// GCMIVSize and GCMTagSize are the AES-128-GCM nonce and tag widths used
// for the single terminal decrypt+verify of the whole firmware image.
const (
	GCMIVSize  = 16
	GCMTagSize = 16
)

// Keys holds the two pre-shared symmetric keys the bootloader is built
// with. Neither key is ever mutated at runtime.
type Keys struct {
	HMACKey [32]byte
	AESKey  [16]byte
}

// hmacVerify reads the 32-byte expected MAC from debug, computes
// HMAC-SHA256 over data with the pre-shared MAC key, and compares the two
// in constant time. A mismatch, or a transport error while reading the
// MAC, yields a *Failure; the caller must treat either as fatal.
func hmacVerify(debug Channel, key []byte, data []byte) error {
	expected, ok := ReadN(debug, HMACSize)
	if !ok {
		return transportFailure(nil)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	computed := mac.Sum(nil)
	if !constantTimeEqual(expected, computed) {
		return authFailure("HMAC mismatch")
	}
	return nil
}

// constantTimeEqual compares two equal-length byte slices without a
// data-dependent early exit: every byte pair is XORed into a single
// accumulator, which is tested against zero only once, at the end. This
// mirrors the reference bootloader's hand-rolled compare rather than
// relying on a library's own constant-time guarantee: the loop visits
// every byte regardless of where the first mismatch falls. The
// accumulator is local and is not exposed to callers or tests.
func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

// gcmOpen reads the 16-byte IV and 16-byte tag from debug, then decrypts
// ct in place with AES-128-GCM under the pre-shared cipher key, verifying
// the tag. No associated data is used. On any failure ct is left
// unspecified and the caller must abort.
func gcmOpen(debug Channel, key []byte, ct []byte) error {
	iv, ok := ReadN(debug, GCMIVSize)
	if !ok {
		return transportFailure(nil)
	}
	tag, ok := ReadN(debug, GCMTagSize)
	if !ok {
		return transportFailure(nil)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return authFailure("invalid AES key")
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, GCMIVSize)
	if err != nil {
		return authFailure("GCM init failed")
	}

	sealed := make([]byte, 0, len(ct)+len(tag))
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plain, err := gcm.Open(ct[:0], iv, sealed, nil)
	if err != nil {
		return authFailure("GCM tag mismatch")
	}
	copy(ct, plain)
	return nil
}
