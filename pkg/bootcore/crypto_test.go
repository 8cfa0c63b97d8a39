package bootcore

import (
	"crypto/hmac"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func sumHMAC(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// Property 1 (authenticator soundness): any message tampered after its
// HMAC was computed is rejected by hmacVerify, regardless of where the
// tamper lands.
func TestHMACVerifyRejectsAnyTamper(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 256).Draw(t, "data")
		flipIndex := rapid.IntRange(0, len(data)-1).Draw(t, "flipIndex")

		good := sumHMAC(key, data)

		debugHost, debugDevice := testMemChannelPair()
		go writeBytesToChannel(debugHost, good)
		err := hmacVerify(debugDevice, key, data)
		if err != nil {
			t.Fatalf("untampered message unexpectedly rejected: %v", err)
		}

		tampered := append([]byte{}, data...)
		tampered[flipIndex] ^= 0xFF

		debugHost2, debugDevice2 := testMemChannelPair()
		go writeBytesToChannel(debugHost2, good)
		err = hmacVerify(debugDevice2, key, tampered)
		if err == nil {
			t.Fatalf("tampered message was accepted")
		}
		if !IsAuthFailure(err) {
			t.Fatalf("expected an Auth failure, got %v", err)
		}
	})
}

// Property 9 (constant-time compare): equal slices compare equal, and a
// single flipped byte is detected wherever it falls. These checks cover
// the result only; the loop shape in constantTimeEqual is what rules out
// an early exit.
func TestConstantTimeEqualStructural(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 64).Draw(t, "n")
		a := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, "a")
		b := append([]byte{}, a...)

		if !constantTimeEqual(a, b) {
			t.Fatalf("identical slices compared unequal")
		}

		mismatchAt := rapid.IntRange(0, n-1).Draw(t, "mismatchAt")
		b[mismatchAt] ^= 0x01
		if constantTimeEqual(a, b) {
			t.Fatalf("mismatched slices compared equal")
		}
	})
}

func TestConstantTimeEqualRejectsLengthMismatch(t *testing.T) {
	assert.False(t, constantTimeEqual([]byte{1, 2, 3}, []byte{1, 2}))
}

func TestGCMOpenRejectsTag(t *testing.T) {
	aesKey := make([]byte, 16)
	plaintext := []byte("firmware bytes go here")
	ct := append([]byte{}, plaintext...)

	iv := make([]byte, GCMIVSize)
	tag := make([]byte, GCMTagSize)
	debugHost, debugDevice := testMemChannelPair()
	go func() {
		writeBytesToChannel(debugHost, iv)
		writeBytesToChannel(debugHost, tag)
	}()

	err := gcmOpen(debugDevice, aesKey, ct)
	require.Error(t, err)
	assert.True(t, IsAuthFailure(err))
}
