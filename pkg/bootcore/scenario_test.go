package bootcore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dynosol/Embedded-Bootloader/pkg/bootcore"
	"github.com/Dynosol/Embedded-Bootloader/pkg/hostproto"
)

func seedStoredVersion(t *testing.T, d *device, version uint16) {
	t.Helper()
	meta := bootcore.FirmwareMetadata{Version: version, FWSize: 0, ReleaseMsgSize: 0}
	require.NoError(t, d.dispatcher.Flash.Program(d.layout.MetaAddr, meta.MarshalBinary()))
}

func makeFirmware(n int) []byte {
	fw := make([]byte, n)
	for i := range fw {
		fw[i] = byte(i)
	}
	return fw
}

// S1: happy path upload.
func TestScenarioHappyPath(t *testing.T) {
	d, hostSet := newDevice()
	seedStoredVersion(t, d, 1)
	d.run()

	plaintext := makeFirmware(2500)
	releaseMsg := []byte("version three is here")
	update, err := hostproto.Pack(plaintext, 3, releaseMsg, testKeys)
	require.NoError(t, err)

	var stages []string
	err = hostproto.Send(hostSet, d.layout, testKeys, update, func(s string) { stages = append(stages, s) })
	require.NoError(t, err)
	assert.Contains(t, stages, "decrypt")

	meta := d.storedMetadata()
	assert.Equal(t, uint16(3), meta.Version)
	assert.Equal(t, uint16(len(plaintext)), meta.FWSize)
	assert.Equal(t, uint16(len(releaseMsg)), meta.ReleaseMsgSize)

	fw := d.flash.Read(d.layout.FWAddr, len(plaintext))
	assert.Equal(t, plaintext, fw)
}

// S2: rollback is rejected.
func TestScenarioRollbackRejected(t *testing.T) {
	d, hostSet := newDevice()
	seedStoredVersion(t, d, 5)
	before := d.flash.Snapshot()
	d.run()

	plaintext := makeFirmware(100)
	update, err := hostproto.Pack(plaintext, 4, []byte("msg"), testKeys)
	require.NoError(t, err)

	err = hostproto.Send(hostSet, d.layout, testKeys, update, nil)
	require.Error(t, err)
	assert.IsType(t, &hostproto.ErrRejected{}, err)

	after := d.flash.Snapshot()
	assert.Equal(t, before, after)
}

// S3: a single bit flipped in the ciphertext of frame 1, after the
// update was packaged, is rejected — the frame's own HMAC is computed
// fresh over the tampered bytes so it still passes, but the tampered
// ciphertext no longer matches the GCM tag bound to the original
// plaintext, so the decrypt step rejects it and flash is left
// untouched.
func TestScenarioTamperedFrameRejected(t *testing.T) {
	d, hostSet := newDevice()
	seedStoredVersion(t, d, 1)
	before := d.flash.Snapshot()
	d.run()

	plaintext := makeFirmware(2500)
	update, err := hostproto.Pack(plaintext, 3, []byte("msg"), testKeys)
	require.NoError(t, err)

	pageSize := int(d.layout.PageSize)
	update.Ciphertext[pageSize] ^= 0x01 // flip a bit in frame 1's payload

	err = hostproto.Send(hostSet, d.layout, testKeys, update, nil)
	require.Error(t, err)
	assert.IsType(t, &hostproto.ErrRejected{}, err)

	after := d.flash.Snapshot()
	assert.Equal(t, before, after)
}

// S4: reserved version 1 is rejected at the first frame's version check.
func TestScenarioReservedVersionRejected(t *testing.T) {
	d, hostSet := newDevice()
	seedStoredVersion(t, d, 0)
	d.run()

	plaintext := makeFirmware(100)
	update, err := hostproto.Pack(plaintext, bootcore.ReservedVersion, []byte("msg"), testKeys)
	require.NoError(t, err)

	err = hostproto.Send(hostSet, d.layout, testKeys, update, nil)
	require.Error(t, err)
}

// S5: debug upload (version 0) succeeds but does not alter stored version.
func TestScenarioDebugUploadPreservesVersion(t *testing.T) {
	d, hostSet := newDevice()
	seedStoredVersion(t, d, 9)
	d.run()

	plaintext := makeFirmware(300)
	update, err := hostproto.Pack(plaintext, bootcore.DebugVersion, []byte("debug msg"), testKeys)
	require.NoError(t, err)

	err = hostproto.Send(hostSet, d.layout, testKeys, update, nil)
	require.NoError(t, err)

	meta := d.storedMetadata()
	assert.Equal(t, uint16(9), meta.Version)

	fw := d.flash.Read(d.layout.FWAddr, len(plaintext))
	assert.Equal(t, plaintext, fw)
}

// S6: after a successful update, a boot command emits the release
// message and transfers control.
func TestScenarioBootAfterUpdate(t *testing.T) {
	d, hostSet := newDevice()
	seedStoredVersion(t, d, 1)
	d.run()

	plaintext := makeFirmware(50)
	msg := []byte("release message here")
	update, err := hostproto.Pack(plaintext, 2, msg, testKeys)
	require.NoError(t, err)
	require.NoError(t, hostproto.Send(hostSet, d.layout, testKeys, update, nil))

	gotMsg, err := hostproto.Boot(hostSet, len(msg))
	require.NoError(t, err)
	assert.Equal(t, string(msg), gotMsg)

	select {
	case entry := <-d.booted:
		assert.Equal(t, d.layout.FWAddr, entry)
	default:
		t.Fatal("expected trampoline to be invoked")
	}
}
