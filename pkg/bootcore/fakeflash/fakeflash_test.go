package fakeflash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsFullyErased(t *testing.T) {
	f := New(256, 64)
	assert.True(t, f.IsErased(0, 256))
}

func TestErasePageRejectsMisalignedAddr(t *testing.T) {
	f := New(256, 64)
	require.Error(t, f.ErasePage(10))
}

func TestErasePageRejectsOutOfRange(t *testing.T) {
	f := New(256, 64)
	require.Error(t, f.ErasePage(256))
}

func TestProgramWordsOnlyClearsBits(t *testing.T) {
	f := New(64, 64)
	require.NoError(t, f.ProgramWords(0, []byte{0x0F, 0xFF, 0xFF, 0xFF}))
	assert.Equal(t, byte(0x0F), f.Read(0, 1)[0])

	// Programming again can only clear further bits, never set them
	// back: ANDing 0xF0 into an already-cleared 0x0F leaves 0x00.
	require.NoError(t, f.ProgramWords(0, []byte{0xF0, 0xFF, 0xFF, 0xFF}))
	assert.Equal(t, byte(0x00), f.Read(0, 1)[0])
}

func TestProgramWordsRejectsNonWordAligned(t *testing.T) {
	f := New(64, 64)
	require.Error(t, f.ProgramWords(0, []byte{0x00, 0x00, 0x00}))
}

func TestProgramWordsRejectsOutOfRange(t *testing.T) {
	f := New(8, 8)
	require.Error(t, f.ProgramWords(4, []byte{0, 0, 0, 0, 0, 0, 0, 0}))
}

func TestEraseThenProgramRoundTrip(t *testing.T) {
	f := New(128, 64)
	require.NoError(t, f.ProgramWords(0, []byte{0xAA, 0xBB, 0xCC, 0xDD}))
	require.NoError(t, f.ErasePage(0))
	assert.True(t, f.IsErased(0, 64))
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	f := New(16, 16)
	snap := f.Snapshot()
	require.NoError(t, f.ProgramWords(0, []byte{0, 0, 0, 0}))
	assert.True(t, f.IsErased(0, 16) == false)
	assert.Equal(t, byte(0xFF), snap[0], "snapshot must not alias live memory")
}
