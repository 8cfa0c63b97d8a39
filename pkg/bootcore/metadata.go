package bootcore

import "encoding/binary"

// FirmwareMetadataSize is the wire and flash size of a FirmwareMetadata
// record: version, fw_size, release_msg_size, each a little-endian uint16.
const FirmwareMetadataSize = 6

// FrameMetadataSize is the wire size of a FrameMetadata record: index,
// frame_length, frame_version, each a little-endian uint16.
const FrameMetadataSize = 6

// ReservedVersion is the firmware version number that is never valid,
// reserved by the wire format and rejected even with a correct HMAC.
const ReservedVersion = 1

// DebugVersion bypasses the anti-rollback check and leaves the stored
// version untouched on commit.
const DebugVersion = 0

// FirmwareMetadata is the 6-byte record describing an incoming update:
// its version, its total ciphertext size, and the size of the release
// message that accompanies it.
type FirmwareMetadata struct {
	Version        uint16
	FWSize         uint16
	ReleaseMsgSize uint16
}

// MarshalBinary encodes m as the little-endian 6-byte wire/flash form.
func (m FirmwareMetadata) MarshalBinary() []byte {
	buf := make([]byte, FirmwareMetadataSize)
	binary.LittleEndian.PutUint16(buf[0:2], m.Version)
	binary.LittleEndian.PutUint16(buf[2:4], m.FWSize)
	binary.LittleEndian.PutUint16(buf[4:6], m.ReleaseMsgSize)
	return buf
}

// UnmarshalFirmwareMetadata decodes a 6-byte little-endian record.
func UnmarshalFirmwareMetadata(buf []byte) FirmwareMetadata {
	return FirmwareMetadata{
		Version:        binary.LittleEndian.Uint16(buf[0:2]),
		FWSize:         binary.LittleEndian.Uint16(buf[2:4]),
		ReleaseMsgSize: binary.LittleEndian.Uint16(buf[4:6]),
	}
}

// Validate checks the bounds and anti-rollback invariants from the wire
// spec against a layout and the currently stored version. It does not
// check frame-level invariants.
func (m FirmwareMetadata) Validate(layout Layout, storedVersion uint16) error {
	if m.FWSize > uint16(layout.FWMax) {
		return &Failure{Kind: Bounds, Diagnostic: "firmware size exceeds cap"}
	}
	if m.ReleaseMsgSize > uint16(layout.MsgMax) {
		return &Failure{Kind: Bounds, Diagnostic: "release message size exceeds cap"}
	}
	if m.Version != DebugVersion && m.Version < storedVersion {
		return &Failure{Kind: Bounds, Diagnostic: "firmware version is older than stored version"}
	}
	return nil
}

// FrameMetadata is the 6-byte record accompanying each frame of ciphertext.
type FrameMetadata struct {
	Index        uint16
	FrameLength  uint16
	FrameVersion uint16
}

// MarshalBinary encodes m as the little-endian 6-byte wire form.
func (m FrameMetadata) MarshalBinary() []byte {
	buf := make([]byte, FrameMetadataSize)
	binary.LittleEndian.PutUint16(buf[0:2], m.Index)
	binary.LittleEndian.PutUint16(buf[2:4], m.FrameLength)
	binary.LittleEndian.PutUint16(buf[4:6], m.FrameVersion)
	return buf
}

// UnmarshalFrameMetadata decodes a 6-byte little-endian record.
func UnmarshalFrameMetadata(buf []byte) FrameMetadata {
	return FrameMetadata{
		Index:        binary.LittleEndian.Uint16(buf[0:2]),
		FrameLength:  binary.LittleEndian.Uint16(buf[2:4]),
		FrameVersion: binary.LittleEndian.Uint16(buf[4:6]),
	}
}

// Validate checks a single frame's metadata against the expected index,
// the firmware version it must match, and the layout's page size.
func (m FrameMetadata) Validate(layout Layout, expectedIndex, lastIndex int, fwVersion uint16) error {
	if int(m.Index) != expectedIndex || int(m.Index) > lastIndex {
		return &Failure{Kind: Bounds, Diagnostic: "frame index out of sequence"}
	}
	if m.FrameLength > uint16(layout.PageSize) {
		return &Failure{Kind: Bounds, Diagnostic: "frame length exceeds page size"}
	}
	if m.FrameVersion != fwVersion || m.FrameVersion == ReservedVersion {
		return &Failure{Kind: Bounds, Diagnostic: "frame version mismatch or reserved"}
	}
	return nil
}
