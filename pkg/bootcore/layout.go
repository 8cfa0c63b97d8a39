package bootcore

// Layout describes the flash addresses and size limits the CORE programs
// against. It is a plain value rather than a set of package-level
// constants so the same protocol and flash-manager code can run against a
// real target's memory map or a RAM-backed fake used in tests.
type Layout struct {
	// MetaAddr is the page address of the 6-byte firmware metadata record.
	MetaAddr uint32
	// MsgAddr is the page address of the release-message page.
	MsgAddr uint32
	// FWAddr is the first page address of the firmware image.
	FWAddr uint32
	// PageSize is the flash erase/program granularity in bytes.
	PageSize uint32
	// FWMax is the largest firmware image this layout will accept.
	FWMax uint32
	// MsgMax is the largest release message this layout will accept.
	MsgMax uint32
}

// DefaultLayout returns the addresses used by the reference bootloader this
// package was modeled on: a 1 KiB page size, a 30 KiB firmware cap, and a
// 1 KiB release-message cap.
func DefaultLayout() Layout {
	return Layout{
		MetaAddr: 0xFC00,
		MsgAddr:  0xF800,
		FWAddr:   0x10000,
		PageSize: 1024,
		FWMax:    30 * 1024,
		MsgMax:   1024,
	}
}

// StagingSize is the size of the RAM region that must be reserved to stage
// one update transaction under this layout: firmware, its 6-byte metadata,
// and the release message, all contiguous.
func (l Layout) StagingSize() int {
	return int(l.FWMax) + FirmwareMetadataSize + int(l.MsgMax)
}

// LastFrameIndex returns the zero-based index of the final frame needed to
// carry fwSize bytes, i.e. ceil(fwSize/PageSize) - 1.
func (l Layout) LastFrameIndex(fwSize uint16) int {
	n := (int(fwSize) + int(l.PageSize) - 1) / int(l.PageSize)
	return n - 1
}
