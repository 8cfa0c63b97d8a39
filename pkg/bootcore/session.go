package bootcore

// Staging is the contiguous RAM region one update transaction stages
// its data into: firmware ciphertext first, then its 6-byte metadata,
// then the release message, all back-to-back so steps 4 and 6 can HMAC
// a single contiguous slice. It is sized FWMax + FirmwareMetadataSize +
// MsgMax by its owning Layout.
type Staging struct {
	buf []byte
}

// NewStaging allocates a zero-initialized staging region sized for layout.
func NewStaging(layout Layout) *Staging {
	return &Staging{buf: make([]byte, layout.StagingSize())}
}

// Firmware returns the first fwSize bytes of the region, the slice every
// HMAC and the GCM open operate on.
func (s *Staging) Firmware(fwSize int) []byte {
	return s.buf[:fwSize]
}

// Tail returns the region from fwSize through the end of the buffer,
// used to stage firmware metadata and the release message ahead of the
// combined-integrity HMAC, and later zeroed before decryption.
func (s *Staging) Tail(fwSize int) []byte {
	return s.buf[fwSize:]
}

// Session owns a Staging buffer and the channel set for the lifetime of
// exactly one update transaction, per the ownership rule in the data
// model: no other code path touches the buffer while a Session is live.
type Session struct {
	channels ChannelSet
	keys     Keys
	layout   Layout

	staging *Staging

	meta           FirmwareMetadata
	lastFrameIndex int
	bytesReceived  int
	releaseMsg     []byte
}

// NewSession begins one update transaction over channels, under layout
// and keys. The caller must already have completed the handshake (the
// `U` echo) before constructing a Session.
func NewSession(channels ChannelSet, keys Keys, layout Layout) *Session {
	return &Session{
		channels: channels,
		keys:     keys,
		layout:   layout,
		staging:  NewStaging(layout),
	}
}
