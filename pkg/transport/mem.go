package transport

import (
	"io"

	"github.com/Dynosol/Embedded-Bootloader/pkg/bootcore"
)

// MemChannel is an in-memory, full-duplex bootcore.Channel backed by a
// pair of io.Pipe connections, one per direction. It never touches the
// OS and is used by the end-to-end scenario tests in pkg/bootcore.
type MemChannel struct {
	r *io.PipeReader
	w *io.PipeWriter
}

// NewMemChannelPair returns two connected MemChannels: bytes written to
// one are read from the other, and vice versa.
func NewMemChannelPair() (a, b *MemChannel) {
	abR, abW := io.Pipe()
	baR, baW := io.Pipe()
	a = &MemChannel{r: baR, w: abW}
	b = &MemChannel{r: abR, w: baW}
	return a, b
}

// ReadByte implements bootcore.Channel.
func (m *MemChannel) ReadByte() (byte, bool) {
	var buf [1]byte
	if _, err := io.ReadFull(m.r, buf[:]); err != nil {
		return 0, false
	}
	return buf[0], true
}

// WriteByte implements bootcore.Channel.
func (m *MemChannel) WriteByte(b byte) {
	m.w.Write([]byte{b})
}

// WriteString implements bootcore.Channel.
func (m *MemChannel) WriteString(s string) {
	io.WriteString(m.w, s)
}

// Close closes both ends of the pipe, unblocking any pending read.
func (m *MemChannel) Close() error {
	m.r.Close()
	return m.w.Close()
}

// ChannelSetPair wires up three MemChannel pairs (host_in, host_ack,
// debug) and returns the two resulting bootcore.ChannelSets, one for
// the host side of a test and one for the device side.
func ChannelSetPair() (host, device bootcore.ChannelSet) {
	hostInHost, hostInDevice := NewMemChannelPair()
	hostAckHost, hostAckDevice := NewMemChannelPair()
	debugHost, debugDevice := NewMemChannelPair()

	host = bootcore.ChannelSet{HostIn: hostInHost, HostAck: hostAckHost, Debug: debugHost}
	device = bootcore.ChannelSet{HostIn: hostInDevice, HostAck: hostAckDevice, Debug: debugDevice}
	return host, device
}
