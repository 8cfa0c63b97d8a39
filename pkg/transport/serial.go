package transport

import (
	"fmt"
	"io"

	"github.com/pkg/term"
)

// SerialChannel is a bootcore.Channel backed by a real OS serial port,
// opened in raw mode at a fixed baud rate, grounded on the same
// github.com/pkg/term usage a flashing tool in this pack uses to talk
// to its own target over USB serial.
type SerialChannel struct {
	t *term.Term
}

// OpenSerial opens tty at baud in raw mode. The caller must Close it.
func OpenSerial(tty string, baud int) (*SerialChannel, error) {
	t, err := term.Open(tty, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", tty, err)
	}
	return &SerialChannel{t: t}, nil
}

// ReadByte implements bootcore.Channel.
func (s *SerialChannel) ReadByte() (byte, bool) {
	var buf [1]byte
	n, err := s.t.Read(buf[:])
	if n == 0 && err != nil {
		return 0, false
	}
	for n == 0 {
		var more int
		more, err = s.t.Read(buf[:])
		if more == 0 && err != nil {
			return 0, false
		}
		n += more
	}
	return buf[0], true
}

// WriteByte implements bootcore.Channel.
func (s *SerialChannel) WriteByte(b byte) {
	s.t.Write([]byte{b})
}

// WriteString implements bootcore.Channel.
func (s *SerialChannel) WriteString(str string) {
	io.WriteString(s.t, str)
}

// Close releases the underlying serial port.
func (s *SerialChannel) Close() error {
	return s.t.Close()
}
