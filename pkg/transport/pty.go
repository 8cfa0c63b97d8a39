package transport

import (
	"io"
	"os"

	"github.com/creack/pty"
)

// PTYChannel is a bootcore.Channel backed by one end of a pseudo
// terminal pair, grounded on this pack's own use of github.com/creack/pty
// to stand in for a physical serial line in front of a simulated
// device. cmd/simulate opens three of these (one per logical channel)
// and prints the slave device paths so an operator can point a real
// serial tool at them.
type PTYChannel struct {
	master *os.File
	slave  *os.File
}

// OpenPTY allocates a new pseudo-terminal pair. SlavePath returns the
// path a host-side tool should open to talk to it.
func OpenPTY() (*PTYChannel, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, err
	}
	return &PTYChannel{master: master, slave: slave}, nil
}

// SlavePath returns the device path of the slave end, e.g. /dev/pts/4.
func (p *PTYChannel) SlavePath() string {
	return p.slave.Name()
}

// ReadByte implements bootcore.Channel, reading from the master end (the
// simulator's own side of the pair).
func (p *PTYChannel) ReadByte() (byte, bool) {
	var buf [1]byte
	if _, err := io.ReadFull(p.master, buf[:]); err != nil {
		return 0, false
	}
	return buf[0], true
}

// WriteByte implements bootcore.Channel.
func (p *PTYChannel) WriteByte(b byte) {
	p.master.Write([]byte{b})
}

// WriteString implements bootcore.Channel.
func (p *PTYChannel) WriteString(s string) {
	io.WriteString(p.master, s)
}

// Close closes both ends of the pty pair.
func (p *PTYChannel) Close() error {
	p.slave.Close()
	return p.master.Close()
}
