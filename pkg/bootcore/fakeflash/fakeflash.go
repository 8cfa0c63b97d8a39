// Package fakeflash provides a RAM-backed implementation of
// bootcore.PageProgrammer for tests and for the local cmd/simulate demo
// device, where no real flash controller is available.
package fakeflash

import "fmt"

// Flash is a byte-addressable RAM region that models flash semantics:
// programming only clears bits, never sets them, so rewriting a byte
// with new data needs the page erased (all 0xFF) first.
type Flash struct {
	mem      []byte
	pageSize uint32
}

// New returns a Flash of the given size, erased (all 0xFF), with the
// given page size used to validate erase alignment.
func New(size int, pageSize uint32) *Flash {
	f := &Flash{mem: make([]byte, size), pageSize: pageSize}
	for i := range f.mem {
		f.mem[i] = 0xFF
	}
	return f
}

// ErasePage implements bootcore.PageProgrammer.
func (f *Flash) ErasePage(addr uint32) error {
	if addr%f.pageSize != 0 {
		return fmt.Errorf("fakeflash: erase address %#x is not page-aligned", addr)
	}
	end := addr + f.pageSize
	if int(end) > len(f.mem) {
		return fmt.Errorf("fakeflash: erase out of range at %#x", addr)
	}
	for i := addr; i < end; i++ {
		f.mem[i] = 0xFF
	}
	return nil
}

// ProgramWords implements bootcore.PageProgrammer. It only clears bits
// (ANDs in the new word), matching real NOR-flash program semantics, and
// rejects attempts to program past the configured region.
func (f *Flash) ProgramWords(addr uint32, words []byte) error {
	if len(words)%4 != 0 {
		return fmt.Errorf("fakeflash: program length %d is not word-aligned", len(words))
	}
	if int(addr)+len(words) > len(f.mem) {
		return fmt.Errorf("fakeflash: program out of range at %#x len=%d", addr, len(words))
	}
	for i, b := range words {
		f.mem[int(addr)+i] &= b
	}
	return nil
}

// Read returns a copy of n bytes starting at addr, for verification in
// tests and for serving the release message at boot.
func (f *Flash) Read(addr uint32, n int) []byte {
	out := make([]byte, n)
	copy(out, f.mem[int(addr):int(addr)+n])
	return out
}

// IsErased reports whether the n bytes at addr read back as all-0xFF,
// which cmd/bootloader and tests use to decide whether a factory image
// still needs to be loaded.
func (f *Flash) IsErased(addr uint32, n int) bool {
	for _, b := range f.Read(addr, n) {
		if b != 0xFF {
			return false
		}
	}
	return true
}

// Snapshot returns a copy of the entire backing region, used by tests
// asserting that a rejected update left flash bit-identical.
func (f *Flash) Snapshot() []byte {
	out := make([]byte, len(f.mem))
	copy(out, f.mem)
	return out
}
