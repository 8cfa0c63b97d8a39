package bootcore

// PageProgrammer is the external collaborator that actually touches
// flash: it erases one page and programs whole 4-byte words into it. A
// real target backs this with register-level flash controller access; a
// RAM-backed fake (see package fakeflash) backs it in every test.
type PageProgrammer interface {
	// ErasePage sets every byte of the page starting at addr to 0xFF.
	// addr must be page-aligned.
	ErasePage(addr uint32) error
	// ProgramWords clears bits in len(words)/4 words starting at addr.
	// len(words) must be a multiple of 4.
	ProgramWords(addr uint32, words []byte) error
}

// FlashManager implements the erase-before-program, word-aligned program
// discipline flash requires: flash is erased to all-ones and programming
// can only clear bits, so a page must be erased before (re)writing it,
// and the underlying primitive only accepts whole 4-byte words.
type FlashManager struct {
	Page PageProgrammer
}

// Program erases the page at pageAddr and writes len(src) bytes into it.
// len(src) must not exceed the caller's page size. Bytes beyond a
// non-multiple-of-4 boundary are assembled into one final word with the
// unused high bytes padded with 0xFF, so the padding stays readable as
// erased flash rather than as stray zero bytes.
func (f FlashManager) Program(pageAddr uint32, src []byte) error {
	if err := f.Page.ErasePage(pageAddr); err != nil {
		return flashFailure(err)
	}

	full := (len(src) / 4) * 4
	if full > 0 {
		if err := f.Page.ProgramWords(pageAddr, src[:full]); err != nil {
			return flashFailure(err)
		}
	}

	rem := len(src) - full
	if rem == 0 {
		return nil
	}

	word := [4]byte{0xFF, 0xFF, 0xFF, 0xFF}
	copy(word[:rem], src[full:])
	if err := f.Page.ProgramWords(pageAddr+uint32(full), word[:]); err != nil {
		return flashFailure(err)
	}
	return nil
}
