package bootcore_test

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/Dynosol/Embedded-Bootloader/pkg/bootcore"
	"github.com/Dynosol/Embedded-Bootloader/pkg/bootcore/fakeflash"
	"github.com/Dynosol/Embedded-Bootloader/pkg/transport"
)

var testKeys = bootcore.Keys{
	HMACKey: [32]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	AESKey:  [16]byte{11, 12, 13, 14, 15, 16, 17, 18},
}

func hmacOf(data []byte) []byte {
	mac := hmac.New(sha256.New, testKeys.HMACKey[:])
	mac.Write(data)
	return mac.Sum(nil)
}

// device bundles everything needed to run a Dispatcher in a background
// goroutine against a host-side ChannelSet in the same test process.
type device struct {
	dispatcher *bootcore.Dispatcher
	flash      *fakeflash.Flash
	layout     bootcore.Layout
	resets     int
	booted     chan uint32
}

func newDevice() (*device, bootcore.ChannelSet) {
	hostSet, deviceSet := transport.ChannelSetPair()
	layout := bootcore.DefaultLayout()
	flash := fakeflash.New(int(layout.FWAddr)+int(layout.FWMax), layout.PageSize)

	d := &device{flash: flash, layout: layout, booted: make(chan uint32, 1)}
	d.dispatcher = &bootcore.Dispatcher{
		Channels: deviceSet,
		Flash:    bootcore.FlashManager{Page: flash},
		Reader:   flash,
		Keys:     testKeys,
		Layout:   layout,
		Trampoline: func(entry uint32) error {
			d.booted <- entry
			return nil
		},
		Reset: func() {
			d.resets++
		},
	}
	return d, hostSet
}

// run drives the dispatcher loop in a goroutine until the host side's
// channels are closed.
func (d *device) run() {
	go func() {
		for d.dispatcher.Step() {
		}
	}()
}

func (d *device) storedMetadata() bootcore.FirmwareMetadata {
	raw := d.flash.Read(d.layout.MetaAddr, bootcore.FirmwareMetadataSize)
	return bootcore.UnmarshalFirmwareMetadata(raw)
}
