// Package factory embeds the build-time firmware image a fresh device
// programs into flash the first time it powers on, replacing the
// reference bootloader's compiled-in `_binary_firmware_bin_start` blob
// with a go:embed directive.
package factory

import (
	_ "embed"

	"github.com/Dynosol/Embedded-Bootloader/pkg/bootcore"
)

//go:embed data/firmware.bin
var firmwareImage []byte

//go:embed data/release.txt
var releaseMessage []byte

// Version is the firmware version baked into a freshly manufactured
// device, above both debug version 0 and the reserved version 1.
const Version = 2

// Image returns the factory-provisioned image as a bootcore.Factory,
// ready to hand to Dispatcher.Provision.
func Image() bootcore.Factory {
	return bootcore.Factory{
		Metadata: bootcore.FirmwareMetadata{
			Version:        Version,
			FWSize:         uint16(len(firmwareImage)),
			ReleaseMsgSize: uint16(len(releaseMessage)),
		},
		Firmware:       firmwareImage,
		ReleaseMessage: releaseMessage,
	}
}
