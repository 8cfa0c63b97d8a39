// Command simulate runs an in-process bootloader device over a
// pseudo-terminal pair instead of real hardware, so cmd/hostupdate can
// be exercised without a microcontroller.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/Dynosol/Embedded-Bootloader/factory"
	"github.com/Dynosol/Embedded-Bootloader/pkg/bootcore"
	"github.com/Dynosol/Embedded-Bootloader/pkg/bootcore/fakeflash"
	"github.com/Dynosol/Embedded-Bootloader/pkg/transport"
)

var (
	hmacKeyFile = pflag.String("hmac-key-file", "", "path to the hex-encoded HMAC key")
	aesKeyFile  = pflag.String("aes-key-file", "", "path to the hex-encoded AES key")
)

func main() {
	pflag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	keys, err := bootcore.LoadKeys(*hmacKeyFile, *aesKeyFile)
	if err != nil {
		logger.Error("load keys", "err", err)
		os.Exit(1)
	}

	hostIn, err := transport.OpenPTY()
	if err != nil {
		logger.Error("open host_in pty", "err", err)
		os.Exit(1)
	}
	hostAck, err := transport.OpenPTY()
	if err != nil {
		logger.Error("open host_ack pty", "err", err)
		os.Exit(1)
	}
	debug, err := transport.OpenPTY()
	if err != nil {
		logger.Error("open debug pty", "err", err)
		os.Exit(1)
	}

	fmt.Printf("host_in:  %s\n", hostIn.SlavePath())
	fmt.Printf("host_ack: %s\n", hostAck.SlavePath())
	fmt.Printf("debug:    %s\n", debug.SlavePath())

	layout := bootcore.DefaultLayout()
	flashMem := fakeflash.New(int(layout.FWAddr)+int(layout.FWMax), layout.PageSize)

	booted := make(chan uint32, 1)
	dispatcher := &bootcore.Dispatcher{
		Channels: bootcore.ChannelSet{HostIn: hostIn, HostAck: hostAck, Debug: debug},
		Flash:    bootcore.FlashManager{Page: flashMem},
		Reader:   flashMem,
		Keys:     keys,
		Layout:   layout,
		Trampoline: func(entry uint32) error {
			logger.Info("jumping to firmware", "entry", entry)
			booted <- entry
			return nil
		},
		Reset: func() {
			logger.Info("reset")
		},
	}

	if err := dispatcher.Provision(factory.Image()); err != nil {
		logger.Error("provision factory image", "err", err)
		os.Exit(1)
	}

	debug.WriteString("Welcome to the Embedded Bootloader simulator!\n")
	debug.WriteString("Send \"U\" to update, and \"B\" to run the firmware.\n")

	for dispatcher.Step() {
		select {
		case entry := <-booted:
			logger.Info("device booted, simulator exiting", "entry", entry)
			return
		default:
		}
	}
}
