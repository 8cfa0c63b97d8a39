// Command bootloader is the device-side process: it opens the three
// physical serial ports the wire protocol uses, provisions a factory
// image on a blank device, and runs the dispatch loop until told to
// boot or until its transport fails.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/Dynosol/Embedded-Bootloader/factory"
	"github.com/Dynosol/Embedded-Bootloader/pkg/bootcore"
	"github.com/Dynosol/Embedded-Bootloader/pkg/bootcore/fakeflash"
	"github.com/Dynosol/Embedded-Bootloader/pkg/transport"
)

var (
	hostInPort  = pflag.String("host-in-port", "", "host_in serial port device")
	hostAckPort = pflag.String("host-ack-port", "", "host_ack serial port device")
	debugPort   = pflag.String("debug-port", "", "debug serial port device")
	baud        = pflag.Int("baud", 115200, "serial baud rate")
	hmacKeyFile = pflag.String("hmac-key-file", "", "path to the hex-encoded HMAC key")
	aesKeyFile  = pflag.String("aes-key-file", "", "path to the hex-encoded AES key")
)

func main() {
	pflag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *hostInPort == "" || *hostAckPort == "" || *debugPort == "" {
		logger.Error("--host-in-port, --host-ack-port and --debug-port are all required")
		os.Exit(1)
	}

	keys, err := bootcore.LoadKeys(*hmacKeyFile, *aesKeyFile)
	if err != nil {
		logger.Error("load keys", "err", err)
		os.Exit(1)
	}

	hostIn, err := transport.OpenSerial(*hostInPort, *baud)
	if err != nil {
		logger.Error("open host_in port", "port", *hostInPort, "err", err)
		os.Exit(1)
	}
	defer hostIn.Close()
	hostAck, err := transport.OpenSerial(*hostAckPort, *baud)
	if err != nil {
		logger.Error("open host_ack port", "port", *hostAckPort, "err", err)
		os.Exit(1)
	}
	defer hostAck.Close()
	debug, err := transport.OpenSerial(*debugPort, *baud)
	if err != nil {
		logger.Error("open debug port", "port", *debugPort, "err", err)
		os.Exit(1)
	}
	defer debug.Close()

	layout := bootcore.DefaultLayout()
	flashMem := fakeflash.New(int(layout.FWAddr)+int(layout.FWMax), layout.PageSize)

	dispatcher := &bootcore.Dispatcher{
		Channels: bootcore.ChannelSet{HostIn: hostIn, HostAck: hostAck, Debug: debug},
		Flash:    bootcore.FlashManager{Page: flashMem},
		Reader:   flashMem,
		Keys:     keys,
		Layout:   layout,
		Trampoline: func(entry uint32) error {
			logger.Info("jumping to firmware", "entry", entry)
			os.Exit(0)
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

	debug.WriteString("Welcome to the Embedded Bootloader!\n")
	debug.WriteString("Send \"U\" to update, and \"B\" to run the firmware.\n")

	for dispatcher.Step() {
	}
}
