// Command hostupdate is the host-side counterpart to the bootloader's
// update protocol: it packages a plaintext firmware image into the
// authenticated ciphertext stream the device expects and drives the
// wire protocol over a real serial port.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/Dynosol/Embedded-Bootloader/internal/hostconfig"
	"github.com/Dynosol/Embedded-Bootloader/pkg/bootcore"
	"github.com/Dynosol/Embedded-Bootloader/pkg/hostproto"
	"github.com/Dynosol/Embedded-Bootloader/pkg/transport"
)

var (
	configPath  = pflag.String("config", "", "path to host config YAML (required)")
	firmware    = pflag.String("firmware", "", "path to the plaintext firmware image (required)")
	version     = pflag.Uint16("version", 0, "firmware version to upload")
	releaseMsg  = pflag.String("release-msg", "", "release message to upload alongside the firmware")
	hostInPort  = pflag.String("host-in-port", "", "host_in serial port, overrides config runtime.host_in_port")
	hostAckPort = pflag.String("host-ack-port", "", "host_ack serial port, overrides config runtime.host_ack_port")
	debugPort   = pflag.String("debug-port", "", "debug serial port, overrides config runtime.debug_port")
	baud        = pflag.Int("baud", 0, "serial baud rate, overrides config runtime.baud")
	verbose     = pflag.BoolP("verbose", "v", false, "log every wire stage")
	encryptOut  = pflag.String("encrypt-out", "", "if set, package the update to this path instead of sending it")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: hostupdate [encrypt|send|boot] [flags]\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	action := "send"
	if args := pflag.Args(); len(args) > 0 {
		action = args[0]
	}

	if *configPath == "" {
		logger.Error("--config is required")
		os.Exit(1)
	}
	cfg, err := hostconfig.Load(*configPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	keys, err := hostconfig.LoadKeys(cfg)
	if err != nil {
		logger.Error("load keys", "err", err)
		os.Exit(1)
	}

	switch action {
	case "encrypt":
		runEncrypt(logger, keys)
	case "send":
		runSend(logger, cfg, keys)
	case "boot":
		runBoot(logger, cfg)
	default:
		logger.Error("unknown action", "action", action)
		os.Exit(1)
	}
}

func runEncrypt(logger *slog.Logger, keys bootcore.Keys) {
	plaintext := readFirmware(logger)
	update, err := hostproto.Pack(plaintext, *version, []byte(*releaseMsg), keys)
	if err != nil {
		logger.Error("pack update", "err", err)
		os.Exit(1)
	}

	out := *encryptOut
	if out == "" {
		out = *firmware + ".update"
	}
	if err := os.WriteFile(out, marshalUpdate(update), 0o644); err != nil {
		logger.Error("write packaged update", "err", err)
		os.Exit(1)
	}
	logger.Info("packaged update", "path", out, "fw_size", len(update.Ciphertext))
}

func runSend(logger *slog.Logger, cfg *hostconfig.Config, keys bootcore.Keys) {
	plaintext := readFirmware(logger)
	update, err := hostproto.Pack(plaintext, *version, []byte(*releaseMsg), keys)
	if err != nil {
		logger.Error("pack update", "err", err)
		os.Exit(1)
	}

	if !confirm(fmt.Sprintf("Send version %d to the device? This overwrites its current firmware.", *version)) {
		logger.Info("aborted by operator")
		return
	}

	channels, closeAll, err := openChannels(cfg)
	if err != nil {
		logger.Error("open serial ports", "err", err)
		os.Exit(1)
	}
	defer closeAll()

	layout := bootcore.DefaultLayout()
	err = hostproto.Send(channels, layout, keys, update, func(stage string) {
		logger.Debug("wire stage complete", "stage", stage)
	})
	if err != nil {
		logger.Error("update failed", "err", err)
		os.Exit(1)
	}
	logger.Info("update complete", "version", *version, "fw_size", len(update.Ciphertext))
}

func runBoot(logger *slog.Logger, cfg *hostconfig.Config) {
	channels, closeAll, err := openChannels(cfg)
	if err != nil {
		logger.Error("open serial ports", "err", err)
		os.Exit(1)
	}
	defer closeAll()

	msg, err := hostproto.Boot(channels, int(bootcore.DefaultLayout().MsgMax))
	if err != nil {
		logger.Error("boot failed", "err", err)
		os.Exit(1)
	}
	logger.Info("device booted", "release_message", msg)
}

func readFirmware(logger *slog.Logger) []byte {
	if *firmware == "" {
		logger.Error("--firmware is required")
		os.Exit(1)
	}
	data, err := os.ReadFile(*firmware)
	if err != nil {
		logger.Error("read firmware", "err", err)
		os.Exit(1)
	}
	return data
}

func resolveBaud(cfg *hostconfig.Config) int {
	if *baud != 0 {
		return *baud
	}
	return cfg.Runtime.Baud
}

// openChannels opens the three physical serial ports the wire protocol
// speaks over, one per logical channel, and returns a ChannelSet plus a
// single function that closes all three.
func openChannels(cfg *hostconfig.Config) (bootcore.ChannelSet, func(), error) {
	baudRate := resolveBaud(cfg)

	hostInName := *hostInPort
	if hostInName == "" {
		hostInName = cfg.Runtime.HostInPort
	}
	hostAckName := *hostAckPort
	if hostAckName == "" {
		hostAckName = cfg.Runtime.HostAckPort
	}
	debugName := *debugPort
	if debugName == "" {
		debugName = cfg.Runtime.DebugPort
	}

	hostInCh, err := transport.OpenSerial(hostInName, baudRate)
	if err != nil {
		return bootcore.ChannelSet{}, nil, fmt.Errorf("open host_in port %s: %w", hostInName, err)
	}
	hostAckCh, err := transport.OpenSerial(hostAckName, baudRate)
	if err != nil {
		hostInCh.Close()
		return bootcore.ChannelSet{}, nil, fmt.Errorf("open host_ack port %s: %w", hostAckName, err)
	}
	debugCh, err := transport.OpenSerial(debugName, baudRate)
	if err != nil {
		hostInCh.Close()
		hostAckCh.Close()
		return bootcore.ChannelSet{}, nil, fmt.Errorf("open debug port %s: %w", debugName, err)
	}

	channels := bootcore.ChannelSet{HostIn: hostInCh, HostAck: hostAckCh, Debug: debugCh}
	closeAll := func() {
		hostInCh.Close()
		hostAckCh.Close()
		debugCh.Close()
	}
	return channels, closeAll, nil
}

// marshalUpdate serializes an Update to a flat file: version(2) +
// fw_size(2) + msg_size(2) + ciphertext + iv(16) + tag(16) + message.
func marshalUpdate(u *hostproto.Update) []byte {
	meta := u.Metadata().MarshalBinary()
	buf := make([]byte, 0, len(meta)+len(u.Ciphertext)+len(u.IV)+len(u.Tag)+len(u.ReleaseMessage))
	buf = append(buf, meta...)
	buf = append(buf, u.Ciphertext...)
	buf = append(buf, u.IV[:]...)
	buf = append(buf, u.Tag[:]...)
	buf = append(buf, u.ReleaseMessage...)
	return buf
}
