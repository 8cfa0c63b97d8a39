package hostproto

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"github.com/Dynosol/Embedded-Bootloader/pkg/bootcore"
)

// ErrRejected is returned by Send when the device responds with the
// wire-level ERROR byte at any stage.
type ErrRejected struct {
	Stage string
}

func (e *ErrRejected) Error() string {
	return fmt.Sprintf("hostproto: device rejected update at stage %q", e.Stage)
}

// Progress is called once per completed wire stage, letting a caller
// log progress without hostproto depending on a logging package itself.
type Progress func(stage string)

// Send drives u across channels exactly as spec.md §6 describes, under
// layout's page size. progress may be nil.
func Send(channels bootcore.ChannelSet, layout bootcore.Layout, keys bootcore.Keys, u *Update, progress Progress) error {
	report := progress
	if report == nil {
		report = func(string) {}
	}

	channels.HostIn.WriteByte(bootcore.CmdUpdate)
	ack, ok := channels.HostAck.ReadByte()
	if !ok || ack != bootcore.CmdUpdate {
		return fmt.Errorf("hostproto: handshake failed: no U echo")
	}
	report("handshake")

	meta := u.Metadata()
	metaBytes := meta.MarshalBinary()
	writeBytes(channels.HostIn, metaBytes)
	sendHMAC(channels.Debug, keys.HMACKey[:], metaBytes)
	if err := readOK(channels.HostAck, "metadata"); err != nil {
		return err
	}
	report("metadata")

	fwSize := len(u.Ciphertext)
	lastFrameIndex := layout.LastFrameIndex(uint16(fwSize))
	pageSize := int(layout.PageSize)
	for i := 0; i <= lastFrameIndex; i++ {
		off := i * pageSize
		end := off + pageSize
		if end > fwSize {
			end = fwSize
		}
		chunk := u.Ciphertext[off:end]

		frame := bootcore.FrameMetadata{
			Index:        uint16(i),
			FrameLength:  uint16(len(chunk)),
			FrameVersion: u.Version,
		}
		frameBytes := frame.MarshalBinary()
		writeBytes(channels.HostIn, frameBytes)
		sendHMAC(channels.Debug, keys.HMACKey[:], frameBytes)

		writeBytes(channels.HostIn, chunk)
		combined := append(append([]byte{}, chunk...), frameBytes...)
		sendHMAC(channels.Debug, keys.HMACKey[:], combined)

		if err := readOK(channels.HostAck, fmt.Sprintf("frame %d", i)); err != nil {
			return err
		}
		report(fmt.Sprintf("frame %d/%d", i, lastFrameIndex))
	}

	sendHMAC(channels.Debug, keys.HMACKey[:], u.Ciphertext)
	if err := readOK(channels.HostAck, "whole-firmware"); err != nil {
		return err
	}
	report("whole-firmware")

	writeBytes(channels.HostIn, u.ReleaseMessage)
	sendHMAC(channels.Debug, keys.HMACKey[:], u.ReleaseMessage)
	if err := readOK(channels.HostAck, "release-message"); err != nil {
		return err
	}
	report("release-message")

	combined := make([]byte, 0, fwSize+bootcore.FirmwareMetadataSize+len(u.ReleaseMessage))
	combined = append(combined, u.Ciphertext...)
	combined = append(combined, metaBytes...)
	combined = append(combined, u.ReleaseMessage...)
	sendHMAC(channels.Debug, keys.HMACKey[:], combined)
	if err := readOK(channels.HostAck, "combined"); err != nil {
		return err
	}
	report("combined")

	writeBytes(channels.Debug, u.IV[:])
	writeBytes(channels.Debug, u.Tag[:])
	if err := readOK(channels.HostAck, "decrypt"); err != nil {
		return err
	}
	report("decrypt")

	return nil
}

// Boot sends the boot command and returns the release message the
// device emits on debug before jumping to firmware.
func Boot(channels bootcore.ChannelSet, releaseMsgSize int) (string, error) {
	channels.HostIn.WriteByte(bootcore.CmdBoot)
	ack, ok := channels.HostAck.ReadByte()
	if !ok || ack != bootcore.CmdBoot {
		return "", fmt.Errorf("hostproto: boot handshake failed")
	}
	msg, ok := bootcore.ReadN(channels.Debug, releaseMsgSize)
	if !ok {
		return "", fmt.Errorf("hostproto: failed reading release message")
	}
	return string(msg), nil
}

func writeBytes(ch bootcore.Channel, data []byte) {
	for _, b := range data {
		ch.WriteByte(b)
	}
}

func sendHMAC(debug bootcore.Channel, key []byte, data []byte) {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	writeBytes(debug, mac.Sum(nil))
}

func readOK(ack bootcore.Channel, stage string) error {
	b, ok := ack.ReadByte()
	if !ok {
		return fmt.Errorf("hostproto: transport error awaiting response at stage %q", stage)
	}
	if b != bootcore.RespOK {
		return &ErrRejected{Stage: stage}
	}
	return nil
}
