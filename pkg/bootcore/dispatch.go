package bootcore

// FlashReader is the read-side companion to PageProgrammer: it reads
// back bytes already committed to flash. The dispatcher uses it to
// check for an erased metadata record at startup, to learn the stored
// version before each update, and to fetch the release message at boot;
// it never needs to read firmware bytes back.
type FlashReader interface {
	Read(addr uint32, n int) []byte
	IsErased(addr uint32, n int) bool
}

// Factory is the build-time-provisioned image a fresh device programs
// into flash the first time it powers on, before it has ever accepted
// an update.
type Factory struct {
	Metadata       FirmwareMetadata
	Firmware       []byte
	ReleaseMessage []byte
}

// BootTrampoline hands control to the firmware already persisted at
// entry; on a real target it never returns. cmd/bootloader backs this
// with the platform's jump-to-address primitive; test and simulator
// code back it with a hook that simply records the call.
type BootTrampoline func(entry uint32) error

// Dispatcher is the top-level loop described in spec §4.5: at startup
// it provisions a fresh device with the factory image if needed, then
// idles on host_in for a single command byte, running one update
// transaction per `U` and a boot per `B`. It is the single place a
// *Failure is turned into the wire-level diagnostic, ERROR byte, and
// reset — no package below it writes to a channel on failure.
type Dispatcher struct {
	Channels   ChannelSet
	Flash      FlashManager
	Reader     FlashReader
	Keys       Keys
	Layout     Layout
	Trampoline BootTrampoline

	// Reset is invoked only after an ERROR byte is written; a
	// successful update returns straight to Idle with no reset. On
	// real hardware Reset is a chip reset; in tests it can be a no-op
	// or a call counter.
	Reset func()
}

// Provision programs the factory image if the metadata page reads as
// erased, per spec §3's lifecycle rule. It is idempotent: called again
// on an already-provisioned device it does nothing.
func (d *Dispatcher) Provision(factory Factory) error {
	if !d.Reader.IsErased(d.Layout.MetaAddr, FirmwareMetadataSize) {
		return nil
	}

	pageSize := int(d.Layout.PageSize)
	fwSize := len(factory.Firmware)
	for off := 0; off < fwSize; off += pageSize {
		end := off + pageSize
		if end > fwSize {
			end = fwSize
		}
		if err := d.Flash.Program(d.Layout.FWAddr+uint32(off), factory.Firmware[off:end]); err != nil {
			return err
		}
	}
	if err := d.Flash.Program(d.Layout.MsgAddr, factory.ReleaseMessage); err != nil {
		return err
	}
	return d.Flash.Program(d.Layout.MetaAddr, factory.Metadata.MarshalBinary())
}

// storedVersion reads the version field persisted at MetaAddr.
func (d *Dispatcher) storedVersion() uint16 {
	raw := d.Reader.Read(d.Layout.MetaAddr, FirmwareMetadataSize)
	return UnmarshalFirmwareMetadata(raw).Version
}

// storedReleaseMsgSize reads the release_msg_size field persisted at
// MetaAddr, needed at boot to know how many release-message bytes to
// emit on debug.
func (d *Dispatcher) storedReleaseMsgSize() uint16 {
	raw := d.Reader.Read(d.Layout.MetaAddr, FirmwareMetadataSize)
	return UnmarshalFirmwareMetadata(raw).ReleaseMsgSize
}

// Step services exactly one command byte read from host_in: `U` runs a
// full update transaction, `B` boots, anything else is ignored per the
// Idle state's "malformed byte: ignored" rule. It returns false when
// host_in signaled a transport error, at which point the caller should
// stop calling Step.
func (d *Dispatcher) Step() bool {
	cmd, ok := d.Channels.HostIn.ReadByte()
	if !ok {
		return false
	}

	switch cmd {
	case CmdUpdate:
		d.handleUpdate()
	case CmdBoot:
		d.handleBoot()
	}
	return true
}

func (d *Dispatcher) handleUpdate() {
	d.Channels.HostAck.WriteByte(CmdUpdate)
	d.Channels.Debug.WriteString("update starting\n")

	session := NewSession(d.Channels, d.Keys, d.Layout)
	_, _, err := RunUpdate(session, d.Flash, d.storedVersion())
	if err != nil {
		d.fail(err)
		return
	}
}

func (d *Dispatcher) handleBoot() {
	d.Channels.HostAck.WriteByte(CmdBoot)
	msgSize := d.storedReleaseMsgSize()
	msg := d.Reader.Read(d.Layout.MsgAddr, int(msgSize))
	d.Channels.Debug.WriteString(string(msg))

	if err := d.Trampoline(d.Layout.FWAddr); err != nil {
		d.fail(transportFailure(err))
	}
}

// fail converts any error into the wire-level diagnostic + ERROR byte +
// reset sequence, per the single-conversion-point error policy.
func (d *Dispatcher) fail(err error) {
	diag := "update failed"
	if f, ok := err.(*Failure); ok {
		diag = f.Error()
	}
	d.Channels.Debug.WriteString(diag + "\n")
	d.Channels.HostAck.WriteByte(RespError)
	d.Reset()
}
