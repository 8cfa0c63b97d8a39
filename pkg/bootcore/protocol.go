package bootcore

// RunUpdate drives one complete update transaction over s's channels,
// from metadata through commit. The caller must have already echoed the
// `U` handshake byte. storedVersion is the version currently persisted
// in flash, consulted for anti-rollback and for the debug-version
// preservation rule. On success it returns the FirmwareMetadata that was
// committed to flash and the release message bytes written alongside it.
// On any failure it returns the *Failure describing why; the caller
// (Dispatcher) is responsible for turning that into the wire-level
// ERROR response and a reset — RunUpdate itself never writes ERROR.
func RunUpdate(s *Session, flash FlashManager, storedVersion uint16) (FirmwareMetadata, []byte, error) {
	if err := s.recvMeta(storedVersion); err != nil {
		return FirmwareMetadata{}, nil, err
	}
	for i := 0; i <= s.lastFrameIndex; i++ {
		if err := s.recvFrame(i); err != nil {
			return FirmwareMetadata{}, nil, err
		}
	}
	if err := s.recvWholeFirmware(); err != nil {
		return FirmwareMetadata{}, nil, err
	}
	if err := s.recvReleaseMessage(); err != nil {
		return FirmwareMetadata{}, nil, err
	}
	if err := s.combinedIntegrity(); err != nil {
		return FirmwareMetadata{}, nil, err
	}
	if err := s.decrypt(); err != nil {
		return FirmwareMetadata{}, nil, err
	}
	return s.commit(flash, storedVersion)
}

func (s *Session) ok() {
	s.channels.HostAck.WriteByte(RespOK)
}

// recvMeta implements spec step 2: read firmware metadata, verify its
// HMAC, validate bounds and anti-rollback, and compute the frame count.
func (s *Session) recvMeta(storedVersion uint16) error {
	raw, ok := ReadN(s.channels.HostIn, FirmwareMetadataSize)
	if !ok {
		return transportFailure(nil)
	}
	if err := hmacVerify(s.channels.Debug, s.keys.HMACKey[:], raw); err != nil {
		return err
	}

	meta := UnmarshalFirmwareMetadata(raw)
	if meta.FWSize == 0 {
		return boundsFailure("firmware size is zero")
	}
	if err := meta.Validate(s.layout, storedVersion); err != nil {
		return err
	}

	s.meta = meta
	s.lastFrameIndex = s.layout.LastFrameIndex(meta.FWSize)
	s.ok()
	return nil
}

// recvFrame implements one iteration of spec step 3: read one frame's
// metadata and payload, verify both HMACs, and stage the payload.
func (s *Session) recvFrame(i int) error {
	rawMeta, ok := ReadN(s.channels.HostIn, FrameMetadataSize)
	if !ok {
		return transportFailure(nil)
	}
	if err := hmacVerify(s.channels.Debug, s.keys.HMACKey[:], rawMeta); err != nil {
		return err
	}

	frame := UnmarshalFrameMetadata(rawMeta)
	if err := frame.Validate(s.layout, i, s.lastFrameIndex, s.meta.Version); err != nil {
		return err
	}

	s.bytesReceived += int(frame.FrameLength)
	if s.bytesReceived > int(s.meta.FWSize) {
		return boundsFailure("bytes received exceeds firmware size")
	}

	payload, ok := ReadN(s.channels.HostIn, int(frame.FrameLength))
	if !ok {
		return transportFailure(nil)
	}

	// Write at the frame's absolute offset in the staging buffer rather
	// than a PageSize-capped slice: a full-page frame (FrameLength ==
	// PageSize) needs room right after it for the trailing frame
	// metadata, which only the buffer's headroom into the next frame's
	// page provides.
	off := i * int(s.layout.PageSize)
	copy(s.staging.buf[off:], payload)
	copy(s.staging.buf[off+int(frame.FrameLength):], rawMeta)

	combined := s.staging.buf[off : off+int(frame.FrameLength)+FrameMetadataSize]
	if err := hmacVerify(s.channels.Debug, s.keys.HMACKey[:], combined); err != nil {
		return err
	}

	s.ok()
	return nil
}

// recvWholeFirmware implements spec step 4: confirm every byte arrived
// and verify the whole-firmware HMAC over the first fw_size staged bytes
// as they sit. Each frame's trailing metadata copy lands right after its
// payload: for a full-page frame that is the start of the next frame's
// page, which the next payload overwrites, and for the final frame it is
// offset fw_size, just past the region this HMAC covers.
func (s *Session) recvWholeFirmware() error {
	if s.bytesReceived != int(s.meta.FWSize) {
		return boundsFailure("frame byte count does not match firmware size")
	}
	if err := hmacVerify(s.channels.Debug, s.keys.HMACKey[:], s.staging.Firmware(int(s.meta.FWSize))); err != nil {
		return err
	}
	s.ok()
	return nil
}

// recvReleaseMessage implements spec step 5.
func (s *Session) recvReleaseMessage() error {
	msg, ok := ReadN(s.channels.HostIn, int(s.meta.ReleaseMsgSize))
	if !ok {
		return transportFailure(nil)
	}
	if err := hmacVerify(s.channels.Debug, s.keys.HMACKey[:], msg); err != nil {
		return err
	}
	s.releaseMsg = msg
	s.ok()
	return nil
}

// combinedIntegrity implements spec step 6: stage metadata and release
// message immediately after the firmware bytes, verify the combined
// HMAC, then zero the trailing region so decryption only ever touches
// clean firmware bytes.
func (s *Session) combinedIntegrity() error {
	fwSize := int(s.meta.FWSize)
	tail := s.staging.Tail(fwSize)
	copy(tail, s.meta.MarshalBinary())
	copy(tail[FirmwareMetadataSize:], s.releaseMsg)

	total := fwSize + FirmwareMetadataSize + int(s.meta.ReleaseMsgSize)
	if err := hmacVerify(s.channels.Debug, s.keys.HMACKey[:], s.staging.buf[:total]); err != nil {
		return err
	}

	zeroed := s.staging.buf[fwSize:total]
	for i := range zeroed {
		zeroed[i] = 0
	}

	s.ok()
	return nil
}

// decrypt implements spec step 7: AES-128-GCM open the staged firmware
// bytes in place.
func (s *Session) decrypt() error {
	if err := gcmOpen(s.channels.Debug, s.keys.AESKey[:], s.staging.Firmware(int(s.meta.FWSize))); err != nil {
		return err
	}
	s.ok()
	return nil
}

// commit implements spec step 8, in the redesigned order from Design
// Note 4: firmware pages first, then the release message, then the
// firmware metadata page last, so a readable metadata record is never
// visible before the image and message it describes are durable. If the
// upload was a debug-version upload, the stored version is preserved
// rather than overwritten, so debug mode never lowers the rollback
// floor.
func (s *Session) commit(flash FlashManager, storedVersion uint16) (FirmwareMetadata, []byte, error) {
	fwSize := int(s.meta.FWSize)
	pageSize := int(s.layout.PageSize)
	for off := 0; off < fwSize; off += pageSize {
		end := off + pageSize
		if end > fwSize {
			end = fwSize
		}
		addr := s.layout.FWAddr + uint32(off)
		if err := flash.Program(addr, s.staging.buf[off:end]); err != nil {
			return FirmwareMetadata{}, nil, err
		}
	}

	toWrite := s.meta
	if toWrite.Version == DebugVersion {
		toWrite.Version = storedVersion
	}

	if err := flash.Program(s.layout.MsgAddr, s.releaseMsg); err != nil {
		return FirmwareMetadata{}, nil, err
	}
	if err := flash.Program(s.layout.MetaAddr, toWrite.MarshalBinary()); err != nil {
		return FirmwareMetadata{}, nil, err
	}

	return toWrite, s.releaseMsg, nil
}
