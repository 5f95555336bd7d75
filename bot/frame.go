package bot

import "encoding/binary"

// CommandBlockWrapper is the 31-byte structure the host sends ahead of
// every SCSI command, framing the CDB and describing the data phase that
// follows.
type CommandBlockWrapper struct {
	Tag                uint32   // Host-chosen tag, echoed back in the CSW
	DataTransferLength uint32   // Expected bytes in the data phase
	Flags              uint8    // Direction flag (bit 7: 0=Out, 1=In)
	LUN                uint8    // Logical Unit Number (bits 0-3)
	CBLength           uint8    // Valid bytes in CB (1-16)
	CB                 [16]byte // Command block (SCSI CDB)
}

// IsDataIn reports whether the data phase is device-to-host.
func (cbw *CommandBlockWrapper) IsDataIn() bool {
	return cbw.Flags&CBWFlagDataIn != 0
}

// NewCBW builds a CommandBlockWrapper for the given CDB. dataIn selects the
// transfer direction and transferLength is the number of bytes expected in
// the data phase (zero for commands with no data phase, such as TEST UNIT
// READY).
func NewCBW(tag uint32, lun uint8, dataIn bool, transferLength uint32, cdb []byte) (CommandBlockWrapper, error) {
	var cbw CommandBlockWrapper
	if len(cdb) == 0 || len(cdb) > MaxCommandBlockLength {
		return cbw, ErrCommandTooLong
	}
	if lun > 0x0F {
		return cbw, ErrInvalidLUN
	}

	cbw.Tag = tag
	cbw.DataTransferLength = transferLength
	cbw.LUN = lun
	cbw.CBLength = uint8(len(cdb))
	copy(cbw.CB[:], cdb)
	if dataIn {
		cbw.Flags = CBWFlagDataIn
	} else {
		cbw.Flags = CBWFlagDataOut
	}

	return cbw, nil
}

// MarshalTo writes the wire representation of the CBW to buf, which must be
// at least CBWSize bytes. Returns the number of bytes written, or 0 if buf
// is too small.
func (cbw *CommandBlockWrapper) MarshalTo(buf []byte) int {
	if len(buf) < CBWSize {
		return 0
	}

	binary.LittleEndian.PutUint32(buf[0:4], CBWSignature)
	binary.LittleEndian.PutUint32(buf[4:8], cbw.Tag)
	binary.LittleEndian.PutUint32(buf[8:12], cbw.DataTransferLength)
	buf[12] = cbw.Flags
	buf[13] = cbw.LUN & 0x0F
	buf[14] = cbw.CBLength & 0x1F
	copy(buf[15:31], cbw.CB[:])

	return CBWSize
}

// CommandStatusWrapper is the 13-byte structure the device returns after
// the data phase, reporting completion status and any residue.
type CommandStatusWrapper struct {
	Tag         uint32 // Echoes the CBW tag
	DataResidue uint32 // Bytes not transferred relative to DataTransferLength
	Status      uint8  // CSWStatus*
}

// ParseCSW parses a CommandStatusWrapper from raw bytes and checks its
// signature. It does not check the tag against the originating CBW; callers
// should do that with Tag once both are available.
func ParseCSW(data []byte, out *CommandStatusWrapper) error {
	if len(data) < CSWSize {
		return ErrShortCSW
	}

	signature := binary.LittleEndian.Uint32(data[0:4])
	if signature != CSWSignature {
		return ErrBadSignature
	}

	out.Tag = binary.LittleEndian.Uint32(data[4:8])
	out.DataResidue = binary.LittleEndian.Uint32(data[8:12])
	out.Status = data[12]

	return nil
}

// Succeeded reports whether the CSW indicates the command completed
// successfully.
func (csw *CommandStatusWrapper) Succeeded() bool {
	return csw.Status == CSWStatusGood
}
