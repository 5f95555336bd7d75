package simulator

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/ardnew/usbms/transport"
)

const (
	cbwSignature = 0x43425355
	cswSignature = 0x53425355
	cbwSize      = 31
	cswSize      = 13

	cswStatusGood       = 0x00
	cswStatusFailed     = 0x01
	cswStatusPhaseError = 0x02
)

// Options configures a simulated mass-storage device.
type Options struct {
	BlockSize  int // defaults to 512
	BlockCount int // defaults to 8

	Vendor, Product, Revision string
	Removable                 bool
	DeviceType                uint8 // peripheral device type; 0 = direct-access disk

	MaxLUN          uint8
	ConfigValue     uint8 // configuration value Configurations advertises, default 1; ActiveConfiguration reports 0 until SetConfiguration
	InterfaceNumber uint8
	InEndpoint      uint8 // default 0x81
	OutEndpoint     uint8 // default 0x01
}

func (o *Options) setDefaults() {
	if o.BlockSize == 0 {
		o.BlockSize = 512
	}
	if o.BlockCount == 0 {
		o.BlockCount = 8
	}
	if o.ConfigValue == 0 {
		o.ConfigValue = 1
	}
	if o.InEndpoint == 0 {
		o.InEndpoint = 0x81
	}
	if o.OutEndpoint == 0 {
		o.OutEndpoint = 0x01
	}
	if o.Vendor == "" {
		o.Vendor = "ACME"
	}
	if o.Product == "" {
		o.Product = "USBSTICK"
	}
	if o.Revision == "" {
		o.Revision = "1.00"
	}
}

// pending holds the in-flight data/status phase produced by the most
// recently decoded CBW, served back to the host across subsequent BulkIn
// calls exactly as a real device would stream them.
type pending struct {
	dataIn          []byte
	csw             []byte
	awaitingWriteOf int // bytes still expected from the host for a WRITE(10) payload
	writeLBA        uint32
	writeTag        uint32
	writeFails      bool // the pending WRITE(10) payload is sunk but not applied
}

// Adapter is an in-memory transport.Adapter that plays the device side of
// Bulk-Only Transport and the six-command SCSI subset against a backing
// block store, for tests and CLI smoke-testing.
type Adapter struct {
	opts Options

	mu      sync.Mutex
	opened  bool
	claimed map[uint8]bool
	blocks  [][]byte

	activeConfig uint8
	ready        bool
	pend         pending
	lastTag      uint32

	senseKey, senseASC, senseASCQ uint8

	stallIn, stallOut bool
	resetCount        int
	callLog           []string
}

// New creates a simulated device with the given geometry and identity.
func New(opts Options) *Adapter {
	opts.setDefaults()
	blocks := make([][]byte, opts.BlockCount)
	for i := range blocks {
		blocks[i] = make([]byte, opts.BlockSize)
	}
	return &Adapter{
		opts:    opts,
		claimed: make(map[uint8]bool),
		blocks:  blocks,
		ready:   true,
	}
}

var _ transport.Adapter = (*Adapter)(nil)

// Block returns a copy of the raw contents of block n, for test assertions.
func (a *Adapter) Block(n int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]byte, len(a.blocks[n]))
	copy(out, a.blocks[n])
	return out
}

// SetReady controls the TEST UNIT READY response.
func (a *Adapter) SetReady(ready bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ready = ready
}

// StallNextIn causes the next BulkIn call to fail with transport.ErrPipe,
// simulating an endpoint stall that the session/scsi layer should recover
// from via a Bulk-Only Mass Storage Reset + CLEAR_FEATURE(HALT).
func (a *Adapter) StallNextIn() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stallIn = true
}

// StallNextOut is StallNextIn for the OUT direction.
func (a *Adapter) StallNextOut() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stallOut = true
}

// ResetCount reports how many times Reset (class Reset 0xFF) was issued,
// for assertions in STALL-recovery tests.
func (a *Adapter) ResetCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resetCount
}

// CallLog returns the sequence of CDB opcodes processed, most recent last.
func (a *Adapter) CallLog() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.callLog))
	copy(out, a.callLog)
	return out
}

func (a *Adapter) Open(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opened = true
	a.activeConfig = 0
	return nil
}

func (a *Adapter) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.opened {
		return transport.ErrNoDevice
	}
	a.pend = pending{}
	return nil
}

func (a *Adapter) ActiveConfiguration(ctx context.Context) (uint8, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeConfig, nil
}

func (a *Adapter) Configurations(ctx context.Context) ([]transport.ConfigurationInfo, error) {
	return []transport.ConfigurationInfo{
		{
			Value: a.opts.ConfigValue,
			Interfaces: []transport.InterfaceInfo{
				{Number: a.opts.InterfaceNumber, Class: 0x08, SubClass: 0x06, Protocol: 0x50},
			},
		},
	}, nil
}

func (a *Adapter) SetConfiguration(ctx context.Context, value uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activeConfig = value
	return nil
}

func (a *Adapter) ClaimInterface(ifaceNum uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.claimed[ifaceNum] = true
	return nil
}

func (a *Adapter) ReleaseInterface(ifaceNum uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.claimed, ifaceNum)
	return nil
}

func (a *Adapter) Endpoints(ifaceNum uint8) ([]transport.EndpointInfo, error) {
	if ifaceNum != a.opts.InterfaceNumber {
		return nil, transport.ErrInvalidParam
	}
	return []transport.EndpointInfo{
		{Address: a.opts.InEndpoint, Attributes: 2, MaxPacketSize: 512},
		{Address: a.opts.OutEndpoint, Attributes: 2, MaxPacketSize: 512},
	}, nil
}

func (a *Adapter) ControlIn(ctx context.Context, setup transport.Setup, length int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	// Class-specific GET_MAX_LUN per spec.md S4.B.
	if setup.Type == transport.RequestTypeClass && setup.Request == 0xFE {
		return []byte{a.opts.MaxLUN}, nil
	}
	return nil, transport.ErrInvalidParam
}

func (a *Adapter) ControlOut(ctx context.Context, setup transport.Setup, data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	// Class-specific Bulk-Only Mass Storage Reset.
	if setup.Type == transport.RequestTypeClass && setup.Request == 0xFF {
		a.resetCount++
		a.pend = pending{}
		return 0, nil
	}
	// Standard CLEAR_FEATURE(ENDPOINT_HALT).
	if setup.Type == transport.RequestTypeStandard && setup.Recipient == transport.RecipientEndpoint {
		a.stallIn = false
		a.stallOut = false
		return 0, nil
	}
	return len(data), nil
}

func (a *Adapter) ClearHalt(ctx context.Context, endpoint uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stallIn = false
	a.stallOut = false
	return nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opened = false
	return nil
}

// BulkOut accepts either a CBW (starting a new command) or a pending
// WRITE(10) data payload, depending on the simulator's internal phase.
func (a *Adapter) BulkOut(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if endpoint != a.opts.OutEndpoint {
		return 0, transport.ErrInvalidParam
	}
	if a.stallOut {
		a.stallOut = false
		return 0, transport.ErrPipe
	}

	if a.pend.awaitingWriteOf > 0 {
		n := a.pend.awaitingWriteOf
		if len(data) < n {
			n = len(data)
		}
		if !a.pend.writeFails {
			a.writePayload(a.pend.writeLBA, data[:n])
		}
		a.pend.awaitingWriteOf -= n
		if a.pend.awaitingWriteOf == 0 {
			if a.pend.writeFails {
				a.pend.csw = buildCSW(a.pend.writeTag, 0, cswStatusFailed)
				a.pend.writeFails = false
			} else {
				a.pend.csw = buildCSW(a.pend.writeTag, 0, cswStatusGood)
			}
		}
		return n, nil
	}

	if len(data) < cbwSize {
		return 0, transport.ErrInvalidParam
	}
	a.dispatch(data)
	return len(data), nil
}

func (a *Adapter) BulkIn(ctx context.Context, endpoint uint8, maxLen int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if endpoint != a.opts.InEndpoint {
		return nil, transport.ErrInvalidParam
	}
	if a.stallIn {
		a.stallIn = false
		return nil, transport.ErrPipe
	}

	if len(a.pend.dataIn) > 0 {
		n := len(a.pend.dataIn)
		if n > maxLen {
			n = maxLen
		}
		out := a.pend.dataIn[:n]
		a.pend.dataIn = a.pend.dataIn[n:]
		return out, nil
	}
	if len(a.pend.csw) > 0 {
		out := a.pend.csw
		a.pend.csw = nil
		return out, nil
	}
	return nil, transport.ErrInvalidParam
}

// dispatch decodes a CBW and executes the SCSI command it carries,
// populating a.pend with the resulting data-in bytes and/or CSW.
func (a *Adapter) dispatch(cbw []byte) {
	sig := binary.LittleEndian.Uint32(cbw[0:4])
	tag := binary.LittleEndian.Uint32(cbw[4:8])
	xferLen := binary.LittleEndian.Uint32(cbw[8:12])
	cbLen := cbw[14] & 0x1F
	cb := cbw[15 : 15+cbLen]

	a.lastTag = tag
	if sig != cbwSignature {
		a.pend.csw = buildCSW(tag, xferLen, cswStatusPhaseError)
		return
	}

	opcode := cb[0]
	a.callLog = append(a.callLog, opcodeName(opcode))

	switch opcode {
	case 0x00: // TEST UNIT READY
		if a.ready {
			a.pend.csw = buildCSW(tag, 0, cswStatusGood)
		} else {
			a.senseKey, a.senseASC, a.senseASCQ = 0x02, 0x04, 0x00
			a.pend.csw = buildCSW(tag, 0, cswStatusFailed)
		}

	case 0x12: // INQUIRY
		resp := make([]byte, 36)
		resp[0] = a.opts.DeviceType
		if a.opts.Removable {
			resp[1] = 0x80
		}
		resp[2] = 0x06
		resp[3] = 0x02
		resp[4] = 31
		copy(resp[8:16], padRight(a.opts.Vendor, 8))
		copy(resp[16:32], padRight(a.opts.Product, 16))
		copy(resp[32:36], padRight(a.opts.Revision, 4))
		a.admitDataIn(tag, resp, xferLen)

	case 0x25: // READ CAPACITY(10)
		resp := make([]byte, 8)
		binary.BigEndian.PutUint32(resp[0:4], uint32(len(a.blocks)-1))
		binary.BigEndian.PutUint32(resp[4:8], uint32(a.opts.BlockSize))
		a.admitDataIn(tag, resp, xferLen)

	case 0x28: // READ(10)
		lba := binary.BigEndian.Uint32(cb[2:6])
		count := binary.BigEndian.Uint16(cb[7:9])
		if int(lba)+int(count) > len(a.blocks) {
			a.senseKey, a.senseASC, a.senseASCQ = 0x05, 0x21, 0x00
			a.pend.csw = buildCSW(tag, xferLen, cswStatusFailed)
			return
		}
		data := make([]byte, 0, int(count)*a.opts.BlockSize)
		for i := 0; i < int(count); i++ {
			data = append(data, a.blocks[int(lba)+i]...)
		}
		a.admitDataIn(tag, data, xferLen)

	case 0x2A: // WRITE(10)
		lba := binary.BigEndian.Uint32(cb[2:6])
		count := binary.BigEndian.Uint16(cb[7:9])
		a.pend.writeTag = tag
		if int(lba)+int(count) > len(a.blocks) {
			// Still sink the data phase the CBW's transfer_length promised
			// the host, per the Bulk-Only Transport spec: a device that
			// rejects the command does not get to skip the OUT phase its
			// own CBW direction/length committed it to.
			a.senseKey, a.senseASC, a.senseASCQ = 0x05, 0x21, 0x00
			a.pend.writeFails = true
			a.pend.awaitingWriteOf = int(xferLen)
			return
		}
		a.pend.writeLBA = lba
		a.pend.awaitingWriteOf = int(count) * a.opts.BlockSize

	case 0x03: // REQUEST SENSE
		resp := make([]byte, 18)
		resp[0] = 0x70
		resp[2] = a.senseKey
		resp[7] = 10
		resp[12] = a.senseASC
		resp[13] = a.senseASCQ
		a.admitDataIn(tag, resp, xferLen)

	default:
		a.pend.csw = buildCSW(tag, xferLen, cswStatusFailed)
	}
}

func (a *Adapter) writePayload(lba uint32, data []byte) {
	off := 0
	for i := 0; off < len(data); i++ {
		n := copy(a.blocks[int(lba)+i], data[off:])
		off += n
	}
}

func (a *Adapter) admitDataIn(tag uint32, data []byte, xferLen uint32) {
	residue := uint32(0)
	if uint32(len(data)) < xferLen {
		residue = xferLen - uint32(len(data))
	} else if uint32(len(data)) > xferLen {
		data = data[:xferLen]
	}
	a.pend.dataIn = data
	a.pend.csw = buildCSW(tag, residue, cswStatusGood)
}

func buildCSW(tag, residue uint32, status uint8) []byte {
	buf := make([]byte, cswSize)
	binary.LittleEndian.PutUint32(buf[0:4], cswSignature)
	binary.LittleEndian.PutUint32(buf[4:8], tag)
	binary.LittleEndian.PutUint32(buf[8:12], residue)
	buf[12] = status
	return buf
}

func padRight(s string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}

func opcodeName(op uint8) string {
	switch op {
	case 0x00:
		return "TEST_UNIT_READY"
	case 0x12:
		return "INQUIRY"
	case 0x25:
		return "READ_CAPACITY_10"
	case 0x28:
		return "READ_10"
	case 0x2A:
		return "WRITE_10"
	case 0x03:
		return "REQUEST_SENSE"
	default:
		return "UNKNOWN"
	}
}
