package bot

import (
	"context"
	"sync"

	"github.com/ardnew/usbms/transport"
)

// Session holds the mutable state of one Bulk-Only Transport exchange
// sequence: the endpoint pair, the monotonic tag counter, and the selected
// LUN. It is not safe for concurrent command issuance — per spec.md S5 the
// whole stack is single-threaded and blocking, and a second command cannot
// be issued until the prior CSW has been consumed.
type Session struct {
	Adapter     transport.Adapter
	InEndpoint  uint8
	OutEndpoint uint8
	LUN         uint8
	MaxLUN      uint8

	mu  sync.Mutex
	tag uint32
}

// NewSession creates a Session bound to an already-opened, already-claimed
// adapter and its bulk endpoint pair.
func NewSession(adapter transport.Adapter, inEndpoint, outEndpoint, lun uint8) *Session {
	return &Session{Adapter: adapter, InEndpoint: inEndpoint, OutEndpoint: outEndpoint, LUN: lun}
}

// SelectLUN changes the active LUN, rejecting any value beyond the device's
// reported MaxLUN per spec.md S4.B's InvalidLUN error.
func (s *Session) SelectLUN(lun uint8) error {
	if lun > s.MaxLUN {
		return ErrInvalidLUN
	}
	s.LUN = lun
	return nil
}

func (s *Session) nextTag() uint32 {
	t := s.tag
	s.tag++
	return t
}

// GetMaxLUN issues the class-specific control IN described in spec.md S4.B
// to read the device's maximum LUN (0-15).
func (s *Session) GetMaxLUN(ctx context.Context, ifaceNum uint8) (uint8, error) {
	setup := transport.Setup{
		Type:      transport.RequestTypeClass,
		Recipient: transport.RecipientInterface,
		Direction: transport.DirectionIn,
		Request:   RequestGetMaxLUN,
		Value:     0,
		Index:     uint16(ifaceNum),
	}
	data, err := s.Adapter.ControlIn(ctx, setup, 1)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	return data[0], nil
}

// ResetRecovery issues the Bulk-Only Mass Storage Reset (class request
// 0xFF) followed by CLEAR_FEATURE(ENDPOINT_HALT) on both bulk endpoints, per
// spec.md S4.B/S9's STALL recovery dance.
func (s *Session) ResetRecovery(ctx context.Context, ifaceNum uint8) error {
	resetSetup := transport.Setup{
		Type:      transport.RequestTypeClass,
		Recipient: transport.RecipientInterface,
		Direction: transport.DirectionOut,
		Request:   RequestMassStorageReset,
		Value:     0,
		Index:     uint16(ifaceNum),
	}
	if _, err := s.Adapter.ControlOut(ctx, resetSetup, nil); err != nil {
		return err
	}
	if err := s.Adapter.ClearHalt(ctx, s.InEndpoint); err != nil {
		return err
	}
	return s.Adapter.ClearHalt(ctx, s.OutEndpoint)
}

// CommandIn issues a device-to-host command: CBW, then up to expectedBytes
// of data, then the CSW. It implements spec.md S4.B's "Command IN"
// sequence. The returned CSW's tag has already been checked against the
// outgoing CBW's tag.
func (s *Session) CommandIn(ctx context.Context, cdb []byte, expectedBytes int) (CommandStatusWrapper, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag := s.nextTag()
	cbw, err := NewCBW(tag, s.LUN, true, uint32(expectedBytes), cdb)
	if err != nil {
		return CommandStatusWrapper{}, nil, err
	}

	var buf [CBWSize]byte
	cbw.MarshalTo(buf[:])
	if _, err := s.Adapter.BulkOut(ctx, s.OutEndpoint, buf[:]); err != nil {
		return CommandStatusWrapper{}, nil, err
	}

	var data []byte
	if expectedBytes > 0 {
		data, err = s.Adapter.BulkIn(ctx, s.InEndpoint, expectedBytes)
		if err != nil {
			return CommandStatusWrapper{}, nil, err
		}
	}

	cswBytes, err := s.Adapter.BulkIn(ctx, s.InEndpoint, CSWSize)
	if err != nil {
		return CommandStatusWrapper{}, nil, err
	}

	var csw CommandStatusWrapper
	if err := ParseCSW(cswBytes, &csw); err != nil {
		return CommandStatusWrapper{}, nil, err
	}
	if csw.Tag != tag {
		return CommandStatusWrapper{}, nil, ErrTagMismatch
	}
	return csw, data, nil
}

// CommandOut issues a host-to-device command: CBW, then the payload, then
// the CSW. It implements spec.md S4.B's "Command OUT" sequence. payload's
// length must equal the transfer length the caller intends.
func (s *Session) CommandOut(ctx context.Context, cdb []byte, payload []byte) (CommandStatusWrapper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag := s.nextTag()
	cbw, err := NewCBW(tag, s.LUN, false, uint32(len(payload)), cdb)
	if err != nil {
		return CommandStatusWrapper{}, err
	}

	var buf [CBWSize]byte
	cbw.MarshalTo(buf[:])
	if _, err := s.Adapter.BulkOut(ctx, s.OutEndpoint, buf[:]); err != nil {
		return CommandStatusWrapper{}, err
	}

	if len(payload) > 0 {
		if _, err := s.Adapter.BulkOut(ctx, s.OutEndpoint, payload); err != nil {
			return CommandStatusWrapper{}, err
		}
	}

	cswBytes, err := s.Adapter.BulkIn(ctx, s.InEndpoint, CSWSize)
	if err != nil {
		return CommandStatusWrapper{}, err
	}

	var csw CommandStatusWrapper
	if err := ParseCSW(cswBytes, &csw); err != nil {
		return CommandStatusWrapper{}, err
	}
	if csw.Tag != tag {
		return CommandStatusWrapper{}, ErrTagMismatch
	}
	return csw, nil
}
