package bot

import (
	"context"
	"testing"

	"github.com/ardnew/usbms/transport"
)

// fakeAdapter is a minimal transport.Adapter double recording every call
// and replaying a scripted CSW for the next CommandIn/CommandOut, enough to
// exercise Session without a full simulator.
type fakeAdapter struct {
	inData       []byte
	csw          []byte
	controlOuts  []transport.Setup
	clearedHalts []uint8
	bulkOuts     [][]byte
}

func (f *fakeAdapter) Open(ctx context.Context) error    { return nil }
func (f *fakeAdapter) Reset(ctx context.Context) error   { return nil }
func (f *fakeAdapter) ActiveConfiguration(ctx context.Context) (uint8, error) { return 1, nil }
func (f *fakeAdapter) Configurations(ctx context.Context) ([]transport.ConfigurationInfo, error) {
	return nil, nil
}
func (f *fakeAdapter) SetConfiguration(ctx context.Context, value uint8) error { return nil }
func (f *fakeAdapter) ClaimInterface(ifaceNum uint8) error                     { return nil }
func (f *fakeAdapter) ReleaseInterface(ifaceNum uint8) error                   { return nil }
func (f *fakeAdapter) Endpoints(ifaceNum uint8) ([]transport.EndpointInfo, error) {
	return nil, nil
}
func (f *fakeAdapter) ControlIn(ctx context.Context, setup transport.Setup, length int) ([]byte, error) {
	return []byte{0}, nil
}
func (f *fakeAdapter) ControlOut(ctx context.Context, setup transport.Setup, data []byte) (int, error) {
	f.controlOuts = append(f.controlOuts, setup)
	return len(data), nil
}
func (f *fakeAdapter) BulkOut(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	f.bulkOuts = append(f.bulkOuts, append([]byte(nil), data...))
	return len(data), nil
}
func (f *fakeAdapter) BulkIn(ctx context.Context, endpoint uint8, maxLen int) ([]byte, error) {
	if len(f.inData) > 0 {
		out := f.inData
		f.inData = nil
		return out, nil
	}
	return f.csw, nil
}
func (f *fakeAdapter) ClearHalt(ctx context.Context, endpoint uint8) error {
	f.clearedHalts = append(f.clearedHalts, endpoint)
	return nil
}
func (f *fakeAdapter) Close() error { return nil }

var _ transport.Adapter = (*fakeAdapter)(nil)

func goodCSW(tag uint32) []byte {
	buf := make([]byte, CSWSize)
	copy(buf[0:4], []byte{0x55, 0x53, 0x42, 0x53})
	putLE32(buf[4:8], tag)
	return buf
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// TestSessionTagsAreMonotonic checks spec.md S3/S4.B's tag discipline: each
// CommandIn/CommandOut call allocates the next tag in sequence.
func TestSessionTagsAreMonotonic(t *testing.T) {
	adapter := &fakeAdapter{}
	s := NewSession(adapter, 0x81, 0x01, 0)

	for want := uint32(0); want < 3; want++ {
		adapter.csw = goodCSW(want)
		csw, _, err := s.CommandIn(context.Background(), []byte{0}, 0)
		if err != nil {
			t.Fatalf("CommandIn: %v", err)
		}
		if csw.Tag != want {
			t.Fatalf("tag = %d, want %d", csw.Tag, want)
		}
	}
}

// TestSessionCommandInTagMismatch checks spec.md S4.B's IncorrectTag error
// when the returned CSW's tag does not match the outgoing CBW's tag.
func TestSessionCommandInTagMismatch(t *testing.T) {
	adapter := &fakeAdapter{csw: goodCSW(999)}
	s := NewSession(adapter, 0x81, 0x01, 0)

	_, _, err := s.CommandIn(context.Background(), []byte{0}, 0)
	if err != ErrTagMismatch {
		t.Fatalf("got %v, want ErrTagMismatch", err)
	}
}

// TestSelectLUNRejectsBeyondMaxLUN checks spec.md S4.B's InvalidLUN error.
func TestSelectLUNRejectsBeyondMaxLUN(t *testing.T) {
	s := NewSession(&fakeAdapter{}, 0x81, 0x01, 0)
	s.MaxLUN = 2
	if err := s.SelectLUN(3); err != ErrInvalidLUN {
		t.Fatalf("got %v, want ErrInvalidLUN", err)
	}
	if err := s.SelectLUN(2); err != nil {
		t.Fatalf("SelectLUN(2): %v", err)
	}
}

// TestResetRecoveryIssuesClassResetThenClearsBothHalts checks spec.md
// S4.B/S9's STALL recovery dance: class Reset (0xFF) followed by
// CLEAR_FEATURE(ENDPOINT_HALT) on both bulk endpoints.
func TestResetRecoveryIssuesClassResetThenClearsBothHalts(t *testing.T) {
	adapter := &fakeAdapter{}
	s := NewSession(adapter, 0x81, 0x01, 0)

	if err := s.ResetRecovery(context.Background(), 0); err != nil {
		t.Fatalf("ResetRecovery: %v", err)
	}

	if len(adapter.controlOuts) != 1 || adapter.controlOuts[0].Request != RequestMassStorageReset {
		t.Fatalf("controlOuts = %+v, want one Reset (0xFF)", adapter.controlOuts)
	}
	if len(adapter.clearedHalts) != 2 || adapter.clearedHalts[0] != 0x81 || adapter.clearedHalts[1] != 0x01 {
		t.Fatalf("clearedHalts = %+v, want [0x81 0x01]", adapter.clearedHalts)
	}
}
