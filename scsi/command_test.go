package scsi_test

import (
	"context"
	"testing"

	"github.com/ardnew/usbms/bot"
	"github.com/ardnew/usbms/scsi"
	"github.com/ardnew/usbms/transport/simulator"
)

// newCommandLayer brings up a scsi.CommandLayer directly against a fresh
// simulator, bypassing the session bring-up sequence (covered separately in
// package session) so these tests isolate the SCSI command layer itself.
func newCommandLayer(t *testing.T, opts simulator.Options) (*scsi.CommandLayer, *simulator.Adapter) {
	t.Helper()
	sim := simulator.New(opts)
	ctx := context.Background()
	if err := sim.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}

	ifaces, err := sim.Endpoints(0)
	if err != nil {
		t.Fatalf("Endpoints: %v", err)
	}
	var in, out uint8
	for _, ep := range ifaces {
		if ep.IsIn() {
			in = ep.Address
		} else {
			out = ep.Address
		}
	}

	session := bot.NewSession(sim, in, out, 0)
	maxLUN, err := session.GetMaxLUN(ctx, 0)
	if err != nil {
		t.Fatalf("GetMaxLUN: %v", err)
	}
	session.MaxLUN = maxLUN

	return scsi.NewCommandLayer(session, 0), sim
}

func TestTestUnitReady(t *testing.T) {
	cmd, sim := newCommandLayer(t, simulator.Options{})
	ready, err := cmd.TestUnitReady(context.Background())
	if err != nil {
		t.Fatalf("TestUnitReady: %v", err)
	}
	if !ready {
		t.Error("TestUnitReady() = false, want true")
	}

	sim.SetReady(false)
	ready, err = cmd.TestUnitReady(context.Background())
	if err != nil {
		t.Fatalf("TestUnitReady: %v", err)
	}
	if ready {
		t.Error("TestUnitReady() = true after SetReady(false)")
	}
}

// TestInquiryAndReadCapacity exercises spec.md S8 scenario 1: bring-up
// identity and geometry from a simulated ACME/USBSTICK device with
// last_LBA=7, block_len=512.
func TestInquiryAndReadCapacity(t *testing.T) {
	cmd, _ := newCommandLayer(t, simulator.Options{
		Vendor: "ACME", Product: "USBSTICK", Revision: "1.00",
		BlockSize: 512, BlockCount: 8,
	})

	inq, err := cmd.Inquiry(context.Background())
	if err != nil {
		t.Fatalf("Inquiry: %v", err)
	}
	if inq.Vendor != "ACME" || inq.Product != "USBSTICK" || inq.Rev != "1.00" {
		t.Errorf("got %+v", inq)
	}
	if !inq.IsDirectAccessBlockDevice() {
		t.Error("IsDirectAccessBlockDevice() = false")
	}

	cap, err := cmd.ReadCapacity(context.Background())
	if err != nil {
		t.Fatalf("ReadCapacity: %v", err)
	}
	if got, want := cap.Capacity(), uint64(4096); got != want {
		t.Errorf("Capacity() = %d, want %d", got, want)
	}
	if got, want := cap.BlockCount(), uint32(8); got != want {
		t.Errorf("BlockCount() = %d, want %d", got, want)
	}
}

func TestRead10AndWrite10RoundTrip(t *testing.T) {
	cmd, sim := newCommandLayer(t, simulator.Options{BlockSize: 512, BlockCount: 8})
	ctx := context.Background()

	payload := bytes512(0xAB)
	if err := cmd.Write10(ctx, 2, 1, payload); err != nil {
		t.Fatalf("Write10: %v", err)
	}
	if got := sim.Block(2); !equalBytes(got, payload) {
		t.Errorf("device block 2 = % x, want all 0xAB", got[:4])
	}

	data, err := cmd.Read10(ctx, 2, 1, 512)
	if err != nil {
		t.Fatalf("Read10: %v", err)
	}
	if !equalBytes(data, payload) {
		t.Errorf("Read10 returned mismatched data")
	}
}

// TestWrite10FailurePullsSenseData checks spec.md S4.C/S7's write failure
// policy: a WRITE(10) past the device's block count triggers REQUEST SENSE
// and the error carries the decoded sense data.
func TestWrite10FailurePullsSenseData(t *testing.T) {
	cmd, _ := newCommandLayer(t, simulator.Options{BlockSize: 512, BlockCount: 4})
	err := cmd.Write10(context.Background(), 10, 1, bytes512(0))
	if err == nil {
		t.Fatal("Write10 succeeded for out-of-range LBA, want error")
	}
	cmdErr, ok := err.(*scsi.CommandError)
	if !ok {
		t.Fatalf("error type = %T, want *scsi.CommandError", err)
	}
	if cmdErr.Sense == nil {
		t.Fatal("Sense is nil, want decoded sense data")
	}
}

func bytes512(fill byte) []byte {
	b := make([]byte, 512)
	for i := range b {
		b[i] = fill
	}
	return b
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
