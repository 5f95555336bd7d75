package scsi

import (
	"encoding/binary"
	"testing"
)

func TestParseInquiryResponse(t *testing.T) {
	data := make([]byte, 36)
	data[0] = 0x00 // peripheral qualifier 0, device type 0
	data[1] = 0x80 // removable
	copy(data[8:16], []byte("ACME    "))
	copy(data[16:32], []byte("USBSTICK        "))
	copy(data[32:36], []byte("1.00"))

	r, err := ParseInquiryResponse(data)
	if err != nil {
		t.Fatalf("ParseInquiryResponse: %v", err)
	}
	if r.Vendor != "ACME" {
		t.Errorf("Vendor = %q, want %q", r.Vendor, "ACME")
	}
	if r.Product != "USBSTICK" {
		t.Errorf("Product = %q, want %q", r.Product, "USBSTICK")
	}
	if r.Rev != "1.00" {
		t.Errorf("Rev = %q, want %q", r.Rev, "1.00")
	}
	if !r.Removable {
		t.Error("Removable = false, want true")
	}
	if !r.IsDirectAccessBlockDevice() {
		t.Error("IsDirectAccessBlockDevice() = false, want true")
	}
}

func TestInquiryResponseRejectsNonDirectAccess(t *testing.T) {
	r := InquiryResponse{PeripheralQualifier: 1, PeripheralDeviceType: 0}
	if r.IsDirectAccessBlockDevice() {
		t.Error("IsDirectAccessBlockDevice() = true for qualifier != 0")
	}
	r = InquiryResponse{PeripheralQualifier: 0, PeripheralDeviceType: 1}
	if r.IsDirectAccessBlockDevice() {
		t.Error("IsDirectAccessBlockDevice() = true for device type != 0")
	}
}

// TestReadCapacity10Capacity checks spec.md S9's resolved discrepancy: the
// correct formula is (LastLBA+1)*BlockLength, not LastLBA*BlockLength.
func TestReadCapacity10Capacity(t *testing.T) {
	r := ReadCapacity10Response{LastLBA: 7, BlockLength: 512}
	if got, want := r.Capacity(), uint64(8*512); got != want {
		t.Errorf("Capacity() = %d, want %d", got, want)
	}
	if got, want := r.BlockCount(), uint32(8); got != want {
		t.Errorf("BlockCount() = %d, want %d", got, want)
	}
}

func TestParseReadCapacity10Response(t *testing.T) {
	data := make([]byte, 8)
	binary.BigEndian.PutUint32(data[0:4], 7)
	binary.BigEndian.PutUint32(data[4:8], 512)

	r, err := ParseReadCapacity10Response(data)
	if err != nil {
		t.Fatalf("ParseReadCapacity10Response: %v", err)
	}
	if r.LastLBA != 7 || r.BlockLength != 512 {
		t.Errorf("got %+v, want LastLBA=7 BlockLength=512", r)
	}
}

func TestParseSenseData(t *testing.T) {
	data := make([]byte, 18)
	data[0] = 0x70
	data[2] = 0x05 // sense key: illegal request
	data[12] = 0x21
	data[13] = 0x00

	s := ParseSenseData(data)
	if s.SenseKey != 0x05 {
		t.Errorf("SenseKey = 0x%x, want 0x05", s.SenseKey)
	}
	if s.ASC != 0x21 {
		t.Errorf("ASC = 0x%x, want 0x21", s.ASC)
	}
	if s.String() == "" {
		t.Error("String() is empty")
	}
}
