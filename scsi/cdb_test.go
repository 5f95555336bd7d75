package scsi

import (
	"bytes"
	"testing"
)

func TestTestUnitReadyCDB(t *testing.T) {
	want := []byte{0x00, 0, 0, 0, 0, 0}
	if got := TestUnitReadyCDB(); !bytes.Equal(got, want) {
		t.Errorf("TestUnitReadyCDB() = % x, want % x", got, want)
	}
}

func TestInquiryCDB(t *testing.T) {
	want := []byte{0x12, 0, 0, 0, 36, 0}
	if got := InquiryCDB(); !bytes.Equal(got, want) {
		t.Errorf("InquiryCDB() = % x, want % x", got, want)
	}
}

func TestReadCapacity10CDB(t *testing.T) {
	got := ReadCapacity10CDB()
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if got[0] != 0x25 {
		t.Errorf("opcode = 0x%02x, want 0x25", got[0])
	}
	for i := 1; i < 10; i++ {
		if got[i] != 0 {
			t.Errorf("byte %d = 0x%02x, want 0", i, got[i])
		}
	}
}

// TestRead10CDB checks spec.md S4.C's big-endian LBA/count encoding.
func TestRead10CDB(t *testing.T) {
	cdb := Read10CDB(0x0000ABCD, 0x0004)
	want := []byte{0x28, 0, 0x00, 0x00, 0xAB, 0xCD, 0, 0x00, 0x04, 0}
	if !bytes.Equal(cdb, want) {
		t.Errorf("Read10CDB() = % x, want % x", cdb, want)
	}
}

func TestWrite10CDB(t *testing.T) {
	cdb := Write10CDB(1, 2)
	want := []byte{0x2A, 0, 0, 0, 0, 1, 0, 0, 2, 0}
	if !bytes.Equal(cdb, want) {
		t.Errorf("Write10CDB() = % x, want % x", cdb, want)
	}
}

func TestRequestSenseCDB(t *testing.T) {
	want := []byte{0x03, 0, 0, 0, 252, 0}
	if got := RequestSenseCDB(); !bytes.Equal(got, want) {
		t.Errorf("RequestSenseCDB() = % x, want % x", got, want)
	}
}
