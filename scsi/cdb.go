package scsi

import "encoding/binary"

// TestUnitReadyCDB returns the 6-byte, all-zero-but-opcode CDB for TEST UNIT
// READY.
func TestUnitReadyCDB() []byte {
	return []byte{byte(OpTestUnitReady), 0, 0, 0, 0, 0}
}

// InquiryCDB returns the CDB requesting the standard 36-byte INQUIRY
// response.
func InquiryCDB() []byte {
	return []byte{byte(OpInquiry), 0, 0, 0, InquiryResponseSize, 0}
}

// ReadCapacity10CDB returns the CDB for READ CAPACITY(10).
func ReadCapacity10CDB() []byte {
	return []byte{byte(OpReadCapacity10), 0, 0, 0, 0, 0, 0, 0, 0, 0}
}

// Read10CDB returns the CDB for READ(10) of count blocks starting at lba.
func Read10CDB(lba uint32, count uint16) []byte {
	cdb := make([]byte, 10)
	cdb[0] = byte(OpRead10)
	binary.BigEndian.PutUint32(cdb[2:6], lba)
	binary.BigEndian.PutUint16(cdb[7:9], count)
	return cdb
}

// Write10CDB returns the CDB for WRITE(10) of count blocks starting at lba.
func Write10CDB(lba uint32, count uint16) []byte {
	cdb := make([]byte, 10)
	cdb[0] = byte(OpWrite10)
	binary.BigEndian.PutUint32(cdb[2:6], lba)
	binary.BigEndian.PutUint16(cdb[7:9], count)
	return cdb
}

// RequestSenseCDB returns the CDB for REQUEST SENSE, requesting up to
// RequestSenseResponseSize bytes of fixed-format sense data.
func RequestSenseCDB() []byte {
	return []byte{byte(OpRequestSense), 0, 0, 0, RequestSenseResponseSize, 0}
}
