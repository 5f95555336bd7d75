package scsi

// Opcode identifies a SCSI command's operation code.
type Opcode uint8

// Opcodes for the six commands this stack issues.
const (
	OpTestUnitReady  Opcode = 0x00
	OpRequestSense   Opcode = 0x03
	OpInquiry        Opcode = 0x12
	OpReadCapacity10 Opcode = 0x25
	OpRead10         Opcode = 0x28
	OpWrite10        Opcode = 0x2A
)

// Status is the outcome of a SCSI command, taken from the CSW status byte.
type Status uint8

// Command status values (mirrors bot.CSWStatus*).
const (
	StatusGood       Status = 0x00
	StatusFailed     Status = 0x01
	StatusPhaseError Status = 0x02
)

// Sense keys, the subset REQUEST SENSE decode needs for diagnostics.
// Supplemented from coreos-go-tcmu's scsi package for breadth of naming.
const (
	SenseNoSense        = 0x00
	SenseRecoveredError = 0x01
	SenseNotReady       = 0x02
	SenseMediumError    = 0x03
	SenseHardwareError  = 0x04
	SenseIllegalRequest = 0x05
	SenseUnitAttention  = 0x06
	SenseDataProtect    = 0x07
	SenseAbortedCommand = 0x0B
)

// Additional sense codes relevant to the six supported commands.
const (
	ASCNoAdditionalInfo  = 0x00
	ASCLBAOutOfRange     = 0x21
	ASCInvalidFieldInCDB = 0x24
	ASCMediumNotPresent  = 0x3A
	ASCNotReadyToReady   = 0x28
)

// InquiryResponseSize is the fixed standard INQUIRY data length requested.
const InquiryResponseSize = 36

// RequestSenseResponseSize is the maximum sense data length requested.
const RequestSenseResponseSize = 252

// DirectAccessBlockDevice is the peripheral device type INQUIRY must report
// (bits 4-0 of byte 0) for bring-up to accept the device.
const DirectAccessBlockDevice = 0x00
