package bot

// Command Block Wrapper (CBW) constants.
const (
	CBWSignature   = 0x43425355 // "USBC" signature
	CBWSize        = 31         // Fixed CBW size in bytes
	CBWFlagDataOut = 0x00       // Data transfer: host to device
	CBWFlagDataIn  = 0x80       // Data transfer: device to host
)

// Command Status Wrapper (CSW) constants.
const (
	CSWSignature        = 0x53425355 // "USBS" signature
	CSWSize             = 13         // Fixed CSW size in bytes
	CSWStatusGood       = 0x00       // Command passed
	CSWStatusFailed     = 0x01       // Command failed
	CSWStatusPhaseError = 0x02       // Phase error occurred
)

// Bulk-Only Transport class request codes (sent as control transfers).
const (
	RequestMassStorageReset = 0xFF // Reset the MSC interface
	RequestGetMaxLUN        = 0xFE // Get maximum Logical Unit Number
)

// MaxCommandBlockLength is the largest CDB that fits in a CBW's CB field.
const MaxCommandBlockLength = 16
