package session

// Identity is the device's immutable-after-bring-up INQUIRY data.
type Identity struct {
	Vendor, Product, Revision string
	Removable                 bool

	// PeripheralQualifier and PeripheralDeviceType are the raw INQUIRY
	// byte-0 fields, kept alongside the derived fields above for
	// diagnostics even though bring-up only ever accepts the zero values,
	// following the teacher's habit of keeping raw descriptor bytes
	// accessible (device.DeviceDescriptor) rather than only derived ones.
	PeripheralQualifier  uint8
	PeripheralDeviceType uint8
}

// Geometry is the device's immutable-after-bring-up block geometry.
type Geometry struct {
	blockSize  int
	blockCount uint32
}

// BlockSize returns the logical block size in bytes.
func (g Geometry) BlockSize() int { return g.blockSize }

// BlockCount returns the total number of logical blocks.
func (g Geometry) BlockCount() uint32 { return g.blockCount }

// CapacityBytes returns the derived total capacity, blockSize*blockCount.
func (g Geometry) CapacityBytes() uint64 {
	return uint64(g.blockSize) * uint64(g.blockCount)
}
