package session

import "errors"

// Bring-up errors, surfaced from Open. A Device is never
// returned when one of these is non-nil (spec.md S7).
var (
	// ErrNotReady indicates TEST UNIT READY never returned PASSED during
	// bring-up.
	ErrNotReady = errors.New("session: device not ready")

	// ErrIncompatibleDevice indicates INQUIRY reported a peripheral
	// qualifier or device type other than a direct-access block device.
	ErrIncompatibleDevice = errors.New("session: incompatible device type")

	// ErrNoMassStorageInterface indicates no configuration on the device
	// advertises an interface with class 0x08 (Mass Storage) and protocol
	// 0x50 (Bulk-Only Transport).
	ErrNoMassStorageInterface = errors.New("session: no mass-storage interface found")

	// ErrNoBulkEndpoints indicates the claimed interface lacks a bulk IN
	// or bulk OUT endpoint.
	ErrNoBulkEndpoints = errors.New("session: interface has no bulk endpoint pair")
)
