package pkg

import "errors"

// Descriptor parsing errors, shared by the device package's descriptor
// decoders (teacher's own sentinel-error pattern, narrowed to the subset
// this host-side module's descriptor walk actually returns).
var (
	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrDescriptorTypeMismatch indicates the descriptor type does not match expected.
	ErrDescriptorTypeMismatch = errors.New("descriptor type mismatch")
)
