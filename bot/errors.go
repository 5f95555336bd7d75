package bot

import "errors"

// Framing errors returned while building or parsing BOT wire structures.
var (
	// ErrBadSignature indicates a CSW with an unexpected signature field.
	ErrBadSignature = errors.New("bot: bad CSW signature")

	// ErrShortCSW indicates fewer than CSWSize bytes were received for a CSW.
	ErrShortCSW = errors.New("bot: short CSW")

	// ErrTagMismatch indicates a CSW's tag does not match the CBW that
	// produced it.
	ErrTagMismatch = errors.New("bot: CSW tag does not match CBW tag")

	// ErrCommandTooLong indicates an empty CDB, or one longer than
	// MaxCommandBlockLength, was supplied to NewCBW.
	ErrCommandTooLong = errors.New("bot: command block exceeds 16 bytes")

	// ErrInvalidLUN indicates a LUN outside the 0-15 range addressable by a
	// CBW's 4-bit LUN field.
	ErrInvalidLUN = errors.New("bot: LUN out of range")

	// ErrPhaseError indicates the device reported CSWStatusPhaseError,
	// which per the Bulk-Only Transport specification requires a full
	// reset-recovery dance rather than a retry.
	ErrPhaseError = errors.New("bot: phase error, reset recovery required")
)
