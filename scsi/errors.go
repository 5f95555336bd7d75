package scsi

import "errors"

// Command-layer errors.
var (
	// ErrCommandFailed indicates the device reported CSWStatusFailed for a
	// command. Sense data, if requested, is attached via CommandError.
	ErrCommandFailed = errors.New("scsi: command failed")

	// ErrPhaseError indicates the device reported CSWStatusPhaseError,
	// signalling protocol desynchronization; a BOT reset is required
	// before the session can continue.
	ErrPhaseError = errors.New("scsi: phase error")

	// ErrShortResponse indicates fewer bytes were returned than the
	// response format requires.
	ErrShortResponse = errors.New("scsi: short response")
)

// CommandError wraps ErrCommandFailed with the sense data fetched via a
// follow-up REQUEST SENSE, when the caller requested diagnostics.
type CommandError struct {
	Op    Opcode
	Sense *SenseData // nil if sense could not be fetched
}

func (e *CommandError) Error() string {
	if e.Sense == nil {
		return "scsi: command failed"
	}
	return "scsi: command failed: " + e.Sense.String()
}

func (e *CommandError) Unwrap() error { return ErrCommandFailed }
