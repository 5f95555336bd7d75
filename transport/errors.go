package transport

import "errors"

// Transport-layer errors, surfaced by Adapter implementations. Callers do
// not retry at this layer; higher layers (scsi, session) decide policy.
var (
	// ErrIO indicates a generic I/O failure talking to the device.
	ErrIO = errors.New("transport: I/O error")

	// ErrTimeout indicates a transfer did not complete within its
	// deadline.
	ErrTimeout = errors.New("transport: timeout")

	// ErrNoDevice indicates the device handle is no longer present
	// (disconnected or never opened).
	ErrNoDevice = errors.New("transport: no device")

	// ErrPipe indicates an endpoint STALL condition (EPIPE on Linux).
	ErrPipe = errors.New("transport: endpoint stalled")

	// ErrAccess indicates a permissions failure opening or claiming the
	// device.
	ErrAccess = errors.New("transport: access denied")

	// ErrInvalidParam indicates a malformed request (bad endpoint, length,
	// or setup fields) rejected before any transfer was attempted.
	ErrInvalidParam = errors.New("transport: invalid parameter")
)
