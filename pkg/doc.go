// Package pkg provides shared utilities for this host-side USB mass storage
// stack.
//
// This package contains common functionality used across the module's
// packages, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for USB descriptor decoding
//   - Component identifiers for log filtering
//
// The package is designed to have zero external dependencies, relying
// only on the Go standard library.
//
// # Logging
//
// The logging subsystem wraps [log/slog] with USB-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentDevice, "device configured", "config", 1)
//
// # Errors
//
// Descriptor-decode errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrDescriptorTooShort) {
//	    // Handle a truncated descriptor
//	}
package pkg
