// Package transport defines the host-side USB transport primitives the rest
// of the stack is built on: bulk and control transfers to a single,
// already-selected interface/endpoint pair on one device.
//
// Concrete adapters live in subpackages: transport/usbfs (Linux usbdevfs),
// transport/gousb (libusb via google/gousb), and transport/simulator (an
// in-memory stand-in used by tests and the CLI's smoke-test mode).
package transport
