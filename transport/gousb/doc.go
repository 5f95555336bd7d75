// Package gousb implements transport.Adapter on top of
// github.com/google/gousb, the libusb binding guiperry-HASHER's ASIC
// mining driver uses for direct USB access outside the kernel's
// usb-storage driver. The bring-up sequence here — NewContext,
// OpenDeviceWithVIDPID, Config, Interface, {In,Out}Endpoint — mirrors that
// driver's OpenUSBDevice/claimInterface almost verbatim, generalized from a
// single hardcoded VID/PID and endpoint pair to the configuration/interface
// walk a mass-storage device needs.
package gousb
