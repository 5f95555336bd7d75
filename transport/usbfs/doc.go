// Package usbfs implements transport.Adapter against the Linux usbdevfs
// ioctl interface (/dev/bus/usb/BBB/DDD), the same device node the teacher's
// host/hal/linux package drives. Where that package issues raw
// syscall.Syscall(SYS_IOCTL, ...) calls against hand-encoded ioctl numbers,
// this package performs the identical usbdevfs_ctrltransfer/usbdevfs_bulktransfer
// exchanges through golang.org/x/sys/unix: unix.Open/unix.Close for the node,
// and unix.Syscall(SYS_IOCTL, ...) with unsafe.Pointer arguments against the
// ioctl numbers built in ioctl.go.
//
// Descriptor parsing (device/configuration/interface/endpoint) is delegated
// to the github.com/ardnew/usbms/device package rather than reimplemented,
// since the wire layout usbdevfs hands back for GET_DESCRIPTOR is identical
// to the layout that package already parses.
package usbfs
