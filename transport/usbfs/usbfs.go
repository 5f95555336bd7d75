//go:build linux

package usbfs

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/usbms/device"
	"github.com/ardnew/usbms/pkg"
	"github.com/ardnew/usbms/transport"
)

// Adapter drives a single USB device through its usbdevfs device node,
// following the ioctl sequence the teacher's host/hal/linux package issues
// against the same kernel interface.
type Adapter struct {
	path string

	mu  sync.Mutex
	fd  int
	cfg []device.ConfigurationDescriptor
	ifc map[uint8][]device.EndpointDescriptor
}

var _ transport.Adapter = (*Adapter)(nil)

// New returns an Adapter bound to a usbdevfs bus/device path such as
// "/dev/bus/usb/001/004".
func New(path string) *Adapter {
	return &Adapter{path: path, fd: -1, ifc: make(map[uint8][]device.EndpointDescriptor)}
}

// Open opens the usbdevfs device node for read/write access.
func (a *Adapter) Open(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	fd, err := unix.Open(a.path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		pkg.LogError(pkg.ComponentTransport, "usbfs open failed", "path", a.path, "error", err)
		return mapErrno(err)
	}
	a.fd = fd
	pkg.LogInfo(pkg.ComponentTransport, "usbfs device opened", "path", a.path)
	return nil
}

// Reset issues USBDEVFS_RESET.
func (a *Adapter) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ioctlNoArg(ioctlReset)
}

// ActiveConfiguration asks the device for its current configuration value
// via a standard GET_CONFIGURATION control request.
func (a *Adapter) ActiveConfiguration(ctx context.Context) (uint8, error) {
	data, err := a.ControlIn(ctx, transport.Setup{
		Type:      transport.RequestTypeStandard,
		Recipient: transport.RecipientDevice,
		Direction: transport.DirectionIn,
		Request:   0x08, // GET_CONFIGURATION
	}, 1)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, pkg.ErrDescriptorTooShort
	}
	return data[0], nil
}

// Configurations walks the device descriptor to learn how many
// configurations exist, then fetches and parses each configuration
// descriptor tree via GET_DESCRIPTOR, reusing the teacher's device package
// parsing routines rather than reimplementing descriptor layout.
func (a *Adapter) Configurations(ctx context.Context) ([]transport.ConfigurationInfo, error) {
	devData, err := a.ControlIn(ctx, transport.Setup{
		Type:      transport.RequestTypeStandard,
		Recipient: transport.RecipientDevice,
		Direction: transport.DirectionIn,
		Request:   0x06, // GET_DESCRIPTOR
		Value:     uint16(device.DescriptorTypeDevice) << 8,
	}, device.DeviceDescriptorSize)
	if err != nil {
		return nil, err
	}
	var devDesc device.DeviceDescriptor
	if err := device.ParseDeviceDescriptor(devData, &devDesc); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cfg = a.cfg[:0]
	a.ifc = make(map[uint8][]device.EndpointDescriptor)
	a.mu.Unlock()

	out := make([]transport.ConfigurationInfo, 0, devDesc.NumConfigurations)
	for idx := uint8(0); idx < devDesc.NumConfigurations; idx++ {
		hdr, err := a.ControlIn(ctx, transport.Setup{
			Type:      transport.RequestTypeStandard,
			Recipient: transport.RecipientDevice,
			Direction: transport.DirectionIn,
			Request:   0x06,
			Value:     uint16(device.DescriptorTypeConfiguration)<<8 | uint16(idx),
		}, device.ConfigurationDescriptorSize)
		if err != nil {
			return nil, err
		}
		var cfgDesc device.ConfigurationDescriptor
		if err := device.ParseConfigurationDescriptor(hdr, &cfgDesc); err != nil {
			return nil, err
		}

		full, err := a.ControlIn(ctx, transport.Setup{
			Type:      transport.RequestTypeStandard,
			Recipient: transport.RecipientDevice,
			Direction: transport.DirectionIn,
			Request:   0x06,
			Value:     uint16(device.DescriptorTypeConfiguration)<<8 | uint16(idx),
		}, int(cfgDesc.TotalLength))
		if err != nil {
			return nil, err
		}

		info := transport.ConfigurationInfo{Value: cfgDesc.ConfigurationValue}
		offset := device.ConfigurationDescriptorSize
		var currentIface uint8
		for offset+2 <= len(full) {
			length := int(full[offset])
			descType := full[offset+1]
			if length < 2 || offset+length > len(full) {
				break
			}
			switch descType {
			case device.DescriptorTypeInterface:
				var iface device.InterfaceDescriptor
				if err := device.ParseInterfaceDescriptor(full[offset:], &iface); err == nil {
					currentIface = iface.InterfaceNumber
					info.Interfaces = append(info.Interfaces, transport.InterfaceInfo{
						Number:   iface.InterfaceNumber,
						Class:    iface.InterfaceClass,
						SubClass: iface.InterfaceSubClass,
						Protocol: iface.InterfaceProtocol,
					})
				}
			case device.DescriptorTypeEndpoint:
				var ep device.EndpointDescriptor
				if err := device.ParseEndpointDescriptor(full[offset:], &ep); err == nil {
					a.mu.Lock()
					a.ifc[currentIface] = append(a.ifc[currentIface], ep)
					a.mu.Unlock()
				}
			}
			offset += length
		}
		out = append(out, info)
	}
	return out, nil
}

// SetConfiguration issues USBDEVFS_SETCONFIGURATION.
func (a *Adapter) SetConfiguration(ctx context.Context, value uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := uint32(value)
	return a.ioctl(ioctlSetConfiguration, unsafe.Pointer(&v))
}

// ClaimInterface issues USBDEVFS_CLAIMINTERFACE. It does not detach a kernel
// driver already bound to the interface.
func (a *Adapter) ClaimInterface(ifaceNum uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := uint32(ifaceNum)
	return a.ioctl(ioctlClaimInterface, unsafe.Pointer(&v))
}

// ReleaseInterface issues USBDEVFS_RELEASEINTERFACE.
func (a *Adapter) ReleaseInterface(ifaceNum uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := uint32(ifaceNum)
	return a.ioctl(ioctlReleaseInterface, unsafe.Pointer(&v))
}

// Endpoints returns the endpoints discovered for ifaceNum by the most recent
// Configurations call.
func (a *Adapter) Endpoints(ifaceNum uint8) ([]transport.EndpointInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	descs, ok := a.ifc[ifaceNum]
	if !ok {
		return nil, fmt.Errorf("usbfs: interface %d not found in descriptor tree", ifaceNum)
	}
	out := make([]transport.EndpointInfo, len(descs))
	for i, d := range descs {
		out[i] = transport.EndpointInfo{
			Address:       d.EndpointAddress,
			Attributes:    uint(d.Attributes),
			MaxPacketSize: int(d.MaxPacketSize),
		}
	}
	return out, nil
}

// ControlIn performs a synchronous control transfer with an IN data phase.
func (a *Adapter) ControlIn(ctx context.Context, setup transport.Setup, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := a.controlTransfer(ctx, bmRequestType(setup), setup.Request, setup.Value, setup.Index, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// ControlOut performs a synchronous control transfer with an OUT data phase.
func (a *Adapter) ControlOut(ctx context.Context, setup transport.Setup, data []byte) (int, error) {
	return a.controlTransfer(ctx, bmRequestType(setup), setup.Request, setup.Value, setup.Index, data)
}

// BulkIn performs a synchronous bulk read via USBDEVFS_BULK.
func (a *Adapter) BulkIn(ctx context.Context, endpoint uint8, maxLen int) ([]byte, error) {
	buf := make([]byte, maxLen)
	n, err := a.bulkTransfer(ctx, endpoint|0x80, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// BulkOut performs a synchronous bulk write via USBDEVFS_BULK.
func (a *Adapter) BulkOut(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	return a.bulkTransfer(ctx, endpoint&0x7F, data)
}

// ClearHalt issues USBDEVFS_RESETEP to clear a stalled endpoint.
func (a *Adapter) ClearHalt(ctx context.Context, endpoint uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := uint32(endpoint)
	return a.ioctl(ioctlResetEP, unsafe.Pointer(&v))
}

// Close closes the usbdevfs device node.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fd < 0 {
		return nil
	}
	err := unix.Close(a.fd)
	a.fd = -1
	return err
}

func bmRequestType(s transport.Setup) uint8 {
	var rt uint8
	switch s.Direction {
	case transport.DirectionIn:
		rt |= 0x80
	}
	switch s.Type {
	case transport.RequestTypeClass:
		rt |= 0x20
	case transport.RequestTypeVendor:
		rt |= 0x40
	}
	switch s.Recipient {
	case transport.RecipientInterface:
		rt |= 0x01
	case transport.RecipientEndpoint:
		rt |= 0x02
	}
	return rt
}

func (a *Adapter) controlTransfer(ctx context.Context, reqType, req uint8, value, index uint16, data []byte) (int, error) {
	ctrl := ctrlTransfer{
		RequestType: reqType,
		Request:     req,
		Value:       value,
		Index:       index,
		Length:      uint16(len(data)),
		Timeout:     timeoutMillis(ctx),
	}
	if len(data) > 0 {
		ctrl.Data = uint64(uintptr(unsafe.Pointer(&data[0])))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	n, err := a.ioctlRetval(ioctlControl, unsafe.Pointer(&ctrl))
	if err != nil {
		pkg.LogWarn(pkg.ComponentTransport, "usbfs control transfer failed",
			"request", req, "error", err)
		return 0, err
	}
	return n, nil
}

func (a *Adapter) bulkTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	bulk := bulkTransfer{
		Endpoint: uint32(endpoint),
		Length:   uint32(len(data)),
		Timeout:  timeoutMillis(ctx),
	}
	if len(data) > 0 {
		bulk.Data = uint64(uintptr(unsafe.Pointer(&data[0])))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	n, err := a.ioctlRetval(ioctlBulk, unsafe.Pointer(&bulk))
	if err != nil {
		return 0, err
	}
	return n, nil
}

func timeoutMillis(ctx context.Context) uint32 {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d <= 0 {
			return 1
		}
		return uint32(d.Milliseconds())
	}
	return uint32(transport.DefaultTimeout.Milliseconds())
}

func (a *Adapter) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(a.fd), req, uintptr(arg))
	if errno != 0 {
		return mapErrno(errno)
	}
	return nil
}

func (a *Adapter) ioctlNoArg(req uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(a.fd), req, 0)
	if errno != 0 {
		return mapErrno(errno)
	}
	return nil
}

func (a *Adapter) ioctlRetval(req uintptr, arg unsafe.Pointer) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(a.fd), req, uintptr(arg))
	if errno != 0 {
		return int(r), mapErrno(errno)
	}
	return int(r), nil
}

func mapErrno(err error) error {
	errno, ok := err.(unix.Errno)
	if !ok {
		return err
	}
	switch errno {
	case unix.ENODEV:
		return transport.ErrNoDevice
	case unix.EPIPE:
		return transport.ErrPipe
	case unix.ETIMEDOUT:
		return transport.ErrTimeout
	case unix.EACCES, unix.EPERM:
		return transport.ErrAccess
	case unix.EINVAL:
		return transport.ErrInvalidParam
	default:
		return transport.ErrIO
	}
}
