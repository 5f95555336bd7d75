package gousb

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/gousb"

	"github.com/ardnew/usbms/pkg"
	"github.com/ardnew/usbms/transport"
)

// Adapter drives a single USB device through libusb via gousb, identified
// by vendor/product ID the way the teacher's guiperry-HASHER driver opens
// its ASIC.
type Adapter struct {
	vendorID  uint16
	productID uint16

	mu      sync.Mutex
	ctx     *gousb.Context
	dev     *gousb.Device
	cfg     *gousb.Config
	cfgNum  uint8
	ifaces  map[uint8]*gousb.Interface
	inEPs   map[uint8]*gousb.InEndpoint
	outEPs  map[uint8]*gousb.OutEndpoint
}

var _ transport.Adapter = (*Adapter)(nil)

// New returns an Adapter that will open the first device matching vid/pid.
func New(vendorID, productID uint16) *Adapter {
	return &Adapter{
		vendorID:  vendorID,
		productID: productID,
		ifaces:    make(map[uint8]*gousb.Interface),
		inEPs:     make(map[uint8]*gousb.InEndpoint),
		outEPs:    make(map[uint8]*gousb.OutEndpoint),
	}
}

// Open creates a libusb context, opens the device by VID/PID, and enables
// libusb's automatic kernel-driver detach for interfaces claimed later.
func (a *Adapter) Open(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ctx = gousb.NewContext()
	dev, err := a.ctx.OpenDeviceWithVIDPID(gousb.ID(a.vendorID), gousb.ID(a.productID))
	if err != nil {
		a.ctx.Close()
		a.ctx = nil
		return fmt.Errorf("gousb: open device: %w", err)
	}
	if dev == nil {
		a.ctx.Close()
		a.ctx = nil
		return transport.ErrNoDevice
	}
	a.dev = dev
	if err := dev.SetAutoDetach(true); err != nil {
		pkg.LogWarn(pkg.ComponentTransport, "gousb kernel-driver auto-detach unavailable", "error", err)
	}
	pkg.LogInfo(pkg.ComponentTransport, "gousb device opened",
		"vid", fmt.Sprintf("0x%04x", a.vendorID), "pid", fmt.Sprintf("0x%04x", a.productID))
	return nil
}

// Reset issues a USB device reset.
func (a *Adapter) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dev.Reset()
}

// ActiveConfiguration returns the device's currently active configuration.
func (a *Adapter) ActiveConfiguration(ctx context.Context) (uint8, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, err := a.dev.ActiveConfigNum()
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}

// Configurations lists configurations and interfaces from the cached device
// descriptor gousb already parsed on enumeration.
func (a *Adapter) Configurations(ctx context.Context) ([]transport.ConfigurationInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []transport.ConfigurationInfo
	for cfgNum, cfgDesc := range a.dev.Desc.Configs {
		info := transport.ConfigurationInfo{Value: uint8(cfgNum)}
		for _, ifaceDesc := range cfgDesc.Interfaces {
			if len(ifaceDesc.AltSettings) == 0 {
				continue
			}
			alt := ifaceDesc.AltSettings[0]
			info.Interfaces = append(info.Interfaces, transport.InterfaceInfo{
				Number:   uint8(ifaceDesc.Number),
				Class:    uint8(alt.Class),
				SubClass: uint8(alt.SubClass),
				Protocol: uint8(alt.Protocol),
			})
		}
		out = append(out, info)
	}
	return out, nil
}

// SetConfiguration selects a configuration by value.
func (a *Adapter) SetConfiguration(ctx context.Context, value uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cfg, err := a.dev.Config(int(value))
	if err != nil {
		return fmt.Errorf("gousb: set config %d: %w", value, err)
	}
	a.cfg = cfg
	a.cfgNum = value
	return nil
}

// ClaimInterface claims interface ifaceNum at alternate setting 0.
func (a *Adapter) ClaimInterface(ifaceNum uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cfg == nil {
		// SetConfiguration was skipped because the wanted configuration was
		// already active; open that active configuration here.
		num, err := a.dev.ActiveConfigNum()
		if err != nil {
			return fmt.Errorf("gousb: claim interface %d: %w", ifaceNum, err)
		}
		cfg, err := a.dev.Config(num)
		if err != nil {
			return fmt.Errorf("gousb: claim interface %d: %w", ifaceNum, err)
		}
		a.cfg, a.cfgNum = cfg, uint8(num)
	}
	intf, err := a.cfg.Interface(int(ifaceNum), 0)
	if err != nil {
		return fmt.Errorf("gousb: claim interface %d: %w", ifaceNum, err)
	}
	a.ifaces[ifaceNum] = intf
	return nil
}

// ReleaseInterface releases a previously claimed interface.
func (a *Adapter) ReleaseInterface(ifaceNum uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	intf, ok := a.ifaces[ifaceNum]
	if !ok {
		return nil
	}
	intf.Close()
	delete(a.ifaces, ifaceNum)
	return nil
}

// Endpoints lists the endpoints of a claimed interface's active alternate
// setting from the cached descriptor tree.
func (a *Adapter) Endpoints(ifaceNum uint8) ([]transport.EndpointInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cfgDesc, ok := a.dev.Desc.Configs[int(a.cfgNum)]
	if !ok {
		return nil, fmt.Errorf("gousb: configuration %d not found", a.cfgNum)
	}
	for _, ifaceDesc := range cfgDesc.Interfaces {
		if uint8(ifaceDesc.Number) != ifaceNum || len(ifaceDesc.AltSettings) == 0 {
			continue
		}
		alt := ifaceDesc.AltSettings[0]
		out := make([]transport.EndpointInfo, 0, len(alt.Endpoints))
		for addr, epDesc := range alt.Endpoints {
			out = append(out, transport.EndpointInfo{
				Address:       uint8(addr),
				Attributes:    uint(epDesc.TransferType),
				MaxPacketSize: epDesc.MaxPacketSize,
			})
		}
		return out, nil
	}
	return nil, fmt.Errorf("gousb: interface %d not found", ifaceNum)
}

// ControlIn performs an IN control transfer.
func (a *Adapter) ControlIn(ctx context.Context, setup transport.Setup, length int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf := make([]byte, length)
	n, err := a.dev.Control(bmRequestType(setup)|0x80, setup.Request, setup.Value, setup.Index, buf)
	if err != nil {
		return nil, fmt.Errorf("gousb: control in: %w", err)
	}
	return buf[:n], nil
}

// ControlOut performs an OUT control transfer.
func (a *Adapter) ControlOut(ctx context.Context, setup transport.Setup, data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, err := a.dev.Control(bmRequestType(setup)&^0x80, setup.Request, setup.Value, setup.Index, data)
	if err != nil {
		return 0, fmt.Errorf("gousb: control out: %w", err)
	}
	return n, nil
}

// BulkIn reads from a bulk IN endpoint, opening and caching it on first use.
func (a *Adapter) BulkIn(ctx context.Context, endpoint uint8, maxLen int) ([]byte, error) {
	a.mu.Lock()
	ep, err := a.inEndpoint(endpoint | 0x80)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, maxLen)
	n, err := ep.Read(buf)
	if err != nil {
		return nil, mapGousbErr(err)
	}
	return buf[:n], nil
}

// BulkOut writes to a bulk OUT endpoint, opening and caching it on first use.
func (a *Adapter) BulkOut(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	a.mu.Lock()
	ep, err := a.outEndpoint(endpoint &^ 0x80)
	a.mu.Unlock()
	if err != nil {
		return 0, err
	}
	n, err := ep.Write(data)
	if err != nil {
		return n, mapGousbErr(err)
	}
	return n, nil
}

// ClearHalt clears a stalled endpoint's halt condition via a standard
// CLEAR_FEATURE(ENDPOINT_HALT) control request; gousb does not expose a
// dedicated helper for it.
func (a *Adapter) ClearHalt(ctx context.Context, endpoint uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.dev.Control(0x02, 0x01, 0, uint16(endpoint), nil)
	return err
}

// Close releases the device and libusb context.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, intf := range a.ifaces {
		intf.Close()
	}
	a.ifaces = make(map[uint8]*gousb.Interface)

	var err error
	if a.cfg != nil {
		err = a.cfg.Close()
		a.cfg = nil
	}
	if a.dev != nil {
		if cerr := a.dev.Close(); cerr != nil && err == nil {
			err = cerr
		}
		a.dev = nil
	}
	if a.ctx != nil {
		a.ctx.Close()
		a.ctx = nil
	}
	return err
}

func (a *Adapter) inEndpoint(addr uint8) (*gousb.InEndpoint, error) {
	if ep, ok := a.inEPs[addr]; ok {
		return ep, nil
	}
	for _, intf := range a.ifaces {
		ep, err := intf.InEndpoint(int(addr & 0x0F))
		if err == nil {
			a.inEPs[addr] = ep
			return ep, nil
		}
	}
	return nil, fmt.Errorf("gousb: IN endpoint 0x%02x not found on any claimed interface", addr)
}

func (a *Adapter) outEndpoint(addr uint8) (*gousb.OutEndpoint, error) {
	if ep, ok := a.outEPs[addr]; ok {
		return ep, nil
	}
	for _, intf := range a.ifaces {
		ep, err := intf.OutEndpoint(int(addr & 0x0F))
		if err == nil {
			a.outEPs[addr] = ep
			return ep, nil
		}
	}
	return nil, fmt.Errorf("gousb: OUT endpoint 0x%02x not found on any claimed interface", addr)
}

func bmRequestType(s transport.Setup) uint8 {
	var rt uint8
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

func mapGousbErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("gousb: %w", err)
}
