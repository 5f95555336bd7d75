package session

import (
	"context"
	"fmt"

	"github.com/ardnew/usbms/blockcache"
	"github.com/ardnew/usbms/bot"
	"github.com/ardnew/usbms/pkg"
	"github.com/ardnew/usbms/scsi"
	"github.com/ardnew/usbms/transport"
)

// massStorageClass/protocol are the eligibility filter from spec.md S4.E:
// an interface qualifies as a Bulk-Only Transport mass-storage endpoint
// pair only if it advertises exactly these values.
const (
	massStorageClass    = 0x08
	massStorageProtocol = 0x50
)

// Device is a brought-up USB Mass Storage device: an open transport
// session, SCSI command layer, and byte-addressable block cache. It
// implements the host-facing stream (Seek/Read/Write/Flush) and block
// (ReadBlocks/WriteBlocks) APIs from spec.md S6.
//
// Device is not safe for concurrent command issuance, matching spec.md S5:
// the whole stack is single-threaded and blocking.
type Device struct {
	opts      Options
	adapter   transport.Adapter
	bot       *bot.Session
	cmd       *scsi.CommandLayer
	ifaceNum  uint8
	identity  Identity
	geometry  Geometry
	cache     *blockcache.Cache
}

// Open runs the bring-up sequence of spec.md S4.E against adapter: open,
// reset, select the configuration that actually contains a mass-storage
// interface, claim it, locate the bulk endpoint pair, fetch max-LUN, then
// TEST UNIT READY / INQUIRY / READ CAPACITY. It returns a non-nil error,
// and no Device, on any bring-up failure.
func Open(ctx context.Context, adapter transport.Adapter, options ...Option) (*Device, error) {
	opts := defaultOptions()
	for _, opt := range options {
		opt(&opts)
	}

	if err := adapter.Open(ctx); err != nil {
		return nil, err
	}
	if err := adapter.Reset(ctx); err != nil {
		adapter.Close()
		return nil, err
	}

	cfg, iface, err := selectMassStorageInterface(ctx, adapter)
	if err != nil {
		adapter.Close()
		return nil, err
	}

	active, err := adapter.ActiveConfiguration(ctx)
	if err != nil {
		adapter.Close()
		return nil, err
	}
	if active != cfg.Value {
		if err := adapter.SetConfiguration(ctx, cfg.Value); err != nil {
			adapter.Close()
			return nil, err
		}
	}

	if err := adapter.ClaimInterface(iface.Number); err != nil {
		adapter.Close()
		return nil, err
	}

	inEP, outEP, err := bulkEndpoints(adapter, iface.Number)
	if err != nil {
		adapter.ReleaseInterface(iface.Number)
		adapter.Close()
		return nil, err
	}

	botSession := bot.NewSession(adapter, inEP, outEP, opts.LUN)
	maxLUN, err := botSession.GetMaxLUN(ctx, iface.Number)
	if err != nil {
		adapter.ReleaseInterface(iface.Number)
		adapter.Close()
		return nil, err
	}
	botSession.MaxLUN = maxLUN
	if err := botSession.SelectLUN(opts.LUN); err != nil {
		adapter.ReleaseInterface(iface.Number)
		adapter.Close()
		return nil, err
	}

	cmd := scsi.NewCommandLayer(botSession, iface.Number)

	ready, err := cmd.TestUnitReady(ctx)
	if err != nil {
		adapter.ReleaseInterface(iface.Number)
		adapter.Close()
		return nil, err
	}
	if !ready {
		adapter.ReleaseInterface(iface.Number)
		adapter.Close()
		return nil, ErrNotReady
	}

	inq, err := cmd.Inquiry(ctx)
	if err != nil {
		adapter.ReleaseInterface(iface.Number)
		adapter.Close()
		return nil, err
	}
	if !inq.IsDirectAccessBlockDevice() {
		adapter.ReleaseInterface(iface.Number)
		adapter.Close()
		return nil, ErrIncompatibleDevice
	}

	capResp, err := cmd.ReadCapacity(ctx)
	if err != nil {
		adapter.ReleaseInterface(iface.Number)
		adapter.Close()
		return nil, err
	}

	dev := &Device{
		opts:     opts,
		adapter:  adapter,
		bot:      botSession,
		cmd:      cmd,
		ifaceNum: iface.Number,
		identity: Identity{
			Vendor:               inq.Vendor,
			Product:              inq.Product,
			Revision:             inq.Rev,
			Removable:            inq.Removable,
			PeripheralQualifier:  inq.PeripheralQualifier,
			PeripheralDeviceType: inq.PeripheralDeviceType,
		},
		geometry: Geometry{
			blockSize:  int(capResp.BlockLength),
			blockCount: capResp.BlockCount(),
		},
	}
	dev.cache = blockcache.New(dev, opts.CacheCapacity)

	pkg.LogInfo(pkg.ComponentDevice, "mass storage device ready",
		"vendor", dev.identity.Vendor, "product", dev.identity.Product,
		"blocks", dev.geometry.blockCount, "block_size", dev.geometry.blockSize)

	return dev, nil
}

// selectMassStorageInterface walks every configuration the adapter reports
// and returns the first one containing an eligible mass-storage interface,
// per spec.md S4.E's eligibility filter and S9's configuration-selection
// REDESIGN FLAG (do not blindly pick configuration 0/1).
func selectMassStorageInterface(ctx context.Context, adapter transport.Adapter) (transport.ConfigurationInfo, transport.InterfaceInfo, error) {
	configs, err := adapter.Configurations(ctx)
	if err != nil {
		return transport.ConfigurationInfo{}, transport.InterfaceInfo{}, err
	}
	for _, cfg := range configs {
		for _, iface := range cfg.Interfaces {
			if iface.Class == massStorageClass && iface.Protocol == massStorageProtocol {
				return cfg, iface, nil
			}
		}
	}
	return transport.ConfigurationInfo{}, transport.InterfaceInfo{}, ErrNoMassStorageInterface
}

// bulkEndpoints locates the first bulk IN and first bulk OUT endpoint of
// a claimed interface.
func bulkEndpoints(adapter transport.Adapter, ifaceNum uint8) (inEP, outEP uint8, err error) {
	eps, err := adapter.Endpoints(ifaceNum)
	if err != nil {
		return 0, 0, err
	}
	var foundIn, foundOut bool
	for _, ep := range eps {
		if !ep.IsBulk() {
			continue
		}
		if ep.IsIn() && !foundIn {
			inEP, foundIn = ep.Address, true
		}
		if !ep.IsIn() && !foundOut {
			outEP, foundOut = ep.Address, true
		}
	}
	if !foundIn || !foundOut {
		return 0, 0, ErrNoBulkEndpoints
	}
	return inEP, outEP, nil
}

// Identity returns the device's INQUIRY-derived identity.
func (d *Device) Identity() Identity { return d.identity }

// Geometry returns the device's READ-CAPACITY-derived geometry.
func (d *Device) Geometry() Geometry { return d.geometry }

// Name returns a human-readable "vendor product" string.
func (d *Device) Name() string {
	return fmt.Sprintf("%s %s", d.identity.Vendor, d.identity.Product)
}

// CapacityBytes returns total device capacity in bytes.
func (d *Device) CapacityBytes() uint64 { return d.geometry.CapacityBytes() }

// TotalBlocks returns the total number of logical blocks.
func (d *Device) TotalBlocks() uint32 { return d.geometry.blockCount }

// BlockSize returns the logical block size in bytes. It also satisfies
// blockcache.BlockDevice.
func (d *Device) BlockSize() int { return d.geometry.blockSize }

// BlockCount satisfies blockcache.BlockDevice.
func (d *Device) BlockCount() uint32 { return d.geometry.blockCount }

// ReadBlocks issues a direct READ(10) for count blocks starting at lba,
// bypassing the byte cache. It also satisfies blockcache.BlockDevice.
func (d *Device) ReadBlocks(ctx context.Context, lba uint32, count uint16) ([]byte, error) {
	return d.cmd.Read10(ctx, lba, count, d.geometry.blockSize)
}

// WriteBlocks issues a direct WRITE(10) for count blocks starting at lba,
// bypassing the byte cache. It also satisfies blockcache.BlockDevice.
func (d *Device) WriteBlocks(ctx context.Context, lba uint32, count uint16, data []byte) error {
	return d.cmd.Write10(ctx, lba, count, data)
}

func (d *Device) timeoutCtx() (context.Context, context.CancelFunc) {
	return transport.WithTimeout(context.Background(), d.opts.Timeout)
}

// Read fills buf from the current cursor through the byte cache, advancing
// the cursor. It satisfies io.Reader.
func (d *Device) Read(buf []byte) (int, error) {
	ctx, cancel := d.timeoutCtx()
	defer cancel()
	return d.cache.Read(ctx, buf)
}

// Write splices data into the device at the current cursor through the
// byte cache, advancing the cursor. It satisfies io.Writer.
func (d *Device) Write(data []byte) (int, error) {
	ctx, cancel := d.timeoutCtx()
	defer cancel()
	return d.cache.Write(ctx, data)
}

// Seek repositions the cursor. It satisfies io.Seeker.
func (d *Device) Seek(offset int64, whence int) (int64, error) {
	return d.cache.Seek(offset, whence)
}

// Flush writes back every dirty cache entry.
func (d *Device) Flush() error {
	ctx, cancel := d.timeoutCtx()
	defer cancel()
	return d.cache.Flush(ctx)
}

// RecoverStall runs the BOT reset-recovery dance (class Reset 0xFF then
// CLEAR_FEATURE(ENDPOINT_HALT) on both bulk endpoints), per spec.md S4.B/S9.
// The scsi command layer runs the same bot reset recovery automatically when
// a transfer fails with a STALL; it is exposed here for callers that want to
// recover explicitly, e.g. after a PhaseError.
func (d *Device) RecoverStall(ctx context.Context) error {
	return d.bot.ResetRecovery(ctx, d.ifaceNum)
}

// Close flushes the cache, releases the claimed interface, and closes the
// transport. A failure to flush dirty blocks is returned, not swallowed,
// per spec.md S7; the interface and adapter are still released/closed.
func (d *Device) Close() error {
	ctx, cancel := d.timeoutCtx()
	defer cancel()

	flushErr := d.cache.Flush(ctx)
	if flushErr != nil {
		pkg.LogError(pkg.ComponentDevice, "teardown flush failed", "error", flushErr)
	}
	if err := d.adapter.ReleaseInterface(d.ifaceNum); err != nil && flushErr == nil {
		flushErr = err
	}
	if err := d.adapter.Close(); err != nil && flushErr == nil {
		flushErr = err
	}
	return flushErr
}
