package scsi

import (
	"context"
	"errors"

	"github.com/ardnew/usbms/bot"
	"github.com/ardnew/usbms/pkg"
	"github.com/ardnew/usbms/transport"
)

// CommandLayer issues the six SCSI commands over a bot.Session, applying
// spec.md S4.C/S7's failure policy: CSW.Failed on a write triggers REQUEST
// SENSE for diagnostics before returning the error; CSW.PhaseError is
// returned as ErrPhaseError and is always fatal to the attempted command.
// BOT reset-recovery runs only when a transfer fails with transport.ErrPipe;
// a phase-error status does not trigger it.
type CommandLayer struct {
	Session   *bot.Session
	Interface uint8
}

// NewCommandLayer wires a bot.Session into a CommandLayer for the given
// claimed interface number (needed for STALL/reset-recovery control
// transfers).
func NewCommandLayer(session *bot.Session, ifaceNum uint8) *CommandLayer {
	return &CommandLayer{Session: session, Interface: ifaceNum}
}

func (c *CommandLayer) recoverIfStalled(ctx context.Context, err error) {
	if errors.Is(err, transport.ErrPipe) {
		pkg.LogWarn(pkg.ComponentTransfer, "endpoint stalled, running BOT reset recovery")
		if rerr := c.Session.ResetRecovery(ctx, c.Interface); rerr != nil {
			pkg.LogError(pkg.ComponentTransfer, "BOT reset recovery failed", "error", rerr)
		}
	}
}

// TestUnitReady issues TEST UNIT READY, returning true if the CSW reports
// success.
func (c *CommandLayer) TestUnitReady(ctx context.Context) (bool, error) {
	csw, _, err := c.Session.CommandIn(ctx, TestUnitReadyCDB(), 0)
	if err != nil {
		c.recoverIfStalled(ctx, err)
		return false, err
	}
	if err := c.statusError(csw); err != nil {
		if errors.Is(err, ErrPhaseError) {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Inquiry issues INQUIRY and decodes the standard 36-byte response.
func (c *CommandLayer) Inquiry(ctx context.Context) (InquiryResponse, error) {
	csw, data, err := c.Session.CommandIn(ctx, InquiryCDB(), InquiryResponseSize)
	if err != nil {
		c.recoverIfStalled(ctx, err)
		return InquiryResponse{}, err
	}
	if err := c.statusError(csw); err != nil {
		return InquiryResponse{}, err
	}
	return ParseInquiryResponse(data)
}

// ReadCapacity issues READ CAPACITY(10) and decodes the response.
func (c *CommandLayer) ReadCapacity(ctx context.Context) (ReadCapacity10Response, error) {
	csw, data, err := c.Session.CommandIn(ctx, ReadCapacity10CDB(), 8)
	if err != nil {
		c.recoverIfStalled(ctx, err)
		return ReadCapacity10Response{}, err
	}
	if err := c.statusError(csw); err != nil {
		return ReadCapacity10Response{}, err
	}
	return ParseReadCapacity10Response(data)
}

// Read10 issues READ(10) for count blocks of blockSize bytes starting at
// lba, returning exactly count*blockSize bytes on success.
func (c *CommandLayer) Read10(ctx context.Context, lba uint32, count uint16, blockSize int) ([]byte, error) {
	csw, data, err := c.Session.CommandIn(ctx, Read10CDB(lba, count), int(count)*blockSize)
	if err != nil {
		c.recoverIfStalled(ctx, err)
		return nil, err
	}
	if err := c.statusError(csw); err != nil {
		return nil, err
	}
	if len(data) < int(count)*blockSize {
		return nil, ErrShortResponse
	}
	return data, nil
}

// Write10 issues WRITE(10) for count blocks of data starting at lba. On
// CommandFailed it fetches REQUEST SENSE for diagnostics before returning
// the error, per spec.md S4.C/S7.
func (c *CommandLayer) Write10(ctx context.Context, lba uint32, count uint16, data []byte) error {
	csw, err := c.Session.CommandOut(ctx, Write10CDB(lba, count), data)
	if err != nil {
		c.recoverIfStalled(ctx, err)
		return err
	}
	if err := c.statusError(csw); err != nil {
		if errors.Is(err, ErrCommandFailed) {
			sense, serr := c.RequestSense(ctx)
			cmdErr := &CommandError{Op: OpWrite10}
			if serr == nil {
				cmdErr.Sense = &sense
				pkg.LogError(pkg.ComponentTransfer, "WRITE(10) failed", "sense", sense.String())
			}
			return cmdErr
		}
		return err
	}
	return nil
}

// RequestSense issues REQUEST SENSE and decodes the fixed-format response.
func (c *CommandLayer) RequestSense(ctx context.Context) (SenseData, error) {
	csw, data, err := c.Session.CommandIn(ctx, RequestSenseCDB(), RequestSenseResponseSize)
	if err != nil {
		return SenseData{}, err
	}
	if err := c.statusError(csw); err != nil {
		return SenseData{}, err
	}
	return ParseSenseData(data), nil
}

// statusError maps a CSW's status byte to the scsi-layer error policy.
func (c *CommandLayer) statusError(csw bot.CommandStatusWrapper) error {
	switch Status(csw.Status) {
	case StatusGood:
		return nil
	case StatusPhaseError:
		return ErrPhaseError
	default:
		return ErrCommandFailed
	}
}
