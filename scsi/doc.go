// Package scsi builds the six SCSI-2 CDBs this stack issues (TEST UNIT
// READY, INQUIRY, READ CAPACITY(10), READ(10), WRITE(10), REQUEST SENSE) and
// decodes their responses.
//
// All multi-byte CDB and response fields are big-endian, in contrast to the
// little-endian CBW/CSW framing in package bot that carries these CDBs.
// Field layouts mirror the device-side encode/decode in the teacher repo's
// device/class/msc/{scsi.go,commands.go,constants.go}, mirrored into the
// opposite direction: the teacher answers these commands, this package
// issues them.
package scsi
