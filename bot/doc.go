// Package bot implements the host side of the USB Mass Storage Bulk-Only
// Transport protocol: building and sending Command Block Wrappers, and
// parsing the Command Status Wrapper each command produces.
//
// The wire layout mirrors the USB Mass Storage Class Bulk-Only Transport
// specification: a 31-byte CBW precedes an optional data phase, followed by
// a 13-byte CSW. Every field is little-endian, in contrast to the SCSI CDBs
// carried inside the CBW, which are big-endian.
package bot
