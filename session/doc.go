// Package session implements USB Mass Storage device bring-up and
// teardown: opening the transport, selecting the configuration that
// actually contains the mass-storage interface, claiming it, locating the
// bulk endpoint pair, fetching max-LUN, and running the
// TEST-UNIT-READY/INQUIRY/READ-CAPACITY handshake that populates Identity
// and Geometry.
//
// The resulting Device exposes a stream (Read/Write/Seek/Flush) and block
// (ReadBlocks/WriteBlocks) API backed by a blockcache.Cache over a
// scsi.CommandLayer, grounded on the teacher repo's bring-up sequencing in
// host/enumeration.go and host/device.go (adapted from full bus enumeration
// down to bringing up one already-enumerated device).
package session
