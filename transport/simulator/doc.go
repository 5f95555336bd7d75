// Package simulator implements an in-memory transport.Adapter that plays the
// device side of the Bulk-Only Transport / SCSI protocol against a backing
// byte slice, so the rest of the stack (bot, scsi, blockcache, session) can
// be exercised end-to-end without real hardware.
//
// It is grounded on the teacher repo's mockHAL test-double pattern
// (host/host_test.go): a small struct with configurable fields and canned
// responses, not a mocking framework.
package simulator
