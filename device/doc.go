// Package device holds the wire-exact USB descriptor structures (device,
// configuration, interface, endpoint) this module's host-side transport
// adapters parse out of a real device's descriptor tree when walking its
// configurations and interfaces during bring-up.
//
// The teacher repo this module is descended from uses these same structures
// on the device (peripheral/gadget) side, to marshal descriptors a host
// would request. This module only ever parses them, since it plays the host
// role: it issues GET_DESCRIPTOR control transfers and walks the returned
// bytes to find the mass-storage interface and its bulk endpoint pair.
package device
