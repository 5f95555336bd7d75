package device

import (
	"encoding/binary"

	"github.com/ardnew/usbms/pkg"
)

// USB Descriptor Types (USB 2.0 Spec Table 9-5).
const (
	DescriptorTypeDevice               = 0x01
	DescriptorTypeConfiguration        = 0x02
	DescriptorTypeString               = 0x03
	DescriptorTypeInterface            = 0x04
	DescriptorTypeEndpoint             = 0x05
	DescriptorTypeDeviceQualifier      = 0x06
	DescriptorTypeOtherSpeedConfig     = 0x07
	DescriptorTypeInterfacePower       = 0x08
	DescriptorTypeOTG                  = 0x09
	DescriptorTypeDebug                = 0x0A
	DescriptorTypeInterfaceAssociation = 0x0B
	DescriptorTypeBOS                  = 0x0F
	DescriptorTypeDeviceCapability     = 0x10
	DescriptorTypeHID                  = 0x21
	DescriptorTypeHIDReport            = 0x22
	DescriptorTypeHIDPhysical          = 0x23
	DescriptorTypeCSInterface          = 0x24 // Class-specific interface
	DescriptorTypeCSEndpoint           = 0x25 // Class-specific endpoint
)

// USB Class Codes.
const (
	ClassPerInterface = 0x00 // Class defined at interface level
	ClassAudio        = 0x01 // Audio class
	ClassCDC          = 0x02 // Communications Device Class
	ClassHID          = 0x03 // Human Interface Device
	ClassPhysical     = 0x05 // Physical
	ClassImage        = 0x06 // Still Imaging
	ClassPrinter      = 0x07 // Printer
	ClassMassStorage  = 0x08 // Mass Storage
	ClassHub          = 0x09 // Hub
	ClassCDCData      = 0x0A // CDC-Data
	ClassSmartCard    = 0x0B // Smart Card
	ClassContentSec   = 0x0D // Content Security
	ClassVideo        = 0x0E // Video
	ClassHealthcare   = 0x0F // Personal Healthcare
	ClassAudioVideo   = 0x10 // Audio/Video Devices
	ClassBillboard    = 0x11 // Billboard Device Class
	ClassDiagnostic   = 0xDC // Diagnostic Device
	ClassWireless     = 0xE0 // Wireless Controller
	ClassMisc         = 0xEF // Miscellaneous
	ClassAppSpecific  = 0xFE // Application Specific
	ClassVendor       = 0xFF // Vendor Specific
)

// DeviceDescriptor represents a USB device descriptor (18 bytes).
type DeviceDescriptor struct {
	Length            uint8  // Size of this descriptor (18)
	DescriptorType    uint8  // Device descriptor type (0x01)
	USBVersion        uint16 // USB specification version (BCD)
	DeviceClass       uint8  // Class code
	DeviceSubClass    uint8  // Subclass code
	DeviceProtocol    uint8  // Protocol code
	MaxPacketSize0    uint8  // Max packet size for EP0
	VendorID          uint16 // Vendor ID
	ProductID         uint16 // Product ID
	DeviceVersion     uint16 // Device release number (BCD)
	ManufacturerIndex uint8  // Index of manufacturer string
	ProductIndex      uint8  // Index of product string
	SerialNumberIndex uint8  // Index of serial number string
	NumConfigurations uint8  // Number of configurations
}

// DeviceDescriptorSize is the size of a device descriptor in bytes.
const DeviceDescriptorSize = 18

// ParseDeviceDescriptor parses a device descriptor from bytes into out.
// Returns an error if the data is too short or the descriptor type is wrong.
func ParseDeviceDescriptor(data []byte, out *DeviceDescriptor) error {
	if len(data) < DeviceDescriptorSize {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeDevice {
		return pkg.ErrDescriptorTypeMismatch
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.USBVersion = binary.LittleEndian.Uint16(data[2:4])
	out.DeviceClass = data[4]
	out.DeviceSubClass = data[5]
	out.DeviceProtocol = data[6]
	out.MaxPacketSize0 = data[7]
	out.VendorID = binary.LittleEndian.Uint16(data[8:10])
	out.ProductID = binary.LittleEndian.Uint16(data[10:12])
	out.DeviceVersion = binary.LittleEndian.Uint16(data[12:14])
	out.ManufacturerIndex = data[14]
	out.ProductIndex = data[15]
	out.SerialNumberIndex = data[16]
	out.NumConfigurations = data[17]
	return nil
}

// ConfigurationDescriptor represents a USB configuration descriptor (9 bytes).
type ConfigurationDescriptor struct {
	Length             uint8  // Size of this descriptor (9)
	DescriptorType     uint8  // Configuration descriptor type (0x02)
	TotalLength        uint16 // Total length of configuration data
	NumInterfaces      uint8  // Number of interfaces
	ConfigurationValue uint8  // Configuration value for SET_CONFIGURATION
	ConfigurationIndex uint8  // Index of string descriptor
	Attributes         uint8  // Configuration attributes
	MaxPower           uint8  // Maximum power consumption (2mA units)
}

// Configuration attribute bits.
const (
	ConfigAttrBusPowered   = 0x80 // Bus-powered (required)
	ConfigAttrSelfPowered  = 0x40 // Self-powered
	ConfigAttrRemoteWakeup = 0x20 // Remote wakeup capable
)

// ConfigurationDescriptorSize is the size of a configuration descriptor in bytes.
const ConfigurationDescriptorSize = 9

// ParseConfigurationDescriptor parses a configuration descriptor from bytes into out.
// Returns an error if the data is too short or the descriptor type is wrong.
func ParseConfigurationDescriptor(data []byte, out *ConfigurationDescriptor) error {
	if len(data) < ConfigurationDescriptorSize {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeConfiguration {
		return pkg.ErrDescriptorTypeMismatch
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.TotalLength = binary.LittleEndian.Uint16(data[2:4])
	out.NumInterfaces = data[4]
	out.ConfigurationValue = data[5]
	out.ConfigurationIndex = data[6]
	out.Attributes = data[7]
	out.MaxPower = data[8]
	return nil
}

// InterfaceDescriptor represents a USB interface descriptor (9 bytes).
type InterfaceDescriptor struct {
	Length            uint8 // Size of this descriptor (9)
	DescriptorType    uint8 // Interface descriptor type (0x04)
	InterfaceNumber   uint8 // Interface number
	AlternateSetting  uint8 // Alternate setting number
	NumEndpoints      uint8 // Number of endpoints (excluding EP0)
	InterfaceClass    uint8 // Class code
	InterfaceSubClass uint8 // Subclass code
	InterfaceProtocol uint8 // Protocol code
	InterfaceIndex    uint8 // Index of string descriptor
}

// InterfaceDescriptorSize is the size of an interface descriptor in bytes.
const InterfaceDescriptorSize = 9

// ParseInterfaceDescriptor parses an interface descriptor from bytes into out.
// Returns an error if the data is too short or the descriptor type is wrong.
func ParseInterfaceDescriptor(data []byte, out *InterfaceDescriptor) error {
	if len(data) < InterfaceDescriptorSize {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeInterface {
		return pkg.ErrDescriptorTypeMismatch
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.InterfaceNumber = data[2]
	out.AlternateSetting = data[3]
	out.NumEndpoints = data[4]
	out.InterfaceClass = data[5]
	out.InterfaceSubClass = data[6]
	out.InterfaceProtocol = data[7]
	out.InterfaceIndex = data[8]
	return nil
}

// EndpointDescriptor represents a USB endpoint descriptor (7 bytes).
type EndpointDescriptor struct {
	Length          uint8  // Size of this descriptor (7)
	DescriptorType  uint8  // Endpoint descriptor type (0x05)
	EndpointAddress uint8  // Endpoint address (including direction)
	Attributes      uint8  // Endpoint attributes (transfer type, etc.)
	MaxPacketSize   uint16 // Maximum packet size
	Interval        uint8  // Polling interval (for interrupt/isochronous)
}

// EndpointDescriptorSize is the size of an endpoint descriptor in bytes.
const EndpointDescriptorSize = 7

// ParseEndpointDescriptor parses an endpoint descriptor from bytes into out.
// Returns an error if the data is too short or the descriptor type is wrong.
func ParseEndpointDescriptor(data []byte, out *EndpointDescriptor) error {
	if len(data) < EndpointDescriptorSize {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeEndpoint {
		return pkg.ErrDescriptorTypeMismatch
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.EndpointAddress = data[2]
	out.Attributes = data[3]
	out.MaxPacketSize = binary.LittleEndian.Uint16(data[4:6])
	out.Interval = data[6]
	return nil
}
