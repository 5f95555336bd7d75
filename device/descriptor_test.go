package device

import (
	"testing"

	"github.com/ardnew/usbms/pkg"
)

func TestParseDeviceDescriptor(t *testing.T) {
	data := []byte{
		18, DescriptorTypeDevice, 0x00, 0x02, 0x00, 0x00, 0x00, 64,
		0xFE, 0xCA, 0xBE, 0xBA, 0x00, 0x01, 1, 2, 3, 1,
	}

	var parsed DeviceDescriptor
	if err := ParseDeviceDescriptor(data, &parsed); err != nil {
		t.Fatalf("ParseDeviceDescriptor: %v", err)
	}
	if parsed.VendorID != 0xCAFE {
		t.Errorf("VendorID = 0x%04X, want 0xCAFE", parsed.VendorID)
	}
	if parsed.ProductID != 0xBABE {
		t.Errorf("ProductID = 0x%04X, want 0xBABE", parsed.ProductID)
	}
	if parsed.NumConfigurations != 1 {
		t.Errorf("NumConfigurations = %d, want 1", parsed.NumConfigurations)
	}
}

func TestParseDeviceDescriptor_TooShort(t *testing.T) {
	var parsed DeviceDescriptor
	if err := ParseDeviceDescriptor(make([]byte, 10), &parsed); err != pkg.ErrDescriptorTooShort {
		t.Errorf("err = %v, want ErrDescriptorTooShort", err)
	}
}

func TestParseDeviceDescriptor_WrongType(t *testing.T) {
	data := make([]byte, DeviceDescriptorSize)
	data[0] = DeviceDescriptorSize
	data[1] = DescriptorTypeConfiguration
	var parsed DeviceDescriptor
	if err := ParseDeviceDescriptor(data, &parsed); err != pkg.ErrDescriptorTypeMismatch {
		t.Errorf("err = %v, want ErrDescriptorTypeMismatch", err)
	}
}

func TestParseConfigurationDescriptor(t *testing.T) {
	data := []byte{9, DescriptorTypeConfiguration, 100, 0, 2, 1, 0, ConfigAttrBusPowered, 50}

	var parsed ConfigurationDescriptor
	if err := ParseConfigurationDescriptor(data, &parsed); err != nil {
		t.Fatalf("ParseConfigurationDescriptor: %v", err)
	}
	if parsed.TotalLength != 100 {
		t.Errorf("TotalLength = %d, want 100", parsed.TotalLength)
	}
	if parsed.NumInterfaces != 2 {
		t.Errorf("NumInterfaces = %d, want 2", parsed.NumInterfaces)
	}
	if parsed.ConfigurationValue != 1 {
		t.Errorf("ConfigurationValue = %d, want 1", parsed.ConfigurationValue)
	}
}

func TestParseInterfaceDescriptor(t *testing.T) {
	data := []byte{9, DescriptorTypeInterface, 1, 0, 2, ClassMassStorage, 0x06, 0x50, 0}

	var parsed InterfaceDescriptor
	if err := ParseInterfaceDescriptor(data, &parsed); err != nil {
		t.Fatalf("ParseInterfaceDescriptor: %v", err)
	}
	if parsed.InterfaceNumber != 1 {
		t.Errorf("InterfaceNumber = %d, want 1", parsed.InterfaceNumber)
	}
	if parsed.InterfaceClass != ClassMassStorage {
		t.Errorf("InterfaceClass = 0x%02X, want 0x%02X", parsed.InterfaceClass, ClassMassStorage)
	}
	if parsed.InterfaceProtocol != 0x50 {
		t.Errorf("InterfaceProtocol = 0x%02X, want 0x50", parsed.InterfaceProtocol)
	}
}

func TestParseEndpointDescriptor(t *testing.T) {
	// Bulk IN, EP1, 512-byte max packet.
	data := []byte{7, DescriptorTypeEndpoint, 0x81, 0x02, 0x00, 0x02, 0}

	var parsed EndpointDescriptor
	if err := ParseEndpointDescriptor(data, &parsed); err != nil {
		t.Fatalf("ParseEndpointDescriptor: %v", err)
	}
	if parsed.EndpointAddress != 0x81 {
		t.Errorf("EndpointAddress = 0x%02X, want 0x81", parsed.EndpointAddress)
	}
	if parsed.MaxPacketSize != 512 {
		t.Errorf("MaxPacketSize = %d, want 512", parsed.MaxPacketSize)
	}
}

func TestParseDescriptor_AllTypeMismatches(t *testing.T) {
	tests := []struct {
		name      string
		parseFunc func([]byte) error
		wrongType uint8
		bufSize   int
	}{
		{
			"DeviceDescriptor with config type",
			func(data []byte) error { var d DeviceDescriptor; return ParseDeviceDescriptor(data, &d) },
			DescriptorTypeConfiguration,
			DeviceDescriptorSize,
		},
		{
			"ConfigurationDescriptor with device type",
			func(data []byte) error { var c ConfigurationDescriptor; return ParseConfigurationDescriptor(data, &c) },
			DescriptorTypeDevice,
			ConfigurationDescriptorSize,
		},
		{
			"InterfaceDescriptor with endpoint type",
			func(data []byte) error { var i InterfaceDescriptor; return ParseInterfaceDescriptor(data, &i) },
			DescriptorTypeEndpoint,
			InterfaceDescriptorSize,
		},
		{
			"EndpointDescriptor with interface type",
			func(data []byte) error { var e EndpointDescriptor; return ParseEndpointDescriptor(data, &e) },
			DescriptorTypeInterface,
			EndpointDescriptorSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, tt.bufSize)
			data[0] = uint8(tt.bufSize)
			data[1] = tt.wrongType
			if err := tt.parseFunc(data); err == nil {
				t.Error("expected error for wrong descriptor type")
			}
		})
	}
}

func TestParseDescriptor_TooShort(t *testing.T) {
	tests := []struct {
		name      string
		parseFunc func([]byte) error
	}{
		{"ConfigurationDescriptor", func(data []byte) error { var c ConfigurationDescriptor; return ParseConfigurationDescriptor(data, &c) }},
		{"InterfaceDescriptor", func(data []byte) error { var i InterfaceDescriptor; return ParseInterfaceDescriptor(data, &i) }},
		{"EndpointDescriptor", func(data []byte) error { var e EndpointDescriptor; return ParseEndpointDescriptor(data, &e) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.parseFunc(make([]byte, 3)); err != pkg.ErrDescriptorTooShort {
				t.Errorf("err = %v, want ErrDescriptorTooShort", err)
			}
		})
	}
}
