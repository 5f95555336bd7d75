//go:build linux

package usbid

import (
	"os"
	"path/filepath"
	"testing"
)

// TestNew verifies that New() creates a Database with default paths, the
// constructor info.go's lookupUSBIDName calls.
func TestNew(t *testing.T) {
	db := New()
	if db == nil {
		t.Fatal("New() returned nil")
	}
	if len(db.paths) != len(DefaultPaths) {
		t.Errorf("Expected %d paths, got %d", len(DefaultPaths), len(db.paths))
	}
	if db.vendors == nil || db.products == nil {
		t.Error("Database maps not initialized")
	}
}

// TestLoad_FileNotFound verifies that Load() handles missing files
// gracefully, the path lookupUSBIDName takes when no usb.ids is installed.
func TestLoad_FileNotFound(t *testing.T) {
	db := NewWithPaths([]string{"/nonexistent/path/usb.ids"})
	loaded := db.Load()
	if loaded {
		t.Error("Load() should return false when file not found")
	}
	if !db.IsLoaded() {
		t.Error("IsLoaded() should return true after Load() attempt")
	}
}

// TestParsing verifies LookupVendor/LookupProduct against a parsed
// database, the pair info.go calls to resolve a VID/PID.
func TestParsing(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "usb.ids")
	content := `# USB ID Database
# Comment line

1234  Test Vendor One
	5678  Test Product One
	9abc  Test Product Two
abcd  Test Vendor Two
	def0  Test Product Three
`
	if err := os.WriteFile(testFile, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	db := NewWithPaths([]string{testFile})
	if !db.Load() {
		t.Fatal("Load() failed")
	}

	tests := []struct {
		name        string
		vid         uint16
		pid         uint16
		wantVendor  string
		wantProduct string
	}{
		{"first vendor and product", 0x1234, 0x5678, "Test Vendor One", "Test Product One"},
		{"second product of first vendor", 0x1234, 0x9abc, "Test Vendor One", "Test Product Two"},
		{"second vendor", 0xabcd, 0xdef0, "Test Vendor Two", "Test Product Three"},
		{"unknown vendor", 0xFFFF, 0x0000, "", ""},
		{"known vendor, unknown product", 0x1234, 0xFFFF, "Test Vendor One", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := db.LookupVendor(tt.vid); got != tt.wantVendor {
				t.Errorf("LookupVendor(0x%04x) = %q, want %q", tt.vid, got, tt.wantVendor)
			}
			if got := db.LookupProduct(tt.vid, tt.pid); got != tt.wantProduct {
				t.Errorf("LookupProduct(0x%04x, 0x%04x) = %q, want %q", tt.vid, tt.pid, got, tt.wantProduct)
			}
		})
	}
}

// TestMalformedLines verifies malformed lines are skipped gracefully,
// since real /usr/share/hwdata/usb.ids files carry inconsistent formatting.
func TestMalformedLines(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "usb.ids")
	content := `# Test malformed lines
1234  Valid Vendor
	5678  Valid Product
ZZZZ  Invalid VID (non-hex)
	YYYY  Invalid PID (non-hex)
12    Too short
	34    Too short
9abc  Another Valid Vendor
	def0  Another Valid Product
`
	if err := os.WriteFile(testFile, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	db := NewWithPaths([]string{testFile})
	if !db.Load() {
		t.Fatal("Load() failed")
	}

	if got := db.LookupVendor(0x1234); got != "Valid Vendor" {
		t.Errorf("LookupVendor(0x1234) = %q, want %q", got, "Valid Vendor")
	}
	if got := db.LookupProduct(0x1234, 0x5678); got != "Valid Product" {
		t.Errorf("LookupProduct(0x1234, 0x5678) = %q, want %q", got, "Valid Product")
	}
	if got := db.LookupVendor(0x9abc); got != "Another Valid Vendor" {
		t.Errorf("LookupVendor(0x9abc) = %q, want %q", got, "Another Valid Vendor")
	}
	if got := db.LookupProduct(0x9abc, 0xdef0); got != "Another Valid Product" {
		t.Errorf("LookupProduct(0x9abc, 0xdef0) = %q, want %q", got, "Another Valid Product")
	}
}
