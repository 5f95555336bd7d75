//go:build profile

package prof

import (
	"errors"
	"path/filepath"
	"testing"
)

// TestStartCPU_Success checks the CPU-profile path bench.go's --cpuprofile
// flag exercises: StartCPU creates the file and IsCPUActive reflects it.
func TestStartCPU_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.prof")

	err := StartCPU(path)
	if err != nil {
		t.Fatalf("StartCPU() error = %v, want nil", err)
	}
	defer StopCPU()

	if !IsCPUActive() {
		t.Error("IsCPUActive() = false, want true")
	}
}

func TestStartCPU_FailFastWhenActive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.prof")

	err := StartCPU(path)
	if err != nil {
		t.Fatalf("StartCPU() error = %v, want nil", err)
	}
	defer StopCPU()

	err = StartCPU(filepath.Join(t.TempDir(), "cpu2.prof"))
	if !errors.Is(err, ErrCPUProfileActive) {
		t.Errorf("StartCPU() error = %v, want %v", err, ErrCPUProfileActive)
	}
}

func TestStartCPU_InvalidPath(t *testing.T) {
	err := StartCPU("/nonexistent/directory/cpu.prof")
	if err == nil {
		t.Error("StartCPU() error = nil, want error for invalid path")
		StopCPU()
	}
}

func TestStopCPU_WhenNotActive(t *testing.T) {
	// Should not panic when called without active profiling, the path
	// bench.go's deferred StopCPU takes if StartCPU already failed.
	StopCPU()
}

func TestStopCPU_ResetsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.prof")

	if err := StartCPU(path); err != nil {
		t.Fatalf("StartCPU() error = %v, want nil", err)
	}
	StopCPU()

	if IsCPUActive() {
		t.Error("IsCPUActive() = true after StopCPU(), want false")
	}

	if err := StartCPU(path); err != nil {
		t.Errorf("StartCPU() after StopCPU() error = %v, want nil", err)
	}
	StopCPU()
}
