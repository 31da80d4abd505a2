package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStartCPUStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.pprof")
	stop, err := StartCPU(path)
	if err != nil {
		t.Fatalf("StartCPU: %v", err)
	}
	stop()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("profile file missing: %v", err)
	}
}

func TestWriteMem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.pprof")
	if err := WriteMem(path); err != nil {
		t.Fatalf("WriteMem: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() == 0 {
		t.Fatal("profile file is empty")
	}
}
