package hotplug_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sdrprep/internal/hotplug"
)

func writeSysfsDevice(t *testing.T, root, name, vendor, product string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if vendor != "" {
		if err := os.WriteFile(filepath.Join(dir, "idVendor"), []byte(vendor+"\n"), 0o644); err != nil {
			t.Fatalf("write idVendor: %v", err)
		}
	}
	if product != "" {
		if err := os.WriteFile(filepath.Join(dir, "idProduct"), []byte(product+"\n"), 0o644); err != nil {
			t.Fatalf("write idProduct: %v", err)
		}
	}
}

func TestSysfsSnapshotEnumerate(t *testing.T) {
	root := t.TempDir()
	writeSysfsDevice(t, root, "1-1", "2cf0", "5246")
	writeSysfsDevice(t, root, "1-2", "1d50", "6089")
	// Interface entries carry no id attributes and must be skipped.
	writeSysfsDevice(t, root, "1-1:1.0", "", "")

	snap := hotplug.NewSysfsSnapshot(root)
	devices, err := snap.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}

	found := map[string]bool{}
	for _, d := range devices {
		found[d.VendorID+":"+d.ProductID] = true
	}
	if !found["2cf0:5246"] || !found["1d50:6089"] {
		t.Fatalf("missing expected devices: %v", found)
	}
}

func TestSysfsSnapshotMissingRoot(t *testing.T) {
	snap := hotplug.NewSysfsSnapshot(filepath.Join(t.TempDir(), "nope"))
	if _, err := snap.Enumerate(context.Background()); err == nil {
		t.Fatal("expected error for missing sysfs root")
	}
}
