package hotplug

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const defaultSysfsRoot = "/sys/bus/usb/devices"

// Snapshot provides a point-in-time view of enumerated USB devices.
type Snapshot interface {
	Enumerate(ctx context.Context) ([]Device, error)
}

// SysfsSnapshot enumerates USB devices from the kernel's sysfs tree.
type SysfsSnapshot struct {
	root string
}

// NewSysfsSnapshot returns a snapshot over /sys/bus/usb/devices. A non-empty
// root overrides the location (tests point this at a fixture tree).
func NewSysfsSnapshot(root string) *SysfsSnapshot {
	if strings.TrimSpace(root) == "" {
		root = defaultSysfsRoot
	}
	return &SysfsSnapshot{root: root}
}

// Enumerate walks the sysfs device entries and collects vendor/product ids.
// Entries without id attributes (interfaces, hubs mid-rebind) are skipped.
func (s *SysfsSnapshot) Enumerate(ctx context.Context) ([]Device, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("usb sysfs tree %s unavailable: %w", s.root, err)
		}
		return nil, fmt.Errorf("read usb devices: %w", err)
	}

	devices := make([]Device, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		devPath := filepath.Join(s.root, entry.Name())
		vendor, ok := readIDFile(filepath.Join(devPath, "idVendor"))
		if !ok {
			continue
		}
		product, ok := readIDFile(filepath.Join(devPath, "idProduct"))
		if !ok {
			continue
		}
		devices = append(devices, Device{
			VendorID:  vendor,
			ProductID: product,
			Path:      devPath,
		})
	}
	return devices, nil
}

func readIDFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	id := normalizeID(string(data))
	if id == "" {
		return "", false
	}
	return id, true
}
