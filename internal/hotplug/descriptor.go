package hotplug

import (
	"fmt"
	"strings"
)

// Descriptor identifies a USB device by its vendor/product id pair.
// IDs are four lowercase hex digits, the form sysfs reports.
type Descriptor struct {
	VendorID  string `toml:"vendor_id"`
	ProductID string `toml:"product_id"`
	Name      string `toml:"name"`
}

// Matches reports whether the given vendor/product pair is an exact match.
// Partial matches never count.
func (d Descriptor) Matches(vendor, product string) bool {
	return normalizeID(vendor) == normalizeID(d.VendorID) &&
		normalizeID(product) == normalizeID(d.ProductID)
}

// IsZero reports whether the descriptor is unset.
func (d Descriptor) IsZero() bool {
	return strings.TrimSpace(d.VendorID) == "" && strings.TrimSpace(d.ProductID) == ""
}

// Validate checks both ids are present and hex-formed.
func (d Descriptor) Validate() error {
	for _, id := range []string{d.VendorID, d.ProductID} {
		normalized := normalizeID(id)
		if len(normalized) != 4 {
			return fmt.Errorf("usb id %q must be four hex digits", id)
		}
		for _, r := range normalized {
			if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
				return fmt.Errorf("usb id %q must be four hex digits", id)
			}
		}
	}
	return nil
}

func (d Descriptor) String() string {
	label := strings.TrimSpace(d.Name)
	ids := normalizeID(d.VendorID) + ":" + normalizeID(d.ProductID)
	if label == "" {
		return ids
	}
	return label + " (" + ids + ")"
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Device is one entry from an enumeration snapshot.
type Device struct {
	VendorID  string
	ProductID string
	Path      string
}
