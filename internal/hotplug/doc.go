// Package hotplug detects external USB hardware. USB enumeration after a
// device is plugged in is asynchronous relative to the orchestrator, so a
// single point-in-time check is unreliable; the detector polls an enumeration
// snapshot with a bounded deadline and can be woken early by udev netlink add
// events.
package hotplug
