// Command sdrprep prepares a single-board computer for SDR capture work:
// system updates, driver and toolchain installs, USB permission grants, and
// an end-to-end capture check, all resumable across interruptions.
package main
