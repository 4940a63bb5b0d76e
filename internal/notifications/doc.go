// Package notifications delivers provisioning events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Provisioning runs on headless boards more often than not, so a
// push message is how the operator learns the run finished or stalled.
package notifications
