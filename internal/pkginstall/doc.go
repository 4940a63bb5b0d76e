// Package pkginstall makes stage actions idempotent. Before any install
// command runs, the installer queries local state (PATH, the dpkg database,
// file presence, capability flags, group membership) and short-circuits when
// the desired end state already holds. Retry policy is owned by the
// orchestrator; the installer performs at most one pass per call.
package pkginstall
