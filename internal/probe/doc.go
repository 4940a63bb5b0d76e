// Package probe runs stage verification checks. Probes are side-effect-free
// (or safely repeatable) commands distinct from the install action; the
// orchestrator retries them with backoff to absorb transient timing issues
// without re-running installation.
package probe
