// Package orchestrator drives the stage pipeline: strict catalog order,
// checkpointed progress, bounded retries with exponential backoff, and
// blocked propagation past hard failures. One orchestrator run owns the
// machine via a file lock; concurrent runs are refused.
package orchestrator
