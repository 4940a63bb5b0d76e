// Package services defines shared utilities consumed by the readiness
// orchestrator and its stage components.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and stage ids for logging
//     and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent retry/terminal decisions.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the run.
package services
