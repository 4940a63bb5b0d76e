// Package procrun executes external commands synchronously with captured
// output, a per-invocation timeout, and process-group termination. It is the
// single OS-process boundary for the orchestrator; everything above it deals
// in structured results.
package procrun
