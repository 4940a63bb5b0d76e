// Package report defines the stage and run status model shared by the
// checkpoint store, the orchestrator, and the CLI renderers.
package report
