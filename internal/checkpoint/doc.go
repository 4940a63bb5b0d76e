// Package checkpoint persists stage progress in SQLite so interrupted runs
// resume where they left off. Each stage commit lands before the next stage
// starts, and completed stages are forward-only: only an explicit reset can
// send one back to pending.
package checkpoint
