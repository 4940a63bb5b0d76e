// Package stagedef defines the readiness stage catalog: the ordered list of
// provisioning stages with their preconditions, install actions, verification
// probes, and retry policy. Catalogs are loaded once at startup from TOML
// (the embedded default or an operator-supplied file) and validated before
// any stage executes.
package stagedef
