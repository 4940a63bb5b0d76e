// Package testsupport provides shared fixtures for sdrprep tests: temp-dir
// backed configs and a scripted fake command runner.
package testsupport
