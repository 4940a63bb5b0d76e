package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"sdrprep/internal/orchestrator"
	"sdrprep/internal/services"
)

// Exit codes: 0 everything provisioned, 1 a stage failed or was blocked,
// 2 a reboot or relogin is pending, 3 usage or configuration trouble.
const (
	exitOK            = 0
	exitFailed        = 1
	exitAwaitingUser  = 2
	exitConfiguration = 3
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	if err == nil {
		os.Exit(exitOK)
	}

	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCodeFor(err))
}

func exitCodeFor(err error) int {
	var coded *exitError
	switch {
	case errors.As(err, &coded):
		return coded.code
	case errors.Is(err, orchestrator.ErrAwaitingReboot):
		return exitAwaitingUser
	case errors.Is(err, services.ErrConfiguration):
		return exitConfiguration
	default:
		return exitFailed
	}
}

// exitError carries an explicit process exit code out of a command.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string {
	return e.message
}
