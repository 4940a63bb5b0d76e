package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLaunch marks failures to start an external executable at all.
	ErrLaunch = errors.New("launch error")
	// ErrInstall marks a non-zero exit from an install action.
	ErrInstall = errors.New("install failed")
	// ErrVerification marks a probe that reported failure.
	ErrVerification = errors.New("verification failed")
	// ErrDeviceNotFound marks a device wait that timed out.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrPermissionPending marks a grant that needs a new session to apply.
	ErrPermissionPending = errors.New("permission pending")
	// ErrConfiguration marks malformed stage or runtime configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrTimeout marks an action or probe that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures expected to clear on retry.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the short classification name recorded in checkpoints and
// reports for a wrapped error.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLaunch):
		return "launch"
	case errors.Is(err, ErrInstall):
		return "install_failed"
	case errors.Is(err, ErrVerification):
		return "verification_failed"
	case errors.Is(err, ErrDeviceNotFound):
		return "device_not_found"
	case errors.Is(err, ErrPermissionPending):
		return "permission_pending"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "transient"
	}
}

// Terminal reports whether an error must never be retried regardless of the
// stage's retry budget.
func Terminal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrPermissionPending)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
