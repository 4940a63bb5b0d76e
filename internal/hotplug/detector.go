package hotplug

import (
	"context"
	"log/slog"
	"time"

	"sdrprep/internal/logging"
)

// Outcome is the result of a bounded device wait.
type Outcome int

const (
	// Found means a device matching the descriptor appeared before the
	// deadline.
	Found Outcome = iota
	// TimedOut means the deadline elapsed with no exact match.
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Detector waits for USB devices to appear in an enumeration snapshot.
type Detector struct {
	snapshot Snapshot
	logger   *slog.Logger
	wake     chan struct{}
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger attaches a logger to the detector.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDetector constructs a detector over the given snapshot source.
func NewDetector(snapshot Snapshot, opts ...Option) *Detector {
	d := &Detector{
		snapshot: snapshot,
		logger:   logging.NewNop(),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "hotplug")
	return d
}

// Notify wakes a pending WaitFor so it re-checks the snapshot immediately.
// Safe to call from any goroutine; extra notifications coalesce.
func (d *Detector) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// WaitFor polls the snapshot at pollInterval until a device exactly matching
// descriptor appears or timeout elapses. The deadline is honored to within
// one poll interval. Snapshot errors on the first check surface immediately;
// later transient errors are logged and retried on the next tick.
func (d *Detector) WaitFor(ctx context.Context, descriptor Descriptor, pollInterval, timeout time.Duration) (Outcome, error) {
	if err := descriptor.Validate(); err != nil {
		return TimedOut, err
	}

	present, err := d.present(ctx, descriptor)
	if err != nil {
		return TimedOut, err
	}
	if present {
		return Found, nil
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return TimedOut, ctx.Err()
		case <-deadline.C:
			d.logger.Debug("device wait deadline elapsed",
				logging.String("descriptor", descriptor.String()),
				logging.Duration("timeout", timeout),
			)
			return TimedOut, nil
		case <-d.wake:
		case <-ticker.C:
		}

		present, err := d.present(ctx, descriptor)
		if err != nil {
			d.logger.Debug("snapshot check failed; will retry", logging.Error(err))
			continue
		}
		if present {
			d.logger.Debug("device found",
				logging.String("descriptor", descriptor.String()),
			)
			return Found, nil
		}
	}
}

func (d *Detector) present(ctx context.Context, descriptor Descriptor) (bool, error) {
	devices, err := d.snapshot.Enumerate(ctx)
	if err != nil {
		return false, err
	}
	for _, device := range devices {
		if descriptor.Matches(device.VendorID, device.ProductID) {
			return true, nil
		}
	}
	return false, nil
}
