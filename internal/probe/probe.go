package probe

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	goversion "github.com/hashicorp/go-version"

	"sdrprep/internal/logging"
	"sdrprep/internal/procrun"
	"sdrprep/internal/stagedef"
)

// Verdict is the outcome of one verification attempt.
type Verdict struct {
	Passed bool
	Detail string
	Result *procrun.Result
}

// Prober executes verification probes.
type Prober struct {
	runner procrun.Runner
	logger *slog.Logger
}

// New constructs a Prober over the given runner.
func New(runner procrun.Runner, logger *slog.Logger) *Prober {
	return &Prober{
		runner: runner,
		logger: logging.NewComponentLogger(logger, "probe"),
	}
}

// Check runs the stage's verification once. Stages without a probe pass
// trivially: install exit codes already vouched for them. The returned error
// is non-nil only for launch failures and context cancellation.
func (p *Prober) Check(ctx context.Context, stage stagedef.Stage, timeout time.Duration) (Verdict, error) {
	spec := stage.Verification
	if spec == nil {
		return Verdict{Passed: true, Detail: "no verification declared"}, nil
	}

	res, err := p.runner.Run(ctx, procrun.Command{
		Path:    spec.Argv[0],
		Args:    spec.Argv[1:],
		Timeout: timeout,
	})
	if err != nil {
		return Verdict{}, err
	}
	if res.TimedOut {
		return Verdict{
			Detail: fmt.Sprintf("probe %s timed out after %s", spec.Argv[0], timeout),
			Result: &res,
		}, nil
	}
	if res.ExitCode != 0 {
		return Verdict{
			Detail: fmt.Sprintf("probe %s exited %d: %s", spec.Argv[0], res.ExitCode, res.Output()),
			Result: &res,
		}, nil
	}
	if spec.MinVersion != "" {
		return versionVerdict(spec, res)
	}
	return Verdict{Passed: true, Detail: "probe passed", Result: &res}, nil
}

var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)*`)

func versionVerdict(spec *stagedef.Probe, res procrun.Result) (Verdict, error) {
	minimum, err := goversion.NewVersion(spec.MinVersion)
	if err != nil {
		return Verdict{}, fmt.Errorf("parse min_version %q: %w", spec.MinVersion, err)
	}

	token := versionPattern.FindString(res.Stdout)
	if token == "" {
		token = versionPattern.FindString(res.Stderr)
	}
	if token == "" {
		return Verdict{
			Detail: fmt.Sprintf("probe %s reported no version string", spec.Argv[0]),
			Result: &res,
		}, nil
	}

	reported, err := goversion.NewVersion(token)
	if err != nil {
		return Verdict{
			Detail: fmt.Sprintf("probe %s reported unparseable version %q", spec.Argv[0], token),
			Result: &res,
		}, nil
	}
	if reported.LessThan(minimum) {
		return Verdict{
			Detail: fmt.Sprintf("version %s below required %s", reported, minimum),
			Result: &res,
		}, nil
	}
	return Verdict{
		Passed: true,
		Detail: fmt.Sprintf("version %s satisfies >= %s", reported, minimum),
		Result: &res,
	}, nil
}
