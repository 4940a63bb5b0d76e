package config

const (
	defaultStateDir              = "~/.local/share/sdrprep"
	defaultLogDir                = "~/.local/share/sdrprep/logs"
	defaultScratchDir            = "~/.local/share/sdrprep/scratch"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultDetectorPollMS        = 500
	defaultDetectorTimeoutSec    = 30
	defaultBackoffBaseMS         = 1000
	defaultBackoffCapMS          = 30000
	defaultCommandTimeoutSeconds = 900
	defaultNotifyTimeoutSeconds  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
			ScratchDir: defaultScratchDir,
		},
		Detector: Detector{
			PollIntervalMS: defaultDetectorPollMS,
			TimeoutSeconds: defaultDetectorTimeoutSec,
			NetlinkEvents:  true,
		},
		Retry: Retry{
			BackoffBaseMS: defaultBackoffBaseMS,
			BackoffCapMS:  defaultBackoffCapMS,
		},
		Runner: Runner{
			DefaultTimeoutSeconds: defaultCommandTimeoutSeconds,
		},
		Notify: Notify{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
