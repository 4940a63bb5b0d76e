package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDetector(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateRunner(); err != nil {
		return err
	}
	if err := c.validateNotify(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDetector() error {
	if c.Detector.PollIntervalMS <= 0 {
		return errors.New("detector.poll_interval_ms must be positive")
	}
	if c.Detector.TimeoutSeconds <= 0 {
		return errors.New("detector.timeout_seconds must be positive")
	}
	if c.DeviceTimeout() < c.DevicePollInterval() {
		return errors.New("detector.timeout_seconds must cover at least one poll interval")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.BackoffBaseMS <= 0 {
		return errors.New("retry.backoff_base_ms must be positive")
	}
	if c.Retry.BackoffCapMS < c.Retry.BackoffBaseMS {
		return errors.New("retry.backoff_cap_ms must be at least retry.backoff_base_ms")
	}
	return nil
}

func (c *Config) validateRunner() error {
	if c.Runner.DefaultTimeoutSeconds <= 0 {
		return errors.New("runner.default_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotify() error {
	if c.Notify.NtfyTopic != "" && c.Notify.RequestTimeoutSeconds <= 0 {
		return errors.New("notify.request_timeout_seconds must be positive when a topic is set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
