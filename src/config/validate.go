package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDisplay(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return c.validateLog()
}

func (c *Config) validateDisplay() error {
	if c.Display.Seconds <= 0 {
		return errors.New("display.seconds must be positive")
	}
	if c.Display.Seconds > 120 {
		return errors.New("display.seconds must be at most 120")
	}
	if c.Display.MaxPointsPerLead != 0 && c.Display.MaxPointsPerLead < 100 {
		return errors.New("display.max_points_per_lead must be 0 (disabled) or at least 100")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.DebounceMS < 0 {
		return errors.New("watch.debounce_ms must not be negative")
	}
	return nil
}

func (c *Config) validateLog() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
}
