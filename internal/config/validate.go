package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateMatch(); err != nil {
		return err
	}
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported format %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	p := c.Pipeline
	switch p.BinarizeMode {
	case "hsv":
	case "segmentation":
		if c.Segmentation.ModelPath == "" {
			return errors.New("segmentation.model_path is required when pipeline.binarize_mode is \"segmentation\"")
		}
	default:
		return fmt.Errorf("pipeline.binarize_mode: unsupported mode %q", p.BinarizeMode)
	}
	switch p.EndpointStrategy {
	case "corners", "lines":
	default:
		return fmt.Errorf("pipeline.endpoint_strategy: unsupported strategy %q", p.EndpointStrategy)
	}
	if p.DenoiseSize < 0 {
		return errors.New("pipeline.denoise_size must be zero or positive")
	}
	return nil
}

func (c *Config) validateMatch() error {
	if c.Match.WeightShape <= 0 {
		return errors.New("match.weight_fs must be positive")
	}
	if c.Match.Digits > 15 {
		return fmt.Errorf("match.digit: %d exceeds float precision", c.Match.Digits)
	}
	return nil
}
