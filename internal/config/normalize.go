package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if c.Server.MaxUploadMiB <= 0 {
		c.Server.MaxUploadMiB = defaultMaxUploadMiB
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	if c.Segmentation.InputSize <= 0 {
		c.Segmentation.InputSize = defaultInputSize
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	return nil
}

func (c *Config) normalizePaths() error {
	paths := []struct {
		key   string
		value *string
		def   string
	}{
		{"store.path", &c.Store.Path, defaultStorePath},
		{"files.dir", &c.Files.Dir, defaultFilesDir},
		{"files.chat_log_dir", &c.Files.ChatLogDir, defaultChatLogDir},
		{"pipeline.debug_dir", &c.Pipeline.DebugDir, defaultDebugDir},
		{"segmentation.model_path", &c.Segmentation.ModelPath, ""},
		{"segmentation.library_path", &c.Segmentation.LibraryPath, ""},
	}
	for _, p := range paths {
		*p.value = strings.TrimSpace(*p.value)
		if *p.value == "" {
			*p.value = p.def
		}
		expanded, err := expandPath(*p.value)
		if err != nil {
			return fmt.Errorf("%s: %w", p.key, err)
		}
		*p.value = expanded
	}
	return nil
}

func (c *Config) normalizePipeline() {
	p := &c.Pipeline
	if p.Width <= 0 {
		p.Width = defaultWidth
	}
	if p.Height <= 0 {
		p.Height = defaultHeight
	}
	p.BinarizeMode = strings.ToLower(strings.TrimSpace(p.BinarizeMode))
	if p.BinarizeMode == "" {
		p.BinarizeMode = defaultBinarizeMode
	}
	p.EndpointStrategy = strings.ToLower(strings.TrimSpace(p.EndpointStrategy))
	if p.EndpointStrategy == "" {
		p.EndpointStrategy = defaultEndpointStrategy
	}
	if p.TraceStepLimit <= 0 {
		p.TraceStepLimit = defaultTraceStepLimit
	}
	if c.Match.Digits <= 0 {
		c.Match.Digits = defaultDigits
	}
}
