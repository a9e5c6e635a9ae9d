package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server holds the HTTP command endpoint settings.
type Server struct {
	Bind         string `toml:"bind"`
	MaxUploadMiB int    `toml:"max_upload_mib"`
}

// Match tunes the matching engine.
type Match struct {
	WeightShape float64 `toml:"weight_fs"`
	Digits      int     `toml:"digit"`
	UseHeight   bool    `toml:"use_fh"`
	UseAngle    bool    `toml:"use_fa"`
	UsePosition bool    `toml:"use_fp"`
}

// Store locates the fingerprint database.
type Store struct {
	Path string `toml:"path"`
}

// Files locates shared files and chat logs.
type Files struct {
	Dir        string `toml:"dir"`
	ChatLogDir string `toml:"chat_log_dir"`
}

// Pipeline tunes fingerprint extraction.
type Pipeline struct {
	Width            int    `toml:"width"`
	Height           int    `toml:"height"`
	BinarizeMode     string `toml:"binarize_mode"`
	EndpointStrategy string `toml:"endpoint_strategy"`
	DenoiseSize      int    `toml:"denoise_size"`
	TraceStepLimit   int    `toml:"trace_step_limit"`
	Debug            bool   `toml:"debug"`
	DebugDir         string `toml:"debug_dir"`
}

// Segmentation locates the paper segmentation model.
type Segmentation struct {
	ModelPath    string `toml:"model_path"`
	LibraryPath  string `toml:"library_path"`
	InputSize    int    `toml:"input_size"`
	ChannelsLast bool   `toml:"channels_last"`
}

// Logging controls log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration.
type Config struct {
	Server       Server       `toml:"server"`
	Match        Match        `toml:"match"`
	Store        Store        `toml:"store"`
	Files        Files        `toml:"files"`
	Pipeline     Pipeline     `toml:"pipeline"`
	Segmentation Segmentation `toml:"segmentation"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the per-user config location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tornedge/config.toml")
}

// Load reads the config at path, or the default locations when path is
// empty. It returns the resolved path and whether a file was found.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("tornedge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// CreateSample writes the annotated sample configuration to path. An
// existing file is left untouched unless overwrite is set.
func CreateSample(path string, overwrite bool) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(expanded); err == nil {
			return fmt.Errorf("config %s already exists", expanded)
		}
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the directories the server writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Store.Path), c.Files.Dir, c.Files.ChatLogDir}
	if c.Pipeline.Debug {
		dirs = append(dirs, c.Pipeline.DebugDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
