// Command tornedge extracts tear fingerprints from photos of torn paper,
// stores them and matches the two halves of a sheet.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tornedge/internal/config"
	"tornedge/internal/endpoint"
	"tornedge/internal/logging"
	"tornedge/internal/matching"
	"tornedge/internal/pipeline"
	"tornedge/internal/preprocess"
	"tornedge/internal/segment"
	"tornedge/internal/store"
	"tornedge/internal/version"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFlag, levelFlag string
	ctx := &commandContext{configFlag: &configFlag, levelFlag: &levelFlag}

	rootCmd := &cobra.Command{
		Use:           "tornedge",
		Short:         "Match the halves of torn paper by their tear edge",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.HasParent() && cmd.Parent().Name() == "config" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&levelFlag, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(
		newExtractCommand(ctx),
		newRegisterCommand(ctx),
		newListCommand(ctx),
		newMatchCommand(ctx),
		newDeleteCommand(ctx),
		newServeCommand(ctx),
		newConfigCommand(ctx),
	)
	return rootCmd
}

type commandContext struct {
	configFlag *string
	levelFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
	logger     zerolog.Logger
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if lvl := strings.TrimSpace(*c.levelFlag); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: os.Stderr,
		})
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.Store.Path)
}

func (c *commandContext) engine() *matching.Engine {
	return matching.NewEngine(c.config.Match.WeightShape, c.config.Match.Digits, c.logger)
}

func (c *commandContext) matchOptions() matching.Options {
	m := c.config.Match
	return matching.Options{UseHeight: m.UseHeight, UseAngle: m.UseAngle, UsePosition: m.UsePosition}
}

// pipelineOptions maps the pipeline section onto extractor options.
func pipelineOptions(cfg *config.Config) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	mode, err := preprocess.ParseMode(cfg.Pipeline.BinarizeMode)
	if err != nil {
		return opts, err
	}
	strategy, err := endpoint.ParseStrategy(cfg.Pipeline.EndpointStrategy)
	if err != nil {
		return opts, err
	}
	opts.Mode = mode
	opts.Strategy = strategy
	opts.DenoiseSize = cfg.Pipeline.DenoiseSize
	opts.StepLimit = cfg.Pipeline.TraceStepLimit
	opts.MaxWidth = cfg.Pipeline.Width
	opts.MaxHeight = cfg.Pipeline.Height
	opts.Debug = cfg.Pipeline.Debug
	opts.DebugDir = cfg.Pipeline.DebugDir
	return opts, nil
}

// newExtractor builds the pipeline, loading the segmentation model when the
// configuration asks for it. The returned closer releases the model.
func (c *commandContext) newExtractor(debug bool) (*pipeline.Extractor, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	opts, err := pipelineOptions(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts.Debug = opts.Debug || debug

	closer := func() {}
	var seg preprocess.Segmenter
	if opts.Mode == preprocess.ModeSegmentation {
		model, err := segment.Open(segment.Config{
			ModelPath:    cfg.Segmentation.ModelPath,
			LibraryPath:  cfg.Segmentation.LibraryPath,
			InputSize:    cfg.Segmentation.InputSize,
			ChannelsLast: cfg.Segmentation.ChannelsLast,
		})
		if err != nil {
			return nil, nil, err
		}
		seg = model
		closer = model.Close
	}

	ex, err := pipeline.New(opts, seg, c.logger)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return ex, closer, nil
}
