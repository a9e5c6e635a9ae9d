// Command extracttest runs the fingerprint pipeline on one photo with both
// endpoint strategies and prints the results side by side.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"tornedge/internal/endpoint"
	"tornedge/internal/imageio"
	"tornedge/internal/logging"
	"tornedge/internal/pipeline"
	"tornedge/internal/preprocess"
)

func main() {
	photo := flag.String("i", "", "Path to photo")
	denoise := flag.Int("denoise", 0, "Denoise kernel size (0 disables)")
	debug := flag.Bool("debug", false, "Write intermediate images")
	debugDir := flag.String("debug-dir", "debug", "Debug image root")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if *photo == "" {
		fmt.Println("Usage: extracttest -i <photo> [-denoise N] [-debug] [-v]")
		os.Exit(1)
	}

	data, err := os.ReadFile(*photo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read photo: %v\n", err)
		os.Exit(1)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, err := logging.New(logging.Options{Level: level, Format: "console", Output: os.Stderr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}

	for _, strategy := range []endpoint.Strategy{endpoint.StrategyCorners, endpoint.StrategyLines} {
		opts := pipeline.DefaultOptions()
		opts.Mode = preprocess.ModeHSV
		opts.Strategy = strategy
		opts.DenoiseSize = *denoise
		opts.Debug = *debug
		opts.DebugDir = *debugDir

		fmt.Printf("=== %s ===\n", strategy)
		ex, err := pipeline.New(opts, nil, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  setup: %v\n", err)
			continue
		}

		img, err := imageio.LoadWithin(data, opts.MaxWidth, opts.MaxHeight)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  decode: %v\n", err)
			os.Exit(1)
		}

		start := time.Now()
		res, err := ex.ExtractImage(context.Background(), img)
		if err != nil {
			fmt.Printf("  failed after %v: %v\n", time.Since(start).Round(time.Millisecond), err)
			continue
		}
		fs := res.Features
		fmt.Printf("  frame:    %dx%d\n", res.Frame.Width, res.Frame.Height)
		fmt.Printf("  ends:     left=(%.1f, %.1f) right=(%.1f, %.1f)\n",
			res.Ends.Left.X, res.Ends.Left.Y, res.Ends.Right.X, res.Ends.Right.Y)
		fmt.Printf("  contour:  %d points, %d shape samples\n", len(res.Contour), len(fs.ShapeX))
		fmt.Printf("  fh=%.3f fa=%.3f fp=%v\n", fs.Height, fs.Angle, fs.Position)
		if res.DebugDir != "" {
			fmt.Printf("  debug:    %s\n", res.DebugDir)
		}
		fmt.Printf("  elapsed:  %v\n", time.Since(start).Round(time.Millisecond))
	}
}
