// Package pipeline turns a photo of a torn paper fragment into a tear
// fingerprint by chaining the preprocessing, alignment, endpoint, tracing
// and feature stages.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"tornedge/internal/alignment"
	"tornedge/internal/endpoint"
	"tornedge/internal/features"
	"tornedge/internal/imageio"
	"tornedge/internal/preprocess"
	"tornedge/internal/trace"
	"tornedge/pkg/colorutil"
	"tornedge/pkg/geometry"
)

// Options configures an Extractor.
type Options struct {
	Smooth      preprocess.SmoothParams
	Mode        preprocess.Mode
	DenoiseSize int // close kernel applied after the largest region; 0 skips
	Align       alignment.Params
	Edges       preprocess.EdgeParams
	Strategy    endpoint.Strategy
	StepLimit   int
	MaxWidth    int // photos are scaled down to fit MaxWidth x MaxHeight
	MaxHeight   int
	Debug       bool
	DebugDir    string
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	return Options{
		Smooth:    preprocess.DefaultSmoothParams(),
		Mode:      preprocess.ModeHSV,
		Align:     alignment.DefaultParams(),
		Edges:     preprocess.DefaultEdgeParams(),
		Strategy:  endpoint.StrategyCorners,
		StepLimit: trace.DefaultStepLimit,
		MaxWidth:  imageio.MaxWidth,
		MaxHeight: imageio.MaxHeight,
		DebugDir:  "debug",
	}
}

// Result is the outcome of one extraction.
type Result struct {
	Features features.FeatureSet
	Contour  trace.Contour
	Ends     endpoint.Ends
	Frame    Frame
	DebugDir string
}

// Extractor runs the fingerprint pipeline. It holds no per-fragment state,
// so one Extractor may serve concurrent calls as long as its Segmenter is
// safe for concurrent use.
type Extractor struct {
	opts      Options
	binarizer *preprocess.Binarizer
	corrector *alignment.Corrector
	provider  endpoint.Provider
	walker    trace.Walker
	log       zerolog.Logger
}

// New builds an extractor. seg may be nil unless Mode is segmentation.
func New(opts Options, seg preprocess.Segmenter, log zerolog.Logger) (*Extractor, error) {
	if opts.Mode == preprocess.ModeSegmentation && seg == nil {
		return nil, fmt.Errorf("pipeline: segmentation mode needs a model")
	}
	if opts.MaxWidth <= 0 || opts.MaxHeight <= 0 {
		opts.MaxWidth, opts.MaxHeight = imageio.MaxWidth, imageio.MaxHeight
	}
	provider, err := endpoint.NewProvider(opts.Strategy)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		opts:      opts,
		binarizer: preprocess.NewBinarizer(opts.Mode, seg),
		corrector: alignment.NewCorrector(opts.Align),
		provider:  provider,
		walker:    trace.Walker{StepLimit: opts.StepLimit},
		log:       log.With().Str("component", "pipeline").Logger(),
	}, nil
}

// ExtractPhoto decodes an uploaded photo, scales it to the working size and
// returns its fingerprint.
func (e *Extractor) ExtractPhoto(ctx context.Context, data []byte) (features.FeatureSet, error) {
	img, err := imageio.LoadWithin(data, e.opts.MaxWidth, e.opts.MaxHeight)
	if err != nil {
		return features.FeatureSet{}, err
	}
	res, err := e.ExtractImage(ctx, img)
	if err != nil {
		return features.FeatureSet{}, err
	}
	return res.Features, nil
}

// ExtractImage converts img to a BGR matrix and runs Extract.
func (e *Extractor) ExtractImage(ctx context.Context, img image.Image) (*Result, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert photo: %w", err)
	}
	defer mat.Close()
	return e.Extract(ctx, mat)
}

// Extract runs every stage on a BGR photo.
func (e *Extractor) Extract(ctx context.Context, src gocv.Mat) (*Result, error) {
	start := time.Now()
	frame := Frame{Width: src.Cols(), Height: src.Rows()}
	rate := frame.DrawingRate()

	var dbg *DebugContext
	if e.opts.Debug {
		var err error
		if dbg, err = NewDebugContext(e.opts.DebugDir, e.log); err != nil {
			return nil, err
		}
	}
	log := e.log.With().Str("session", dbg.Session()).Logger()
	dbg.Save("original", src)

	smoothed, err := preprocess.Smooth(src, e.opts.Smooth)
	if err != nil {
		return nil, fmt.Errorf("smooth: %w", err)
	}
	defer smoothed.Close()
	dbg.Save("smoothed", smoothed)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	binary, err := e.binarizer.Binarize(ctx, smoothed)
	if err != nil {
		return nil, fmt.Errorf("binarize: %w", err)
	}
	defer binary.Close()
	dbg.Save("binarized", binary)

	region, err := preprocess.LargestRegion(binary)
	if err != nil {
		return nil, fmt.Errorf("extract paper region: %w", err)
	}
	defer region.Close()
	if e.opts.DenoiseSize > 0 {
		denoised := preprocess.Denoise(region, e.opts.DenoiseSize)
		region.Close()
		region = denoised
	}
	dbg.Save("largest_region", region)

	corr, err := e.corrector.Correct(region)
	if err != nil {
		return nil, fmt.Errorf("correct angle: %w", err)
	}
	defer corr.Close()
	dbg.Annotate("angle_corrected", region, func(c *gocv.Mat) {
		DrawPolygon(c, corr.Polygon, colorutil.Orange, 2*rate)
		DrawPoints(c, corr.Source[:], 8*rate, colorutil.Red)
		DrawPoints(c, corr.Target[:], 8*rate, colorutil.Green)
	})
	dbg.Save("rectified", corr.Image)

	ends, err := e.ends(corr, dbg, rate)
	if err != nil {
		return nil, fmt.Errorf("find tear ends: %w", err)
	}
	log.Debug().
		Float64("left_x", ends.Left.X).Float64("left_y", ends.Left.Y).
		Float64("right_x", ends.Right.X).Float64("right_y", ends.Right.Y).
		Str("strategy", string(e.opts.Strategy)).
		Msg("tear ends")

	edges := preprocess.DetectEdges(corr.Image, e.opts.Edges)
	defer edges.Close()
	dbg.Save("edges", edges)

	grid := preprocess.NewMatGrid(edges)
	contour, err := e.walker.Trace(grid, ends.Left, ends.Right)
	if err != nil {
		return nil, fmt.Errorf("trace tear: %w", err)
	}
	dbg.Annotate("tear", corr.Image, func(c *gocv.Mat) {
		DrawContour(c, contour, colorutil.Red, rate)
		DrawPoints(c, []geometry.Point2D{ends.Left, ends.Right}, 10*rate, colorutil.Azure)
	})

	fs, err := features.Extract(contour, grid)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	annotateFeatures(dbg, corr.Image, contour, grid, rate)

	log.Info().
		Int("width", frame.Width).
		Int("height", frame.Height).
		Int("contour_len", len(contour)).
		Float64("fh", fs.Height).
		Float64("fa", fs.Angle).
		Ints("fp", fs.Position[:]).
		Dur("elapsed", time.Since(start)).
		Msg("fingerprint extracted")

	return &Result{
		Features: fs,
		Contour:  contour,
		Ends:     ends,
		Frame:    frame,
		DebugDir: dbg.Dir(),
	}, nil
}

// annotateFeatures saves one snapshot per feature showing the points it was
// computed from.
func annotateFeatures(dbg *DebugContext, img gocv.Mat, c trace.Contour, edges trace.Grid, rate int) {
	if dbg == nil || len(c) == 0 {
		return
	}
	lowest, highest := features.Lowest(c), features.Highest(c)
	middle := c[len(c)/2]
	leftmost := features.LeftmostInRow(edges, lowest)
	left, right := c[0], c[len(c)-1]

	dbg.Annotate("shape_feature", img, func(m *gocv.Mat) {
		DrawContour(m, c, colorutil.Red, rate)
	})
	dbg.Annotate("height_feature", img, func(m *gocv.Mat) {
		DrawContour(m, c, colorutil.Black, rate)
		DrawPoints(m, []geometry.Point2D{lowest.ToFloat(), highest.ToFloat()}, 8*rate, colorutil.Yellow)
	})
	dbg.Annotate("angle_feature", img, func(m *gocv.Mat) {
		DrawContour(m, c, colorutil.Black, rate)
		gocv.Line(m, middle.ImagePoint(), leftmost.ImagePoint(), colorutil.Violet, 2*rate)
		gocv.Line(m, middle.ImagePoint(), lowest.ImagePoint(), colorutil.Violet, 2*rate)
		DrawPoints(m, []geometry.Point2D{middle.ToFloat(), leftmost.ToFloat(), lowest.ToFloat()}, 8*rate, colorutil.Yellow)
	})
	dbg.Annotate("position_feature", img, func(m *gocv.Mat) {
		DrawContour(m, c, colorutil.Black, rate)
		DrawPoints(m, []geometry.Point2D{left.ToFloat(), right.ToFloat()}, 8*rate, colorutil.Green)
		DrawPoints(m, []geometry.Point2D{lowest.ToFloat(), highest.ToFloat()}, 8*rate, colorutil.Violet)
	})
}

// ends asks the configured provider for the tear ends. With debugging on
// and the line strategy selected, the full detection is drawn.
func (e *Extractor) ends(corr *alignment.Correction, dbg *DebugContext, rate int) (endpoint.Ends, error) {
	lp, ok := e.provider.(endpoint.LineProvider)
	if !ok || dbg == nil {
		return e.provider.Ends(corr)
	}
	d, err := lp.Finder.Find(corr.Image)
	if d != nil {
		dbg.Annotate("tear_ends_detected", corr.Image, func(c *gocv.Mat) {
			DrawLines(c, d.Vertical, colorutil.Amber, rate)
			DrawLines(c, d.LeftLines, colorutil.Azure, rate)
			DrawLines(c, d.RightLines, colorutil.Azure, rate)
			DrawPoints(c, d.LeftCandidates, 5*rate, colorutil.Amber)
			DrawPoints(c, d.RightCandidates, 5*rate, colorutil.Amber)
		})
	}
	if err != nil {
		return endpoint.Ends{}, err
	}
	return endpoint.Ends{Left: d.Left, Right: d.Right}, nil
}
