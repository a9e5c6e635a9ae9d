// Package matching scores candidate fingerprints against a query and picks
// the best fitting other half of a torn sheet.
package matching

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"tornedge/internal/dtw"
	"tornedge/internal/features"
)

var (
	// ErrZeroDistance is returned when two derivative curves align perfectly,
	// which leaves the reciprocal similarity undefined.
	ErrZeroDistance = errors.New("matching: zero curve distance")
	// ErrShortCurve is returned for shape curves with fewer than three points.
	ErrShortCurve = errors.New("matching: shape curve too short")
)

// Defaults for the tunable engine parameters.
const (
	DefaultShapeWeight = 1.0
	DefaultDigits      = 3
	DefaultRadius      = 1
)

// Candidate is one stored fingerprint. Candidates are scored in slice order
// and the first of equally scored candidates wins.
type Candidate struct {
	ID       string
	Features features.Source
}

// Score records how one admitted candidate fared.
type Score struct {
	ID         string  `json:"id"`
	SimilarX   float64 `json:"similarity_x"`
	SimilarY   float64 `json:"similarity_y"`
	Raw        float64 `json:"raw"`
	Normalized float64 `json:"normalized"`
	Weighted   float64 `json:"weighted"`
}

// Result is the outcome of a match. Found is false when no candidate passed
// the gates.
type Result struct {
	ID     string  `json:"id,omitempty"`
	Found  bool    `json:"found"`
	Scores []Score `json:"scores,omitempty"`
}

// Engine holds the tunable scoring parameters. It keeps no state between
// calls and is safe for concurrent use.
type Engine struct {
	ShapeWeight float64
	Digits      int
	Radius      int
	Log         zerolog.Logger
}

// NewEngine returns an engine with the given shape weight and rounding
// precision.
func NewEngine(shapeWeight float64, digits int, log zerolog.Logger) *Engine {
	return &Engine{
		ShapeWeight: shapeWeight,
		Digits:      digits,
		Radius:      DefaultRadius,
		Log:         log.With().Str("component", "matching").Logger(),
	}
}

// Match gates and scores every candidate and returns the one with the highest
// weighted, normalized shape similarity.
func (e *Engine) Match(query features.Source, candidates []Candidate, opts Options) (Result, error) {
	q, err := query.Decode()
	if err != nil {
		return Result{}, fmt.Errorf("decode query: %w", err)
	}

	e.Log.Info().
		Bool("use_fh", opts.UseHeight).
		Bool("use_fa", opts.UseAngle).
		Bool("use_fp", opts.UsePosition).
		Int("candidates", len(candidates)).
		Msg("matching")

	qx, qy := orient(q.ShapeX, q.ShapeY)
	qdx, qdy := Derivative(anchor(qx)), Derivative(anchor(qy))

	// A broken stored candidate is skipped so that it cannot block matches
	// for every other fragment. Zero distance still aborts.
	var scores []Score
	for _, cand := range candidates {
		c, err := cand.Features.Decode()
		if err != nil {
			e.Log.Warn().Err(err).Str("id", cand.ID).Msg("skipping undecodable candidate")
			continue
		}
		if !opts.admit(q, c) {
			continue
		}
		if len(qdx) == 0 || len(qdy) == 0 {
			return Result{}, fmt.Errorf("query: %w", ErrShortCurve)
		}

		sx, sy, err := e.similarity(qdx, qdy, c)
		if errors.Is(err, ErrShortCurve) {
			e.Log.Warn().Str("id", cand.ID).Int("points", len(c.ShapeX)).Msg("skipping candidate with short shape curve")
			continue
		}
		if err != nil {
			return Result{}, fmt.Errorf("candidate %s: %w", cand.ID, err)
		}
		e.Log.Debug().
			Str("id", cand.ID).
			Float64("similarity_x", sx).
			Float64("similarity_y", sy).
			Msg("shape similarity")
		scores = append(scores, Score{ID: cand.ID, SimilarX: sx, SimilarY: sy, Raw: sx + sy})
	}

	if len(scores) == 0 {
		e.Log.Warn().Msg("no candidate passed the gates")
		return Result{Found: false}, nil
	}

	raw := make([]float64, len(scores))
	for i, s := range scores {
		raw[i] = s.Raw
	}
	norm := Normalize(raw, e.Digits)

	best, bestScore := 0, 0.0
	for i := range scores {
		scores[i].Normalized = norm[i]
		scores[i].Weighted = e.ShapeWeight * norm[i]
		if bestScore < scores[i].Weighted {
			best, bestScore = i, scores[i].Weighted
		}
	}

	e.Log.Info().
		Floats64("shape_scores", raw).
		Floats64("shape_norm_scores", norm).
		Str("max_id", scores[best].ID).
		Float64("max_score", bestScore).
		Msg("match complete")

	return Result{ID: scores[best].ID, Found: true, Scores: scores}, nil
}

// similarity returns the reciprocal FastDTW distances of the x and y
// derivative curves.
func (e *Engine) similarity(qdx, qdy []float64, c features.FeatureSet) (float64, float64, error) {
	cdx, cdy := Derivative(anchor(c.ShapeX)), Derivative(anchor(c.ShapeY))
	if len(cdx) == 0 || len(cdy) == 0 {
		return 0, 0, ErrShortCurve
	}
	dx, _ := dtw.FastDTW(qdx, cdx, e.Radius)
	dy, _ := dtw.FastDTW(qdy, cdy, e.Radius)
	if dx == 0 || dy == 0 {
		return 0, 0, ErrZeroDistance
	}
	return 1 / dx, 1 / dy, nil
}
