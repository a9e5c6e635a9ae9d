package features

import (
	"fmt"
	"strconv"
	"strings"
)

// Source is anything that yields a FeatureSet: the native struct or its
// comma-joined string form as kept by the store.
type Source interface {
	Decode() (FeatureSet, error)
}

// Encoded is the string-serialized FeatureSet. Sequences are comma-joined
// decimals.
type Encoded struct {
	ShapeX   string `json:"fs_x"`
	ShapeY   string `json:"fs_y"`
	Height   string `json:"fh"`
	Angle    string `json:"fa"`
	Position string `json:"fp"`
}

// Decode returns f unchanged.
func (f FeatureSet) Decode() (FeatureSet, error) {
	return f, nil
}

// Encode serializes the set to its string form.
func (f FeatureSet) Encode() Encoded {
	return Encoded{
		ShapeX:   JoinFloats(f.ShapeX),
		ShapeY:   JoinFloats(f.ShapeY),
		Height:   formatFloat(f.Height),
		Angle:    formatFloat(f.Angle),
		Position: fmt.Sprintf("%d,%d", f.Position[0], f.Position[1]),
	}
}

// Decode parses the string form.
func (e Encoded) Decode() (FeatureSet, error) {
	xs, err := SplitFloats(e.ShapeX)
	if err != nil {
		return FeatureSet{}, fmt.Errorf("fs_x: %w", err)
	}
	ys, err := SplitFloats(e.ShapeY)
	if err != nil {
		return FeatureSet{}, fmt.Errorf("fs_y: %w", err)
	}
	if len(xs) != len(ys) {
		return FeatureSet{}, fmt.Errorf("shape length mismatch: %d x values, %d y values", len(xs), len(ys))
	}
	fh, err := parseFloat(e.Height)
	if err != nil {
		return FeatureSet{}, fmt.Errorf("fh: %w", err)
	}
	fa, err := parseFloat(e.Angle)
	if err != nil {
		return FeatureSet{}, fmt.Errorf("fa: %w", err)
	}
	bits, err := SplitFloats(e.Position)
	if err != nil {
		return FeatureSet{}, fmt.Errorf("fp: %w", err)
	}
	if len(bits) != 2 {
		return FeatureSet{}, fmt.Errorf("fp: expected 2 values, got %d", len(bits))
	}
	return FeatureSet{
		ShapeX:   xs,
		ShapeY:   ys,
		Height:   fh,
		Angle:    fa,
		Position: Position{int(bits[0]), int(bits[1])},
	}, nil
}

// JoinFloats renders values as a comma-separated list using the shortest
// exact decimal form.
func JoinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ",")
}

// SplitFloats parses a comma-separated list. An empty string is an empty list.
func SplitFloats(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []float64{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := parseFloat(p)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
