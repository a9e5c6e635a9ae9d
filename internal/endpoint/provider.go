package endpoint

import (
	"fmt"
	"strings"

	"tornedge/internal/alignment"
	"tornedge/pkg/geometry"
)

// Strategy names an endpoint provider.
type Strategy string

const (
	StrategyCorners Strategy = "corners"
	StrategyLines   Strategy = "lines"
)

// ParseStrategy parses a strategy name. The empty string selects corners.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyCorners:
		return StrategyCorners, nil
	case StrategyLines:
		return StrategyLines, nil
	}
	return "", fmt.Errorf("endpoint: unknown strategy %q", s)
}

// Ends holds the left and right tear end hints.
type Ends struct {
	Left, Right geometry.Point2D
}

// Provider produces tear end hints for a rectified fragment.
type Provider interface {
	Ends(c *alignment.Correction) (Ends, error)
}

// CornerProvider returns the original top corners found during alignment.
type CornerProvider struct{}

// Ends implements Provider.
func (CornerProvider) Ends(c *alignment.Correction) (Ends, error) {
	return Ends{Left: c.LeftEnd, Right: c.RightEnd}, nil
}

// LineProvider runs a Finder on the rectified image.
type LineProvider struct {
	Finder *Finder
}

// Ends implements Provider.
func (p LineProvider) Ends(c *alignment.Correction) (Ends, error) {
	f := p.Finder
	if f == nil {
		f = NewFinder()
	}
	d, err := f.Find(c.Image)
	if err != nil {
		return Ends{}, err
	}
	return Ends{Left: d.Left, Right: d.Right}, nil
}

// NewProvider returns the provider for a strategy.
func NewProvider(s Strategy) (Provider, error) {
	switch s {
	case StrategyCorners, "":
		return CornerProvider{}, nil
	case StrategyLines:
		return LineProvider{Finder: NewFinder()}, nil
	}
	return nil, fmt.Errorf("endpoint: unknown strategy %q", s)
}
