package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// DebugContext writes numbered snapshots of intermediate images for one
// fragment. A nil *DebugContext is valid and discards everything.
type DebugContext struct {
	dir     string
	session string
	count   int
	log     zerolog.Logger
}

// NewDebugContext creates a per-fragment directory under root.
func NewDebugContext(root string, log zerolog.Logger) (*DebugContext, error) {
	session := uuid.NewString()
	dir := filepath.Join(root, session)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}
	return &DebugContext{dir: dir, session: session, log: log}, nil
}

// Dir returns the snapshot directory, or "" for a nil context.
func (d *DebugContext) Dir() string {
	if d == nil {
		return ""
	}
	return d.dir
}

// Session returns the snapshot session id.
func (d *DebugContext) Session() string {
	if d == nil {
		return ""
	}
	return d.session
}

// Save writes img as NN_name.jpg and advances the counter.
func (d *DebugContext) Save(name string, img gocv.Mat) {
	if d == nil {
		return
	}
	path := filepath.Join(d.dir, fmt.Sprintf("%02d_%s.jpg", d.count, name))
	d.count++
	if !gocv.IMWrite(path, img) {
		d.log.Warn().Str("path", path).Msg("failed to write debug image")
	}
}

// Annotate saves a BGR copy of img with draw applied to it.
func (d *DebugContext) Annotate(name string, img gocv.Mat, draw func(canvas *gocv.Mat)) {
	if d == nil {
		return
	}
	canvas := toBGR(img)
	defer canvas.Close()
	draw(&canvas)
	d.Save(name, canvas)
}

func toBGR(img gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	if img.Channels() == 1 {
		gocv.CvtColor(img, &out, gocv.ColorGrayToBGR)
	} else {
		img.CopyTo(&out)
	}
	return out
}
