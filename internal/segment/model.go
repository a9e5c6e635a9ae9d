package segment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// DefaultInputSize is the square input resolution of the paper model.
const DefaultInputSize = 512

// Config locates the model and the ONNX Runtime shared library.
type Config struct {
	ModelPath    string
	LibraryPath  string
	InputSize    int
	ChannelsLast bool
}

var (
	envOnce sync.Once
	envErr  error
)

func initEnvironment(libraryPath string) error {
	envOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// Model is a loaded segmentation session. Inference is serialized, so one
// Model may be shared by concurrent pipelines.
type Model struct {
	cfg     Config
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	options *ort.SessionOptions
}

// Open loads the model described by cfg.
func Open(cfg Config) (*Model, error) {
	if cfg.InputSize <= 0 {
		cfg.InputSize = DefaultInputSize
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("segmentation model not found: %s", cfg.ModelPath)
	}
	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("read model info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.New("segmentation model has no inputs or outputs")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		options,
	)
	if err != nil {
		_ = options.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Model{cfg: cfg, session: session, options: options}, nil
}

// Close releases the ONNX session.
func (m *Model) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		_ = m.session.Destroy()
		m.session = nil
	}
	if m.options != nil {
		_ = m.options.Destroy()
		m.options = nil
	}
}

// Segment returns a width*height mask, 255 where the model sees paper.
func (m *Model) Segment(ctx context.Context, rgb []uint8, width, height int) ([]uint8, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := m.cfg.InputSize
	data, err := Prepare(rgb, width, height, size, m.cfg.ChannelsLast)
	if err != nil {
		return nil, err
	}

	shape := ort.NewShape(1, 3, int64(size), int64(size))
	if m.cfg.ChannelsLast {
		shape = ort.NewShape(1, int64(size), int64(size), 3)
	}
	input, err := ort.NewTensor(shape, data)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return nil, errors.New("segmentation model is closed")
	}
	outs := []ort.Value{nil}
	err = m.session.Run([]ort.Value{input}, outs)
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("run segmentation: %w", err)
	}
	if outs[0] == nil {
		return nil, fmt.Errorf("no output: %w", ErrBadOutput)
	}
	defer func() { _ = outs[0].Destroy() }()

	t, ok := outs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output is not float32: %w", ErrBadOutput)
	}
	mask, mh, mw, err := ForegroundMask(t.GetData(), t.GetShape(), m.cfg.ChannelsLast)
	if err != nil {
		return nil, err
	}
	return ResizeMask(mask, mw, mh, width, height), nil
}
