// internal/perception/screen.go
package perception

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/odin/api/schemas"
)

// Source yields raw frames of the screen being automated.
type Source interface {
	Grab(ctx context.Context) (image.Image, error)
}

// Lifecycle is implemented by sources that hold resources during a run.
type Lifecycle interface {
	Open(ctx context.Context) error
	Close() error
}

// Screen is the capture collaborator: it grabs a frame, draws the grid when
// asked and encodes the result as PNG.
type Screen struct {
	source Source
	logger *zap.Logger
	now    func() time.Time
}

// NewScreen creates a Screen over source.
func NewScreen(source Source, logger *zap.Logger) *Screen {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Screen{source: source, logger: logger.Named("perception"), now: time.Now}
}

// Capture grabs and encodes one frame.
func (s *Screen) Capture(ctx context.Context, opts schemas.CaptureOptions) (*schemas.Screenshot, error) {
	if s.source == nil {
		return nil, errors.New("perception: no source configured")
	}
	frame, err := s.source.Grab(ctx)
	if err != nil {
		return nil, fmt.Errorf("grab frame: %w", err)
	}
	if frame == nil {
		return nil, errors.New("grab frame: source returned no image")
	}

	var img image.Image = frame
	gridStep := 0
	if opts.GridOverlay && opts.GridStep > 0 {
		img = DrawGrid(frame, opts.GridStep)
		gridStep = opts.GridStep
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}

	b := img.Bounds()
	shot := &schemas.Screenshot{
		ID:         uuid.NewString(),
		Data:       buf.Bytes(),
		MIMEType:   "image/png",
		Width:      b.Dx(),
		Height:     b.Dy(),
		GridStep:   gridStep,
		CapturedAt: s.now(),
	}
	s.logger.Debug("Captured screenshot.",
		zap.String("id", shot.ID),
		zap.Int("width", shot.Width),
		zap.Int("height", shot.Height),
		zap.Int("bytes", len(shot.Data)))
	return shot, nil
}

// Open forwards to the source when it has a lifecycle.
func (s *Screen) Open(ctx context.Context) error {
	if lc, ok := s.source.(Lifecycle); ok {
		return lc.Open(ctx)
	}
	return nil
}

// Close forwards to the source when it has a lifecycle.
func (s *Screen) Close() error {
	if lc, ok := s.source.(Lifecycle); ok {
		return lc.Close()
	}
	return nil
}
