//go:build !linux

package headless

import (
	"errors"
	"log/slog"

	"github.com/richinsley/goshadersandbox/gpu"
	"github.com/richinsley/goshadersandbox/graphics"
)

// ErrUnsupported is returned by NewSurface outside Linux.
var ErrUnsupported = errors.New("headless: EGL rendering is only available on linux")

// Surface is unavailable on this platform.
type Surface struct {
	graphics.Listeners
}

func NewSurface(width, height int, log *slog.Logger) (*Surface, error) {
	return nil, ErrUnsupported
}

func (s *Surface) GetContext(gpu.Version, graphics.ContextAttributes) (gpu.Context, error) {
	return nil, ErrUnsupported
}

func (s *Surface) ClientSize() (float64, float64)                       { return 0, 0 }
func (s *Surface) ViewportSize() (float64, float64)                     { return 0, 0 }
func (s *Surface) DevicePixelRatio() float64                            { return 1 }
func (s *Surface) Hidden() bool                                         { return false }
func (s *Surface) BoundingRect() graphics.Rect                          { return graphics.Rect{} }
func (s *Surface) RequestAnimationFrame(func(float64)) graphics.FrameID { return 0 }
func (s *Surface) CancelAnimationFrame(graphics.FrameID)                {}
func (s *Surface) Now() float64                                         { return 0 }
func (s *Surface) RunFrames() int                                       { return 0 }
func (s *Surface) Shutdown()                                            {}
func (s *Surface) SwapBuffers()                                         {}
