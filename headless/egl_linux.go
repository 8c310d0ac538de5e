//go:build linux

package headless

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/richinsley/goshadersandbox/glbackend"
	"github.com/richinsley/goshadersandbox/gpu"
	"github.com/richinsley/goshadersandbox/graphics"
	"github.com/richinsley/goshadersandbox/translator"
)

/*
#cgo LDFLAGS: -lEGL -lGLESv2
#include <EGL/egl.h>
#include <EGL/eglext.h>

#define MAX_DEVICES 32

static PFNEGLQUERYDEVICESEXTPROC query_devices_fn;
static PFNEGLGETPLATFORMDISPLAYEXTPROC platform_display_fn;

static void load_device_ext(void) {
    query_devices_fn = (PFNEGLQUERYDEVICESEXTPROC) eglGetProcAddress("eglQueryDevicesEXT");
    platform_display_fn = (PFNEGLGETPLATFORMDISPLAYEXTPROC) eglGetProcAddress("eglGetPlatformDisplayEXT");
}

static EGLint device_count(void) {
    EGLint n = 0;
    if (!query_devices_fn || !query_devices_fn(0, NULL, &n)) {
        return 0;
    }
    return n;
}

static EGLDisplay device_display(EGLint index) {
    EGLDeviceEXT devices[MAX_DEVICES];
    EGLint n = 0;
    if (!query_devices_fn || !platform_display_fn) {
        return EGL_NO_DISPLAY;
    }
    if (!query_devices_fn(MAX_DEVICES, devices, &n) || index >= n) {
        return EGL_NO_DISPLAY;
    }
    return platform_display_fn(EGL_PLATFORM_DEVICE_EXT, devices[index], NULL);
}
*/
import "C"

var (
	noDisplay = C.EGLDisplay(C.EGL_NO_DISPLAY)
	noContext = C.EGLContext(C.EGL_NO_CONTEXT)
	noSurface = C.EGLSurface(C.EGL_NO_SURFACE)
)

// Surface is an offscreen pbuffer that acts as both canvas and host. It
// never leaves the viewport, and frames run only when RunFrames is called.
type Surface struct {
	graphics.Listeners

	width, height int
	log           *slog.Logger
	start         time.Time
	frames        graphics.FrameQueue
	gl            *glbackend.Context

	display C.EGLDisplay
	context C.EGLContext
	surface C.EGLSurface
}

var (
	_ graphics.Canvas = (*Surface)(nil)
	_ graphics.Host   = (*Surface)(nil)
)

// openDisplay prefers a display bound to an enumerated GPU device, which is
// what works inside containers without a window system. Otherwise it uses the
// default display.
func openDisplay(log *slog.Logger) (C.EGLDisplay, error) {
	C.load_device_ext()
	n := int(C.device_count())
	for i := 0; i < n; i++ {
		if d := C.device_display(C.EGLint(i)); d != noDisplay {
			log.Info("headless: using EGL device", "device", i, "devices", n)
			return d, nil
		}
	}
	log.Warn("headless: no EGL device display, using the default display", "devices", n)
	if d := C.eglGetDisplay(C.EGLNativeDisplayType(C.EGL_DEFAULT_DISPLAY)); d != noDisplay {
		return d, nil
	}
	return noDisplay, errors.New("headless: no EGL display available")
}

// attribList terminates an EGL attribute list.
func attribList(pairs ...C.EGLint) []C.EGLint {
	return append(pairs, C.EGL_NONE)
}

// NewSurface creates a width×height RGBA pbuffer with an OpenGL ES 3 context.
func NewSurface(width, height int, log *slog.Logger) (*Surface, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Surface{
		width:   width,
		height:  height,
		log:     log,
		start:   time.Now(),
		display: noDisplay,
		context: noContext,
		surface: noSurface,
	}
	if err := s.init(); err != nil {
		s.Shutdown()
		return nil, err
	}
	return s, nil
}

func (s *Surface) init() error {
	display, err := openDisplay(s.log)
	if err != nil {
		return err
	}
	s.display = display

	var major, minor C.EGLint
	if C.eglInitialize(s.display, &major, &minor) == C.EGL_FALSE {
		return errors.New("headless: eglInitialize failed")
	}
	s.log.Info("headless: EGL ready", "version", fmt.Sprintf("%d.%d", major, minor),
		"width", s.width, "height", s.height)

	cfgAttrs := attribList(
		C.EGL_SURFACE_TYPE, C.EGL_PBUFFER_BIT,
		C.EGL_RENDERABLE_TYPE, C.EGL_OPENGL_ES3_BIT,
		C.EGL_RED_SIZE, 8, C.EGL_GREEN_SIZE, 8, C.EGL_BLUE_SIZE, 8, C.EGL_ALPHA_SIZE, 8,
		C.EGL_DEPTH_SIZE, 0, C.EGL_STENCIL_SIZE, 0,
	)
	var (
		cfg  C.EGLConfig
		nCfg C.EGLint
	)
	if C.eglChooseConfig(s.display, &cfgAttrs[0], &cfg, 1, &nCfg) == C.EGL_FALSE || nCfg == 0 {
		return errors.New("headless: no RGBA8 pbuffer config for OpenGL ES 3")
	}

	sizeAttrs := attribList(C.EGL_WIDTH, C.EGLint(s.width), C.EGL_HEIGHT, C.EGLint(s.height))
	if s.surface = C.eglCreatePbufferSurface(s.display, cfg, &sizeAttrs[0]); s.surface == noSurface {
		return fmt.Errorf("headless: cannot create %dx%d pbuffer", s.width, s.height)
	}

	ctxAttrs := attribList(C.EGL_CONTEXT_CLIENT_VERSION, 3)
	if s.context = C.eglCreateContext(s.display, cfg, noContext, &ctxAttrs[0]); s.context == noContext {
		return errors.New("headless: cannot create OpenGL ES 3 context")
	}
	return nil
}

// GetContext makes the EGL context current and wraps it. Shaders are
// translated to ESSL since the context is OpenGL ES 3.
func (s *Surface) GetContext(version gpu.Version, attrs graphics.ContextAttributes) (gpu.Context, error) {
	if s.gl != nil {
		return s.gl, nil
	}
	if C.eglMakeCurrent(s.display, s.surface, s.surface, s.context) == C.EGL_FALSE {
		return nil, errors.New("headless: eglMakeCurrent failed")
	}
	ctx, err := glbackend.New(version, translator.TranslateES, s.log)
	if err != nil {
		return nil, err
	}
	s.gl = ctx
	return ctx, nil
}

func (s *Surface) ClientSize() (float64, float64)   { return float64(s.width), float64(s.height) }
func (s *Surface) ViewportSize() (float64, float64) { return s.ClientSize() }
func (s *Surface) DevicePixelRatio() float64        { return 1 }
func (s *Surface) Hidden() bool                     { return false }

func (s *Surface) BoundingRect() graphics.Rect {
	return graphics.Rect{Right: float64(s.width), Bottom: float64(s.height)}
}

func (s *Surface) RequestAnimationFrame(fn func(float64)) graphics.FrameID { return s.frames.Add(fn) }
func (s *Surface) CancelAnimationFrame(id graphics.FrameID)                { s.frames.Cancel(id) }

// Now is seconds since the surface was created.
func (s *Surface) Now() float64 { return time.Since(s.start).Seconds() }

// RunFrames runs the pending animation frames and swaps. It returns how many
// frames ran.
func (s *Surface) RunFrames() int {
	n := s.frames.Run(s.Now())
	if n > 0 {
		s.SwapBuffers()
	}
	return n
}

// Shutdown releases the context, the pbuffer and the display. It is safe to
// call more than once.
func (s *Surface) Shutdown() {
	s.frames.Clear()
	if s.display == noDisplay {
		return
	}
	C.eglMakeCurrent(s.display, noSurface, noSurface, noContext)
	if s.context != noContext {
		C.eglDestroyContext(s.display, s.context)
		s.context = noContext
	}
	if s.surface != noSurface {
		C.eglDestroySurface(s.display, s.surface)
		s.surface = noSurface
	}
	C.eglTerminate(s.display)
	s.display = noDisplay
	s.gl = nil
	s.log.Info("headless: EGL released")
}

func (s *Surface) SwapBuffers() {
	if s.display != noDisplay {
		C.eglSwapBuffers(s.display, s.surface)
	}
}
