package sandbox

import (
	"errors"
	"log/slog"

	"github.com/richinsley/goshadersandbox/gpu"
)

type config struct {
	vertex                string
	fragment              string
	autoplay              bool
	pauseWhenHidden       bool
	dpr                   float64 // 0 means auto
	preserveDrawingBuffer bool
	antialias             bool
	onError               func(error)
	onLoad                func()
	onBeforeRender        func(ClockState)
	onAfterRender         func(ClockState)
	uniforms              map[string]any
	logger                *slog.Logger
}

// Option configures a Sandbox.
type Option func(*config)

// WithVertex sets the initial vertex shader. Without WithFragment the
// default fragment shader of the same version is used.
func WithVertex(source string) Option {
	return func(c *config) { c.vertex = source }
}

// WithFragment sets the initial fragment shader. Without WithVertex the
// default vertex shader of the same version is used.
func WithFragment(source string) Option {
	return func(c *config) { c.fragment = source }
}

// WithShader sets both initial shaders.
func WithShader(vertex, fragment string) Option {
	return func(c *config) { c.vertex, c.fragment = vertex, fragment }
}

// WithAutoplay controls whether the animation starts on construction.
// Default true.
func WithAutoplay(autoplay bool) Option {
	return func(c *config) { c.autoplay = autoplay }
}

// WithPauseWhenHidden controls automatic pausing while the canvas is out of
// the viewport or the host is hidden. Default true.
func WithPauseWhenHidden(pause bool) Option {
	return func(c *config) { c.pauseWhenHidden = pause }
}

// WithDPR fixes the device pixel ratio. Values <= 0 select auto.
func WithDPR(dpr float64) Option {
	return func(c *config) {
		if dpr < 0 {
			dpr = 0
		}
		c.dpr = dpr
	}
}

// WithAutoDPR uses min(2, host device pixel ratio). This is the default.
func WithAutoDPR() Option {
	return func(c *config) { c.dpr = 0 }
}

func WithPreserveDrawingBuffer(preserve bool) Option {
	return func(c *config) { c.preserveDrawingBuffer = preserve }
}

func WithAntialias(antialias bool) Option {
	return func(c *config) { c.antialias = antialias }
}

// WithOnError receives every error the sandbox reports. Each one implements
// Error. The default logs it.
func WithOnError(fn func(error)) Option {
	return func(c *config) { c.onError = fn }
}

// WithOnLoad runs once after setup, before autoplay starts.
func WithOnLoad(fn func()) Option {
	return func(c *config) { c.onLoad = fn }
}

func WithOnBeforeRender(fn func(ClockState)) Option {
	return func(c *config) { c.onBeforeRender = fn }
}

func WithOnAfterRender(fn func(ClockState)) Option {
	return func(c *config) { c.onAfterRender = fn }
}

// WithUniforms sets initial uniform values. Repeated use merges.
func WithUniforms(values map[string]any) Option {
	return func(c *config) {
		if c.uniforms == nil {
			c.uniforms = make(map[string]any, len(values))
		}
		for k, v := range values {
			c.uniforms[k] = v
		}
	}
}

// WithLogger overrides the package logger for one sandbox.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// resolveOptions fills every field so the rest of the package never checks
// for unset values.
func resolveOptions(opts []Option) config {
	c := config{
		autoplay:        true,
		pauseWhenHidden: true,
		antialias:       true,
	}
	for _, opt := range opts {
		opt(&c)
	}

	if c.logger == nil {
		c.logger = Logger()
	}

	switch {
	case c.vertex == "" && c.fragment == "":
		c.vertex, c.fragment = DefaultVertex(gpu.Version1), DefaultFragment(gpu.Version1)
	case c.fragment == "":
		c.fragment = DefaultFragment(gpu.DetectVersion(c.vertex))
	case c.vertex == "":
		c.vertex = DefaultVertex(gpu.DetectVersion(c.fragment))
	}

	if c.onError == nil {
		log := c.logger
		c.onError = func(err error) {
			var code Code
			var se Error
			if errors.As(err, &se) {
				code = se.Code()
			}
			log.Error("sandbox: error (handle it with WithOnError)", "code", code, "err", err)
		}
	}
	if c.onLoad == nil {
		c.onLoad = func() {}
	}
	if c.uniforms == nil {
		c.uniforms = map[string]any{}
	}
	return c
}
