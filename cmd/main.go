//go:build !js

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/richinsley/goshadersandbox/encoder"
	"github.com/richinsley/goshadersandbox/glfwcontext"
	"github.com/richinsley/goshadersandbox/gpu"
	"github.com/richinsley/goshadersandbox/graphics"
	"github.com/richinsley/goshadersandbox/headless"
	"github.com/richinsley/goshadersandbox/options"
	"github.com/richinsley/goshadersandbox/sandbox"
)

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// loadShaders reads the shader files named on the command line. Empty names
// leave the default shader in place.
func loadShaders(opts *options.SandboxOptions) (vertex, fragment string, err error) {
	if *opts.VertexFile != "" {
		b, err := os.ReadFile(*opts.VertexFile)
		if err != nil {
			return "", "", fmt.Errorf("failed to read vertex shader: %w", err)
		}
		vertex = string(b)
	}
	if *opts.FragmentFile != "" {
		b, err := os.ReadFile(*opts.FragmentFile)
		if err != nil {
			return "", "", fmt.Errorf("failed to read fragment shader: %w", err)
		}
		fragment = string(b)
	}
	return vertex, fragment, nil
}

func sandboxOptions(opts *options.SandboxOptions, vertex, fragment string, log *slog.Logger) []sandbox.Option {
	sbOpts := []sandbox.Option{
		sandbox.WithAutoplay(*opts.Autoplay),
		sandbox.WithPauseWhenHidden(*opts.HiddenPause),
		sandbox.WithDPR(*opts.DPR),
		sandbox.WithAntialias(*opts.Antialias),
		sandbox.WithPreserveDrawingBuffer(*opts.PreserveDraw),
		sandbox.WithUniforms(opts.Uniforms),
		sandbox.WithLogger(log),
		sandbox.WithOnError(func(err error) {
			log.Error("Shader error", "err", err)
		}),
	}
	if vertex != "" {
		sbOpts = append(sbOpts, sandbox.WithVertex(vertex))
	}
	if fragment != "" {
		sbOpts = append(sbOpts, sandbox.WithFragment(fragment))
	}
	return sbOpts
}

func runInteractive(win *glfwcontext.Window, opts *options.SandboxOptions, vertex, fragment string, log *slog.Logger) error {
	sb, err := sandbox.New(win, win, sandboxOptions(opts, vertex, fragment, log)...)
	if err != nil {
		return fmt.Errorf("failed to create sandbox: %w", err)
	}
	defer sb.Destroy()

	redraw := func() {
		if !sb.IsPlaying() {
			sb.Render()
			win.Present()
		}
	}
	win.Listen(graphics.EventResize, func(graphics.Event) { redraw() })

	win.RegisterKeyCallback(glfw.KeySpace, func() {
		sb.Toggle()
		log.Info("Toggled playback", "playing", sb.IsPlaying(), "time", sb.Engine().ClockState().Time)
	})
	win.RegisterKeyCallback(glfw.KeyR, func() {
		v, f, err := loadShaders(opts)
		if err != nil {
			log.Error("Reload failed", "err", err)
			return
		}
		if v == "" {
			v = sandbox.DefaultVertex(gpu.DetectVersion(f))
		}
		if f == "" {
			f = sandbox.DefaultFragment(gpu.DetectVersion(v))
		}
		sb.SetShader(v, f)
		log.Info("Reloaded shaders", "version", sb.WebGLVersion())
		redraw()
	})

	redraw()
	win.SetTitle(fmt.Sprintf("goshadersandbox (%s)", sb.WebGLVersion()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("Starting interactive render loop...")
	win.Run(ctx)
	return nil
}

func runRecord(canvas graphics.Canvas, host graphics.Host, opts *options.SandboxOptions, vertex, fragment string, log *slog.Logger) error {
	sbOpts := append(sandboxOptions(opts, vertex, fragment, log),
		sandbox.WithAutoplay(false),
		sandbox.WithPauseWhenHidden(false),
		sandbox.WithDPR(1),
	)
	sb, err := sandbox.New(canvas, host, sbOpts...)
	if err != nil {
		return fmt.Errorf("failed to create sandbox: %w", err)
	}
	defer sb.Destroy()

	rec, err := encoder.NewRecorder(encoder.ConfigFromOptions(opts), log)
	if err != nil {
		return fmt.Errorf("invalid recording options: %w", err)
	}
	log.Info("Starting offscreen render loop...")
	if err := rec.Record(encoder.FromSandbox(sb)); err != nil {
		return fmt.Errorf("offscreen rendering failed: %w", err)
	}
	log.Info("Successfully rendered", "output", *opts.OutputFile)
	return nil
}

func init() {
	runtime.LockOSThread()
}

func main() {
	opts := options.Register(flag.CommandLine)
	flag.Parse()

	if *opts.Help {
		fmt.Println("Shader sandbox viewer/recorder")
		flag.PrintDefaults()
		return
	}

	log := newLogger(*opts.LogLevel)
	slog.SetDefault(log)
	sandbox.SetLogger(log)

	// run returns only after its deferred cleanup has happened.
	if err := run(opts, log); err != nil {
		log.Error("goshadersandbox failed", "err", err)
		os.Exit(1)
	}
}

func run(opts *options.SandboxOptions, log *slog.Logger) error {
	vertex, fragment, err := loadShaders(opts)
	if err != nil {
		return err
	}

	if *opts.Record && *opts.Headless {
		surface, err := headless.NewSurface(*opts.Width, *opts.Height, log)
		if err != nil {
			return fmt.Errorf("failed to create headless surface: %w", err)
		}
		defer surface.Shutdown()
		return runRecord(surface, surface, opts, vertex, fragment, log)
	}

	if err := glfwcontext.InitGraphics(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	defer glfwcontext.TerminateGraphics()

	// A recording window stays hidden.
	win, err := glfwcontext.New(opts, !*opts.Record, log)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer win.Shutdown()

	if *opts.Record {
		return runRecord(win, win, opts, vertex, fragment, log)
	}
	return runInteractive(win, opts, vertex, fragment, log)
}
