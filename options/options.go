package options

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// SandboxOptions holds the command-line configuration. Fields are pointers
// so they can be bound directly to flag values.
type SandboxOptions struct {
	VertexFile   *string
	FragmentFile *string
	Help         *bool

	Width        *int
	Height       *int
	DPR          *float64 // <= 0 selects the window's pixel ratio
	Autoplay     *bool
	HiddenPause  *bool
	Antialias    *bool
	PreserveDraw *bool

	Record     *bool
	Headless   *bool
	Duration   *float64
	FPS        *int
	OutputFile *string
	FFmpegPath *string
	Codec      *string

	LogLevel *string
	Uniforms UniformFlags
}

// Register binds every option to fs.
func Register(fs *flag.FlagSet) *SandboxOptions {
	o := &SandboxOptions{
		VertexFile:   fs.String("vertex", "", "Vertex shader file (default shader when empty)"),
		FragmentFile: fs.String("fragment", "", "Fragment shader file (default shader when empty)"),
		Help:         fs.Bool("help", false, "Show help message"),

		Width:        fs.Int("width", 1280, "Window or output width in pixels"),
		Height:       fs.Int("height", 720, "Window or output height in pixels"),
		DPR:          fs.Float64("dpr", 0, "Device pixel ratio, 0 for automatic"),
		Autoplay:     fs.Bool("autoplay", true, "Start the animation immediately"),
		HiddenPause:  fs.Bool("hidden-pause", true, "Pause while the window is minimized"),
		Antialias:    fs.Bool("antialias", true, "Request a multisampled framebuffer"),
		PreserveDraw: fs.Bool("preserve-drawing-buffer", false, "Keep the drawing buffer between frames"),

		Record:     fs.Bool("record", false, "Render offscreen and encode to -output"),
		Headless:   fs.Bool("headless", false, "Record through an EGL pbuffer instead of a hidden window (Linux)"),
		Duration:   fs.Float64("duration", 10.0, "Duration to record in seconds"),
		FPS:        fs.Int("fps", 60, "Frames per second for recording"),
		OutputFile: fs.String("output", "output.mp4", "Output file name for recording"),
		FFmpegPath: fs.String("ffmpeg", "", "Path to ffmpeg executable"),
		Codec:      fs.String("codec", "libx264", "Video codec for recording"),

		LogLevel: fs.String("log-level", "info", "Log level: debug, info, warn or error"),
	}
	fs.Var(&o.Uniforms, "uniform", "Uniform as name=v1[,v2...] (repeatable)")
	return o
}

// UniformFlags collects repeated -uniform flags.
type UniformFlags map[string]any

func (u *UniformFlags) String() string {
	if u == nil || *u == nil {
		return ""
	}
	parts := make([]string, 0, len(*u))
	for name, v := range *u {
		parts = append(parts, fmt.Sprintf("%s=%v", name, v))
	}
	return strings.Join(parts, " ")
}

// Set parses "name=1.5" into a float64 and "name=1,0,0" into a float32
// vector of length 2, 3 or 4.
func (u *UniformFlags) Set(value string) error {
	name, list, ok := strings.Cut(value, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("uniform %q: want name=value", value)
	}
	fields := strings.Split(list, ",")
	nums := make([]float32, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return fmt.Errorf("uniform %q: %w", name, err)
		}
		nums[i] = float32(n)
	}

	var v any
	switch len(nums) {
	case 1:
		v = float64(nums[0])
	case 2:
		v = [2]float32(nums)
	case 3:
		v = [3]float32(nums)
	case 4:
		v = [4]float32(nums)
	default:
		return fmt.Errorf("uniform %q: %d components, want 1 to 4", name, len(nums))
	}
	if *u == nil {
		*u = make(UniformFlags)
	}
	(*u)[name] = v
	return nil
}
