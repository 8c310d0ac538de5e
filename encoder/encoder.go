// Package encoder records a sandbox offline: every frame is rendered at an
// exact timestamp, read back and piped to ffmpeg as raw RGBA.
package encoder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/richinsley/goshadersandbox/options"
	"github.com/richinsley/goshadersandbox/sandbox"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Frame is a single rendered video frame's data, ready for encoding.
type Frame struct {
	Pixels []byte
	PTS    int64
}

// Source renders frames on demand.
type Source interface {
	RenderAt(t float64)
	// ReadPixels returns RGBA rows, bottom row first.
	ReadPixels() []byte
	Resolution() (width, height int)
}

type sandboxSource struct{ sb *sandbox.Sandbox }

func (s sandboxSource) RenderAt(t float64)     { s.sb.RenderAt(t) }
func (s sandboxSource) ReadPixels() []byte     { return s.sb.ReadPixels() }
func (s sandboxSource) Resolution() (int, int) { return s.sb.Resolution() }

// FromSandbox adapts a paused sandbox as a Source.
func FromSandbox(sb *sandbox.Sandbox) Source { return sandboxSource{sb} }

// Config describes one recording.
type Config struct {
	Duration   float64
	FPS        int
	OutputFile string
	FFmpegPath string
	Codec      string
}

// ConfigFromOptions reads the recording flags.
func ConfigFromOptions(o *options.SandboxOptions) Config {
	return Config{
		Duration:   *o.Duration,
		FPS:        *o.FPS,
		OutputFile: *o.OutputFile,
		FFmpegPath: *o.FFmpegPath,
		Codec:      *o.Codec,
	}
}

func (c Config) validate() error {
	switch {
	case c.FPS <= 0:
		return fmt.Errorf("invalid frame rate %d", c.FPS)
	case c.Duration <= 0:
		return fmt.Errorf("invalid duration %v", c.Duration)
	case c.OutputFile == "":
		return errors.New("no output file")
	}
	return nil
}

// TotalFrames is the number of frames a recording produces.
func (c Config) TotalFrames() int {
	return int(c.Duration * float64(c.FPS))
}

// Recorder renders a Source frame by frame and encodes the result.
type Recorder struct {
	cfg Config
	log *slog.Logger

	// encode consumes the raw stream; it runs ffmpeg unless replaced.
	encode func(in io.Reader, width, height int) error
}

func NewRecorder(cfg Config, log *slog.Logger) (*Recorder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Recorder{cfg: cfg, log: log}
	r.encode = r.runFFmpeg
	return r, nil
}

func (r *Recorder) getArgs(width, height int) (inputArgs ffmpeg.KwArgs, outputArgs ffmpeg.KwArgs) {
	inputArgs = ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", width, height),
		"r":       r.cfg.FPS,
	}

	outputArgs = ffmpeg.KwArgs{
		// Rows arrive bottom-up; yuv420p needs even dimensions.
		"vf":      "vflip,scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"pix_fmt": "yuv420p",
		"c:v":     videoCodec(r.cfg.Codec, runtime.GOOS),
	}
	if r.cfg.Codec == "hevc" && strings.HasSuffix(r.cfg.OutputFile, ".mp4") {
		outputArgs["tag:v"] = "hvc1"
	}
	return
}

// videoCodec maps the generic names "h264" and "hevc" to an encoder for
// goos and passes any other name through.
func videoCodec(codec, goos string) string {
	switch codec {
	case "", "h264":
		if goos == "darwin" {
			return "h264_videotoolbox"
		}
		return "libx264"
	case "hevc":
		if goos == "darwin" {
			return "hevc_videotoolbox"
		}
		return "libx265"
	}
	return codec
}

func (r *Recorder) runFFmpeg(in io.Reader, width, height int) error {
	inputArgs, outputArgs := r.getArgs(width, height)
	r.log.Info("encoder: starting ffmpeg", "output", r.cfg.OutputFile, "codec", outputArgs["c:v"])

	ffmpegCmd := ffmpeg.Input("pipe:", inputArgs).
		Output(r.cfg.OutputFile, outputArgs).
		OverWriteOutput().WithInput(in).ErrorToStdOut()

	if r.cfg.FFmpegPath != "" {
		ffmpegCmd = ffmpegCmd.SetFfmpegPath(r.cfg.FFmpegPath)
	}
	return ffmpegCmd.Run()
}

// runEncoder is the consumer. It feeds frames from frameChan to the encoder
// until the channel closes.
func (r *Recorder) runEncoder(width, height int, frameChan <-chan *Frame, doneChan chan<- error) {
	pipeReader, pipeWriter := io.Pipe()

	errc := make(chan error, 1)
	go func() {
		err := r.encode(pipeReader, width, height)
		// Unblock the writer if the encoder stopped reading early.
		pipeReader.CloseWithError(io.ErrClosedPipe)
		errc <- err
	}()

	var writeErr error
	for frame := range frameChan {
		if writeErr != nil {
			continue
		}
		if _, err := pipeWriter.Write(frame.Pixels); err != nil {
			writeErr = fmt.Errorf("failed to write frame %d: %w", frame.PTS, err)
			r.log.Error("encoder: write failed", "frame", frame.PTS, "err", err)
		}
	}
	pipeWriter.Close()

	if err := <-errc; err != nil {
		doneChan <- fmt.Errorf("encoder failed: %w", err)
		return
	}
	doneChan <- writeErr
}

// Record renders cfg.TotalFrames frames at i/FPS seconds and waits for the
// encoder. It must run on the goroutine that owns the source's context.
func (r *Recorder) Record(src Source) error {
	width, height := src.Resolution()
	frameSize := width * height * 4
	total := r.cfg.TotalFrames()
	timeStep := 1.0 / float64(r.cfg.FPS)

	r.log.Info("encoder: recording", "frames", total, "width", width, "height", height, "fps", r.cfg.FPS)

	frameChan := make(chan *Frame, 4)
	encoderDoneChan := make(chan error, 1)
	go r.runEncoder(width, height, frameChan, encoderDoneChan)

	var renderErr error
	for i := 0; i < total; i++ {
		src.RenderAt(float64(i) * timeStep)
		pixels := src.ReadPixels()
		if len(pixels) != frameSize {
			renderErr = fmt.Errorf("frame %d: read %d bytes, want %d", i, len(pixels), frameSize)
			break
		}
		frameChan <- &Frame{Pixels: pixels, PTS: int64(i)}
	}
	close(frameChan)

	if err := <-encoderDoneChan; err != nil {
		return err
	}
	if renderErr != nil {
		return renderErr
	}
	r.log.Info("encoder: recording complete", "output", r.cfg.OutputFile)
	return nil
}
