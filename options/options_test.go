package options

import (
	"flag"
	"io"
	"testing"
)

func TestRegisterDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	o := Register(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if *o.Width != 1280 || *o.Height != 720 || *o.FPS != 60 || !*o.Autoplay || *o.Record {
		t.Errorf("unexpected defaults: %dx%d fps=%d autoplay=%v record=%v",
			*o.Width, *o.Height, *o.FPS, *o.Autoplay, *o.Record)
	}
	if len(o.Uniforms) != 0 {
		t.Errorf("uniforms = %v", o.Uniforms)
	}
}

func TestUniformFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	o := Register(fs)
	err := fs.Parse([]string{
		"-uniform", "u_speed=1.5",
		"-uniform", "u_color = 1, 0.5, 0",
		"-uniform", "u_rect=0,0,1,1",
		"-width", "640",
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.Uniforms["u_speed"] != 1.5 {
		t.Errorf("u_speed = %v", o.Uniforms["u_speed"])
	}
	if o.Uniforms["u_color"] != [3]float32{1, 0.5, 0} {
		t.Errorf("u_color = %v", o.Uniforms["u_color"])
	}
	if o.Uniforms["u_rect"] != [4]float32{0, 0, 1, 1} {
		t.Errorf("u_rect = %v", o.Uniforms["u_rect"])
	}
	if *o.Width != 640 {
		t.Errorf("width = %d", *o.Width)
	}
}

func TestUniformFlagsRejects(t *testing.T) {
	for _, arg := range []string{"novalue", "=1", "u_x=abc", "u_x=1,2,3,4,5"} {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		Register(fs)
		if err := fs.Parse([]string{"-uniform", arg}); err == nil {
			t.Errorf("-uniform %q accepted", arg)
		}
	}
}
