package sandbox

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshadersandbox/gpu"
	"github.com/richinsley/goshadersandbox/gpu/gputest"
)

func TestInferKind(t *testing.T) {
	tests := []struct {
		value any
		want  Kind
	}{
		{3, KindFloat},
		{float32(0.5), KindFloat},
		{2.5, KindFloat},
		{uint8(7), KindFloat},
		{true, KindBool},
		{Int(4), KindInt},
		{[2]float32{1, 2}, KindVec2},
		{[3]float64{1, 2, 3}, KindVec3},
		{mgl32.Vec4{1, 2, 3, 4}, KindVec4},
		{[4]float32{1, 0, 0, 1}, KindVec4},
		{mgl32.Ident2(), KindMat2},
		{[9]float32{}, KindMat3},
		{mgl32.Ident3(), KindMat3},
		{[16]float64{}, KindMat4},
		{mgl32.Ident4(), KindMat4},
		{[]float32{1, 2, 3, 4, 5}, KindFloatArray},
		{[]float64{1}, KindFloatArray},
		{[][2]float32{{1, 2}}, KindVec2Array},
		{[]mgl32.Vec3{{1, 0, 0}}, KindVec3Array},
		{[][4]float64{{1, 2, 3, 4}}, KindVec4Array},
		{[][]float64{{1, 0, 0}, {0, 1, 0}}, KindVec3Array},
		{[][]float32{{1, 2}, {3, 4}}, KindVec2Array},
	}
	for _, tt := range tests {
		got, err := inferKind(tt.value)
		if err != nil {
			t.Errorf("inferKind(%#v) error: %v", tt.value, err)
			continue
		}
		if got != tt.want {
			t.Errorf("inferKind(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestInferKindRejects(t *testing.T) {
	for _, v := range []any{
		"red",
		nil,
		[]float32{},
		[][]float64{},
		[][]float64{{1, 2}, {1, 2, 3}},
		[][]float64{{1, 2, 3, 4, 5}},
		[5]float32{},
		map[string]float64{"x": 1},
		[]int{1, 2},
	} {
		if k, err := inferKind(v); err == nil {
			t.Errorf("inferKind(%#v) = %v, want error", v, k)
		}
	}
}

func uniformProgram(t *testing.T, gl *gputest.Context, decls ...string) *Program {
	t.Helper()
	fragment := "precision mediump float;\n" + strings.Join(decls, "\n") + "\nvoid main() { gl_FragColor = vec4(1.0); }\n"
	return compiled(t, gl, DefaultVertex(gpu.Version1), fragment)
}

func TestUniformsRoundTrip(t *testing.T) {
	s := NewUniforms(gputest.New(gpu.Version1))
	values := map[string]any{
		"u_x":   3,
		"u_v":   [3]float32{1, 2, 3},
		"u_m":   [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		"u_arr": [][]float64{{1, 0, 0}, {0, 1, 0}},
		"u_on":  true,
	}
	for name, v := range values {
		if err := s.Set(name, v); err != nil {
			t.Fatalf("Set(%s): %v", name, err)
		}
	}
	for name, want := range values {
		got, ok := s.Get(name)
		if !ok || !reflect.DeepEqual(got, want) {
			t.Errorf("Get(%s) = %#v, %v; want %#v", name, got, ok, want)
		}
	}
}

func TestUniformsUploadMethods(t *testing.T) {
	gl := gputest.New(gpu.Version1)
	p := uniformProgram(t, gl,
		"uniform float u_x;",
		"uniform vec3 u_v;",
		"uniform mat4 u_m;",
		"uniform vec3 u_arr[2];",
		"uniform bool u_on;",
		"uniform int u_n;",
		"uniform mat2 u_rot;",
		"uniform float u_weights[3];",
	)
	s := NewUniforms(gl)
	s.AttachProgram(p)
	p.Use()

	ident := mgl32.Ident4()
	must(t, s.SetMany(map[string]any{
		"u_x":       3,
		"u_v":       [3]float32{1, 2, 3},
		"u_m":       ident,
		"u_arr":     [][]float64{{1, 0, 0}, {0, 1, 0}},
		"u_on":      true,
		"u_n":       Int(7),
		"u_rot":     mgl32.Mat2{1, 2, 3, 4},
		"u_weights": []float64{0.25, 0.5, 0.25},
	}))
	s.UploadAll()

	tests := []struct {
		name   string
		method string
		values []float32
	}{
		{"u_x", "uniform1f", []float32{3}},
		{"u_v", "uniform3fv", []float32{1, 2, 3}},
		{"u_m", "uniformMatrix4fv", ident[:]},
		{"u_arr", "uniform3fv", []float32{1, 0, 0, 0, 1, 0}},
		{"u_on", "uniform1i", []float32{1}},
		{"u_n", "uniform1i", []float32{7}},
		{"u_rot", "uniformMatrix2fv", []float32{1, 2, 3, 4}},
		{"u_weights", "uniform1fv", []float32{0.25, 0.5, 0.25}},
	}
	for _, tt := range tests {
		up, ok := gl.LastUpload(tt.name)
		if !ok {
			t.Errorf("%s was not uploaded", tt.name)
			continue
		}
		if up.Method != tt.method || !reflect.DeepEqual(up.Values, tt.values) {
			t.Errorf("%s uploaded via %s %v, want %s %v", tt.name, up.Method, up.Values, tt.method, tt.values)
		}
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestUniformsRejectInvalid(t *testing.T) {
	s := NewUniforms(gputest.New(gpu.Version1))

	err := s.Set("u_bad", "not a number")
	var iu *InvalidUniformError
	if !errors.As(err, &iu) || iu.Name != "u_bad" {
		t.Fatalf("err = %v, want InvalidUniformError", err)
	}
	if !errors.Is(err, ErrInvalidUniform) {
		t.Error("error does not match ErrInvalidUniform")
	}
	if s.Has("u_bad") {
		t.Error("invalid value was stored")
	}

	must(t, s.Set("u_x", 1.0))
	if err := s.Set("u_x", []float32{}); err == nil {
		t.Error("update to an invalid value succeeded")
	}
	if v, _ := s.Get("u_x"); v != 1.0 {
		t.Errorf("failed update changed value to %v", v)
	}
}

func TestUniformsRejectBuiltInNames(t *testing.T) {
	s := NewUniforms(gputest.New(gpu.Version1))
	for _, name := range []string{UniformResolution, UniformTime, UniformDelta, UniformMouse, UniformFrame} {
		if err := s.Set(name, 1.0); !errors.Is(err, ErrInvalidUniform) {
			t.Errorf("Set(%s) = %v, want ErrInvalidUniform", name, err)
		}
	}
}

func TestUniformsSetManyJoinsErrors(t *testing.T) {
	s := NewUniforms(gputest.New(gpu.Version1))
	err := s.SetMany(map[string]any{
		"u_a":    1.0,
		"u_b":    "bad",
		"u_time": 2.0,
	})
	if !errors.Is(err, ErrInvalidUniform) {
		t.Fatalf("err = %v", err)
	}
	if n := len(unjoin(err)); n != 2 {
		t.Errorf("joined %d errors, want 2", n)
	}
	if !s.Has("u_a") {
		t.Error("valid entry was not applied")
	}
}

func TestUniformsBookkeeping(t *testing.T) {
	s := NewUniforms(gputest.New(gpu.Version1))
	must(t, s.Set("u_c", 1))
	must(t, s.Set("u_a", 2))
	must(t, s.Set("u_b", 3))
	must(t, s.Set("u_a", 4))

	if got := s.Names(); !reflect.DeepEqual(got, []string{"u_c", "u_a", "u_b"}) {
		t.Errorf("Names() = %v", got)
	}
	if !s.Delete("u_a") || s.Delete("u_a") {
		t.Error("Delete should report presence exactly once")
	}
	if s.Has("u_a") || !s.Has("u_b") {
		t.Error("Has after Delete is wrong")
	}
	if _, ok := s.Get("u_a"); ok {
		t.Error("Get found a deleted uniform")
	}
	s.Destroy()
	if len(s.Names()) != 0 {
		t.Error("Destroy kept entries")
	}
}

func TestUniformsLocationCache(t *testing.T) {
	gl := gputest.New(gpu.Version1)
	first := uniformProgram(t, gl, "uniform float u_x;")
	s := NewUniforms(gl)
	s.AttachProgram(first)
	first.Use()
	must(t, s.Set("u_x", 1))

	s.UploadAll()
	s.UploadAll()
	if n := gl.LocationQueries["u_x"]; n != 1 {
		t.Fatalf("location queried %d times, want 1 (cached)", n)
	}

	second := uniformProgram(t, gl, "uniform float u_x;")
	s.AttachProgram(second)
	second.Use()
	s.UploadAll()
	if n := gl.LocationQueries["u_x"]; n != 2 {
		t.Errorf("location queried %d times after AttachProgram, want 2", n)
	}
	up, _ := gl.LastUpload("u_x")
	if up.Program != second.Handle() {
		t.Errorf("upload went to program %d, want %d", up.Program, second.Handle())
	}
}

func TestUniformsSkipMissing(t *testing.T) {
	gl := gputest.New(gpu.Version1)
	p := uniformProgram(t, gl, "uniform float u_x;")
	s := NewUniforms(gl)
	s.AttachProgram(p)
	p.Use()
	must(t, s.Set("u_optimized_out", 1))
	must(t, s.Set("u_x", 2))

	s.UploadAll()
	if len(gl.Uploads) != 1 || gl.Uploads[0].Name != "u_x" {
		t.Errorf("uploads = %+v, want only u_x", gl.Uploads)
	}
}

func TestUniformsUploadBuiltIns(t *testing.T) {
	gl := gputest.New(gpu.Version1)
	p := uniformProgram(t, gl,
		"uniform vec2 u_resolution;",
		"uniform float u_time;",
		"uniform float u_delta;",
		"uniform vec2 u_mouse;",
		"uniform float u_frame;",
		"uniform float u_user;",
	)
	s := NewUniforms(gl)
	s.AttachProgram(p)
	p.Use()
	must(t, s.Set("u_user", 1))

	s.UploadBuiltIns(ClockState{Time: 1.5, Delta: 0.25, Frame: 9}, [2]float32{640, 480}, [2]float32{10, 20})

	if len(gl.Uploads) != 5 {
		t.Fatalf("UploadBuiltIns uploaded %d values, want 5", len(gl.Uploads))
	}
	want := map[string][]float32{
		UniformResolution: {640, 480},
		UniformTime:       {1.5},
		UniformDelta:      {0.25},
		UniformMouse:      {10, 20},
		UniformFrame:      {9},
	}
	for name, values := range want {
		up, ok := gl.LastUpload(name)
		if !ok || !reflect.DeepEqual(up.Values, values) {
			t.Errorf("%s = %v, want %v", name, up.Values, values)
		}
	}
	if v, _ := s.Get(UniformTime); v != 1.5 {
		t.Errorf("Get(u_time) = %v", v)
	}
}

func TestUniformsWithoutProgram(t *testing.T) {
	gl := gputest.New(gpu.Version1)
	s := NewUniforms(gl)
	must(t, s.Set("u_x", 1))
	s.UploadBuiltIns(ClockState{}, [2]float32{1, 1}, [2]float32{})
	s.UploadAll()
	if len(gl.Uploads) != 0 {
		t.Errorf("uploaded %d values without a program", len(gl.Uploads))
	}
}
