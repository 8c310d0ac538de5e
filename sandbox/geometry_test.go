package sandbox

import (
	"testing"

	"github.com/richinsley/goshadersandbox/gpu"
	"github.com/richinsley/goshadersandbox/gpu/gputest"
)

func compiled(t *testing.T, gl gpu.Context, vertex, fragment string) *Program {
	t.Helper()
	p := NewProgram(gl, nil)
	if err := p.Compile(vertex, fragment); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return p
}

func TestFullscreenQuadWithVertexArrays(t *testing.T) {
	gl := gputest.New(gpu.Version2)
	g := FullscreenQuad(gl, gpu.SelectVertexArrays(gl))

	if _, _, buffers, arrays := gl.Live(); buffers != 2 || arrays != 1 {
		t.Fatalf("buffers=%d arrays=%d, want 2 and 1", buffers, arrays)
	}

	p := compiled(t, gl, DefaultVertex(gpu.Version2), DefaultFragment(gpu.Version2))
	g.LinkAttributes(p)
	if !gl.EnabledAttrib[0] || !gl.EnabledAttrib[1] {
		t.Errorf("enabled attribs = %v, want 0 and 1", gl.EnabledAttrib)
	}

	gl.Reset()
	g.Bind()
	g.Draw()
	if gl.Count("VertexAttribPointer") != 0 {
		t.Error("Bind replayed attributes although a vertex array exists")
	}
	if len(gl.Draws) != 1 {
		t.Fatalf("draws = %d", len(gl.Draws))
	}
	if d := gl.Draws[0]; !d.Indexed || d.Mode != gpu.Triangles || d.Count != 6 {
		t.Errorf("draw = %+v, want 6 indexed triangles", d)
	}

	g.Destroy()
	if _, _, buffers, arrays := gl.Live(); buffers != 0 || arrays != 0 {
		t.Errorf("after Destroy buffers=%d arrays=%d", buffers, arrays)
	}
}

func TestGeometryWithoutVertexArrays(t *testing.T) {
	gl := gputest.New(gpu.Version1)
	vaos := gpu.SelectVertexArrays(gl)
	if vaos.Supported() {
		t.Fatal("version 1 without the extension should not support vertex arrays")
	}
	g := FullscreenQuad(gl, vaos)
	g.LinkAttributes(compiled(t, gl, DefaultVertex(gpu.Version1), DefaultFragment(gpu.Version1)))

	gl.Reset()
	g.Bind()
	if n := gl.Count("VertexAttribPointer"); n != 2 {
		t.Errorf("Bind set %d attribute pointers, want 2", n)
	}
	if gl.Count("BindBuffer") != 2 {
		t.Errorf("Bind bound %d buffers, want vertex and index", gl.Count("BindBuffer"))
	}
	if gl.Count("CreateVertexArray") != 0 {
		t.Error("vertex array created without support")
	}

	g.Destroy()
	if _, _, buffers, _ := gl.Live(); buffers != 0 {
		t.Errorf("buffers = %d after Destroy", buffers)
	}
}

func TestGeometryVertexArrayExtension(t *testing.T) {
	gl := gputest.New(gpu.Version1, gpu.ExtVertexArrayObject)
	g := FullscreenQuad(gl, gpu.SelectVertexArrays(gl))
	if _, _, _, arrays := gl.Live(); arrays != 1 {
		t.Fatalf("arrays = %d, want 1 via the extension", arrays)
	}
	g.Destroy()
	if _, _, _, arrays := gl.Live(); arrays != 0 {
		t.Errorf("arrays = %d after Destroy", arrays)
	}
}

func TestGeometryAttributeAliases(t *testing.T) {
	gl := gputest.New(gpu.Version1)
	vertex := `attribute vec2 aPosition;
attribute vec2 a_uv;
varying vec2 v_uv;
void main() { v_uv = a_uv; gl_Position = vec4(aPosition, 0.0, 1.0); }
`
	fragment := `precision mediump float;
varying vec2 v_uv;
void main() { gl_FragColor = vec4(v_uv, 0.0, 1.0); }
`
	g := FullscreenQuad(gl, gpu.SelectVertexArrays(gl))
	g.LinkAttributes(compiled(t, gl, vertex, fragment))
	if !gl.EnabledAttrib[0] || !gl.EnabledAttrib[1] {
		t.Errorf("aliases not linked: %v", gl.EnabledAttrib)
	}
}

func TestGeometryMissingAttributes(t *testing.T) {
	gl := gputest.New(gpu.Version1)
	vertex := "void main() { gl_Position = vec4(0.0); }\n"
	fragment := "precision mediump float;\nvoid main() { gl_FragColor = vec4(1.0); }\n"
	g := FullscreenQuad(gl, gpu.SelectVertexArrays(gl))
	g.LinkAttributes(compiled(t, gl, vertex, fragment))
	if gl.Count("EnableVertexAttribArray") != 0 {
		t.Error("enabled attributes the program does not have")
	}
}

func TestGeometryTriangleStrip(t *testing.T) {
	gl := gputest.New(gpu.Version2)
	g := NewGeometry(gl, gpu.SelectVertexArrays(gl), quadVertices, nil)
	g.Draw()
	if d := gl.Draws[0]; d.Indexed || d.Mode != gpu.TriangleStrip || d.Count != 4 {
		t.Errorf("draw = %+v, want a 4 vertex strip", d)
	}
	if _, _, buffers, _ := gl.Live(); buffers != 1 {
		t.Errorf("buffers = %d, want 1", buffers)
	}
}
