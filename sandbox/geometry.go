package sandbox

import "github.com/richinsley/goshadersandbox/gpu"

// Two triangles covering clip space. Each vertex is x, y, u, v.
var quadVertices = []float32{
	-1, -1, 0, 0,
	1, -1, 1, 0,
	-1, 1, 0, 1,
	1, 1, 1, 1,
}

var quadIndices = []uint16{
	0, 1, 2,
	2, 1, 3,
}

const (
	floatsPerVertex = 4
	vertexStride    = floatsPerVertex * 4
	texcoordOffset  = 2 * 4
)

var (
	positionAliases = []string{"a_position", "aPosition", "position"}
	texcoordAliases = []string{"a_texcoord", "aTexCoord", "texcoord", "a_uv"}
)

// Geometry owns the quad's buffers and its optional vertex array.
type Geometry struct {
	gl   gpu.Context
	vaos gpu.VertexArrays

	vao gpu.VertexArray
	vbo gpu.Buffer
	ibo gpu.Buffer

	vertexCount int32
	indexCount  int32

	positionLoc int32
	texcoordLoc int32
}

// FullscreenQuad builds the quad every sandbox draws.
func FullscreenQuad(gl gpu.Context, vaos gpu.VertexArrays) *Geometry {
	return NewGeometry(gl, vaos, quadVertices, quadIndices)
}

// NewGeometry uploads interleaved x, y, u, v vertices. With no indices the
// geometry is drawn as a triangle strip.
func NewGeometry(gl gpu.Context, vaos gpu.VertexArrays, vertices []float32, indices []uint16) *Geometry {
	g := &Geometry{gl: gl, vaos: vaos, positionLoc: -1, texcoordLoc: -1}

	g.vao = vaos.Create()
	vaos.Bind(g.vao)

	g.vbo = gl.CreateBuffer()
	gl.BindBuffer(gpu.ArrayBuffer, g.vbo)
	gl.BufferFloat32(gpu.ArrayBuffer, vertices)
	g.vertexCount = int32(len(vertices) / floatsPerVertex)

	if len(indices) > 0 {
		g.ibo = gl.CreateBuffer()
		gl.BindBuffer(gpu.ElementArrayBuffer, g.ibo)
		gl.BufferUint16(gpu.ElementArrayBuffer, indices)
		g.indexCount = int32(len(indices))
	}

	vaos.Unbind()
	return g
}

// LinkAttributes looks up the position and texcoord attributes of p under
// their common names and points them at the vertex buffer. It must run after
// every successful compile.
func (g *Geometry) LinkAttributes(p *Program) {
	g.positionLoc = lookupAttrib(p, positionAliases)
	g.texcoordLoc = lookupAttrib(p, texcoordAliases)

	g.vaos.Bind(g.vao)
	g.bindAttributes()
	g.vaos.Unbind()
}

func lookupAttrib(p *Program, names []string) int32 {
	for _, name := range names {
		if loc := p.AttribLocation(name); loc >= 0 {
			return loc
		}
	}
	return -1
}

func (g *Geometry) bindAttributes() {
	g.gl.BindBuffer(gpu.ArrayBuffer, g.vbo)
	if g.positionLoc >= 0 {
		g.gl.EnableVertexAttribArray(uint32(g.positionLoc))
		g.gl.VertexAttribPointer(uint32(g.positionLoc), 2, vertexStride, 0)
	}
	if g.texcoordLoc >= 0 {
		g.gl.EnableVertexAttribArray(uint32(g.texcoordLoc))
		g.gl.VertexAttribPointer(uint32(g.texcoordLoc), 2, vertexStride, texcoordOffset)
	}
	if g.ibo != 0 {
		g.gl.BindBuffer(gpu.ElementArrayBuffer, g.ibo)
	}
}

// Bind makes the geometry current. Without vertex-array objects the buffer
// and attribute state is replayed.
func (g *Geometry) Bind() {
	g.vaos.Bind(g.vao)
	if !g.vaos.Supported() {
		g.bindAttributes()
	}
}

func (g *Geometry) Unbind() { g.vaos.Unbind() }

func (g *Geometry) Draw() {
	if g.indexCount > 0 {
		g.gl.DrawElements(gpu.Triangles, g.indexCount)
		return
	}
	g.gl.DrawArrays(gpu.TriangleStrip, 0, g.vertexCount)
}

// Destroy releases both buffers and the vertex array.
func (g *Geometry) Destroy() {
	g.vaos.Delete(g.vao)
	g.vao = 0
	if g.vbo != 0 {
		g.gl.DeleteBuffer(g.vbo)
		g.vbo = 0
	}
	if g.ibo != 0 {
		g.gl.DeleteBuffer(g.ibo)
		g.ibo = 0
	}
	g.indexCount, g.vertexCount = 0, 0
}
