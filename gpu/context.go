// Package gpu defines the rendering-context surface the sandbox drives.
//
// The interface mirrors the subset of WebGL / OpenGL ES the sandbox needs.
// Backends (glbackend for desktop GL, webgl for browsers, gputest for tests)
// implement it; nothing above this package talks to a driver directly.
package gpu

import "fmt"

// Version identifies the API generation of a context or shader source.
type Version int

const (
	// Version1 is the legacy generation (WebGL1 / GLSL ES 1.00).
	Version1 Version = 1
	// Version2 is the modern generation (WebGL2 / GLSL ES 3.00).
	Version2 Version = 2
)

func (v Version) String() string {
	switch v {
	case Version1:
		return "webgl1"
	case Version2:
		return "webgl2"
	default:
		return fmt.Sprintf("Version(%d)", int(v))
	}
}

// ShaderStage is the pipeline stage a shader object belongs to.
type ShaderStage int

const (
	VertexShader ShaderStage = iota
	FragmentShader
)

func (s ShaderStage) String() string {
	switch s {
	case VertexShader:
		return "vertex"
	case FragmentShader:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderStage(%d)", int(s))
	}
}

// Handles are opaque, backend-assigned names. Zero means "no object".
type (
	Shader      uint32
	Program     uint32
	Buffer      uint32
	VertexArray uint32
)

// UniformLocation is a program-specific uniform slot.
type UniformLocation int32

// NoUniform is returned when a uniform is absent from the linked program.
const NoUniform UniformLocation = -1

// BufferTarget selects the binding point of a buffer.
type BufferTarget int

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
)

// DrawMode is the primitive topology of a draw call.
type DrawMode int

const (
	Triangles DrawMode = iota
	TriangleStrip
)

// Extension names the sandbox asks for.
const (
	ExtStandardDerivatives = "OES_standard_derivatives"
	ExtTextureFloat        = "OES_texture_float"
	ExtTextureFloatLinear  = "OES_texture_float_linear"
	ExtVertexArrayObject   = "OES_vertex_array_object"
)

// Context is a live rendering context bound to one canvas.
type Context interface {
	Version() Version

	// Extension enables the named extension and returns its object, or nil
	// when unsupported. For ExtVertexArrayObject the object implements
	// VertexArrayAPI.
	Extension(name string) any

	CreateShader(stage ShaderStage) Shader
	ShaderSource(s Shader, source string)
	CompileShader(s Shader)
	ShaderCompiled(s Shader) bool
	ShaderInfoLog(s Shader) string
	DeleteShader(s Shader)

	CreateProgram() Program
	AttachShader(p Program, s Shader)
	DetachShader(p Program, s Shader)
	LinkProgram(p Program)
	ProgramLinked(p Program) bool
	ProgramInfoLog(p Program) string
	UseProgram(p Program)
	DeleteProgram(p Program)
	AttribLocation(p Program, name string) int32
	UniformLocation(p Program, name string) UniformLocation

	CreateBuffer() Buffer
	BindBuffer(target BufferTarget, b Buffer)
	BufferFloat32(target BufferTarget, data []float32)
	BufferUint16(target BufferTarget, data []uint16)
	DeleteBuffer(b Buffer)
	EnableVertexAttribArray(index uint32)
	VertexAttribPointer(index uint32, size, stride int32, offset int)

	Viewport(x, y, width, height int32)
	ClearColor(r, g, b, a float32)
	Clear()
	DrawArrays(mode DrawMode, first, count int32)
	DrawElements(mode DrawMode, count int32)
	ReadPixels(x, y, width, height int32) []byte

	Uniform1f(loc UniformLocation, v float32)
	Uniform1i(loc UniformLocation, v int32)
	Uniform1fv(loc UniformLocation, v []float32)
	Uniform2fv(loc UniformLocation, v []float32)
	Uniform3fv(loc UniformLocation, v []float32)
	Uniform4fv(loc UniformLocation, v []float32)
	UniformMatrix2fv(loc UniformLocation, v []float32)
	UniformMatrix3fv(loc UniformLocation, v []float32)
	UniformMatrix4fv(loc UniformLocation, v []float32)
}

// VertexArrayAPI is implemented by version-2 contexts and by the
// OES_vertex_array_object extension object of version-1 contexts.
type VertexArrayAPI interface {
	CreateVertexArray() VertexArray
	BindVertexArray(v VertexArray)
	DeleteVertexArray(v VertexArray)
}
