//go:build js && wasm

// Package webgl runs a sandbox against a browser canvas through syscall/js.
package webgl

import (
	"encoding/binary"
	"math"
	"syscall/js"

	"github.com/richinsley/goshadersandbox/gpu"
)

var (
	_ gpu.Context        = (*Context)(nil)
	_ gpu.VertexArrayAPI = (*Context)(nil)
)

type glConsts struct {
	vertexShader   int
	fragmentShader int
	compileStatus  int
	linkStatus     int
	arrayBuffer    int
	elementArray   int
	staticDraw     int
	floatType      int
	unsignedShort  int
	unsignedByte   int
	triangles      int
	triangleStrip  int
	colorBufferBit int
	rgba           int
	packAlignment  int
}

// Context wraps a WebGLRenderingContext or WebGL2RenderingContext. JS
// objects are kept in a handle table so the sandbox only sees integers.
type Context struct {
	gl      js.Value
	version gpu.Version
	consts  glConsts

	next    uint32
	objects map[uint32]js.Value

	nextLoc   gpu.UniformLocation
	locations map[gpu.UniformLocation]js.Value
	// programLocs lists the locations handed out per program so they can be
	// dropped with it.
	programLocs map[gpu.Program][]gpu.UniformLocation
}

func newContext(gl js.Value, version gpu.Version) *Context {
	c := &Context{
		gl:          gl,
		version:     version,
		objects:     make(map[uint32]js.Value),
		locations:   make(map[gpu.UniformLocation]js.Value),
		programLocs: make(map[gpu.Program][]gpu.UniformLocation),
	}
	c.consts = glConsts{
		vertexShader:   gl.Get("VERTEX_SHADER").Int(),
		fragmentShader: gl.Get("FRAGMENT_SHADER").Int(),
		compileStatus:  gl.Get("COMPILE_STATUS").Int(),
		linkStatus:     gl.Get("LINK_STATUS").Int(),
		arrayBuffer:    gl.Get("ARRAY_BUFFER").Int(),
		elementArray:   gl.Get("ELEMENT_ARRAY_BUFFER").Int(),
		staticDraw:     gl.Get("STATIC_DRAW").Int(),
		floatType:      gl.Get("FLOAT").Int(),
		unsignedShort:  gl.Get("UNSIGNED_SHORT").Int(),
		unsignedByte:   gl.Get("UNSIGNED_BYTE").Int(),
		triangles:      gl.Get("TRIANGLES").Int(),
		triangleStrip:  gl.Get("TRIANGLE_STRIP").Int(),
		colorBufferBit: gl.Get("COLOR_BUFFER_BIT").Int(),
		rgba:           gl.Get("RGBA").Int(),
		packAlignment:  gl.Get("PACK_ALIGNMENT").Int(),
	}
	return c
}

func (c *Context) put(v js.Value) uint32 {
	if v.IsNull() || v.IsUndefined() {
		return 0
	}
	c.next++
	c.objects[c.next] = v
	return c.next
}

func (c *Context) obj(id uint32) js.Value {
	if v, ok := c.objects[id]; ok {
		return v
	}
	return js.Null()
}

func (c *Context) drop(id uint32) js.Value {
	v := c.obj(id)
	delete(c.objects, id)
	return v
}

func (c *Context) Version() gpu.Version { return c.version }

func (c *Context) Extension(name string) any {
	ext := c.gl.Call("getExtension", name)
	if ext.IsNull() || ext.IsUndefined() {
		return nil
	}
	if name == gpu.ExtVertexArrayObject {
		return &vaoExtension{c: c, ext: ext}
	}
	return ext
}

func (c *Context) CreateShader(stage gpu.ShaderStage) gpu.Shader {
	kind := c.consts.fragmentShader
	if stage == gpu.VertexShader {
		kind = c.consts.vertexShader
	}
	return gpu.Shader(c.put(c.gl.Call("createShader", kind)))
}

func (c *Context) ShaderSource(s gpu.Shader, source string) {
	c.gl.Call("shaderSource", c.obj(uint32(s)), source)
}

func (c *Context) CompileShader(s gpu.Shader) { c.gl.Call("compileShader", c.obj(uint32(s))) }

func (c *Context) ShaderCompiled(s gpu.Shader) bool {
	return c.gl.Call("getShaderParameter", c.obj(uint32(s)), c.consts.compileStatus).Truthy()
}

func (c *Context) ShaderInfoLog(s gpu.Shader) string {
	return jsString(c.gl.Call("getShaderInfoLog", c.obj(uint32(s))))
}

func (c *Context) DeleteShader(s gpu.Shader) { c.gl.Call("deleteShader", c.drop(uint32(s))) }

func (c *Context) CreateProgram() gpu.Program {
	return gpu.Program(c.put(c.gl.Call("createProgram")))
}

func (c *Context) AttachShader(p gpu.Program, s gpu.Shader) {
	c.gl.Call("attachShader", c.obj(uint32(p)), c.obj(uint32(s)))
}

func (c *Context) DetachShader(p gpu.Program, s gpu.Shader) {
	c.gl.Call("detachShader", c.obj(uint32(p)), c.obj(uint32(s)))
}

func (c *Context) LinkProgram(p gpu.Program) { c.gl.Call("linkProgram", c.obj(uint32(p))) }

func (c *Context) ProgramLinked(p gpu.Program) bool {
	return c.gl.Call("getProgramParameter", c.obj(uint32(p)), c.consts.linkStatus).Truthy()
}

func (c *Context) ProgramInfoLog(p gpu.Program) string {
	return jsString(c.gl.Call("getProgramInfoLog", c.obj(uint32(p))))
}

func (c *Context) UseProgram(p gpu.Program) { c.gl.Call("useProgram", c.obj(uint32(p))) }

func (c *Context) DeleteProgram(p gpu.Program) {
	for _, loc := range c.programLocs[p] {
		delete(c.locations, loc)
	}
	delete(c.programLocs, p)
	c.gl.Call("deleteProgram", c.drop(uint32(p)))
}

func (c *Context) AttribLocation(p gpu.Program, name string) int32 {
	return int32(c.gl.Call("getAttribLocation", c.obj(uint32(p)), name).Int())
}

func (c *Context) UniformLocation(p gpu.Program, name string) gpu.UniformLocation {
	loc := c.gl.Call("getUniformLocation", c.obj(uint32(p)), name)
	if loc.IsNull() || loc.IsUndefined() {
		return gpu.NoUniform
	}
	c.nextLoc++
	c.locations[c.nextLoc] = loc
	c.programLocs[p] = append(c.programLocs[p], c.nextLoc)
	return c.nextLoc
}

func (c *Context) location(loc gpu.UniformLocation) js.Value {
	if v, ok := c.locations[loc]; ok {
		return v
	}
	return js.Null()
}

func (c *Context) CreateBuffer() gpu.Buffer { return gpu.Buffer(c.put(c.gl.Call("createBuffer"))) }

func (c *Context) target(t gpu.BufferTarget) int {
	if t == gpu.ElementArrayBuffer {
		return c.consts.elementArray
	}
	return c.consts.arrayBuffer
}

func (c *Context) BindBuffer(t gpu.BufferTarget, b gpu.Buffer) {
	c.gl.Call("bindBuffer", c.target(t), c.obj(uint32(b)))
}

func (c *Context) BufferFloat32(t gpu.BufferTarget, data []float32) {
	c.gl.Call("bufferData", c.target(t), float32Array(data), c.consts.staticDraw)
}

func (c *Context) BufferUint16(t gpu.BufferTarget, data []uint16) {
	c.gl.Call("bufferData", c.target(t), uint16Array(data), c.consts.staticDraw)
}

func (c *Context) DeleteBuffer(b gpu.Buffer) { c.gl.Call("deleteBuffer", c.drop(uint32(b))) }

func (c *Context) EnableVertexAttribArray(index uint32) {
	c.gl.Call("enableVertexAttribArray", index)
}

func (c *Context) VertexAttribPointer(index uint32, size, stride int32, offset int) {
	c.gl.Call("vertexAttribPointer", index, size, c.consts.floatType, false, stride, offset)
}

func (c *Context) Viewport(x, y, width, height int32) {
	c.gl.Call("viewport", x, y, width, height)
}

func (c *Context) ClearColor(r, g, b, a float32) { c.gl.Call("clearColor", r, g, b, a) }
func (c *Context) Clear()                        { c.gl.Call("clear", c.consts.colorBufferBit) }

func (c *Context) mode(m gpu.DrawMode) int {
	if m == gpu.TriangleStrip {
		return c.consts.triangleStrip
	}
	return c.consts.triangles
}

func (c *Context) DrawArrays(m gpu.DrawMode, first, count int32) {
	c.gl.Call("drawArrays", c.mode(m), first, count)
}

func (c *Context) DrawElements(m gpu.DrawMode, count int32) {
	c.gl.Call("drawElements", c.mode(m), count, c.consts.unsignedShort, 0)
}

func (c *Context) ReadPixels(x, y, width, height int32) []byte {
	if width <= 0 || height <= 0 {
		return nil
	}
	n := int(width) * int(height) * 4
	arr := js.Global().Get("Uint8Array").New(n)
	c.gl.Call("pixelStorei", c.consts.packAlignment, 1)
	c.gl.Call("readPixels", x, y, width, height, c.consts.rgba, c.consts.unsignedByte, arr)
	buf := make([]byte, n)
	js.CopyBytesToGo(buf, arr)
	return buf
}

func (c *Context) Uniform1f(loc gpu.UniformLocation, v float32) {
	c.gl.Call("uniform1f", c.location(loc), v)
}

func (c *Context) Uniform1i(loc gpu.UniformLocation, v int32) {
	c.gl.Call("uniform1i", c.location(loc), v)
}

func (c *Context) uniformv(method string, loc gpu.UniformLocation, v []float32) {
	c.gl.Call(method, c.location(loc), float32Array(v))
}

func (c *Context) uniformMatrix(method string, loc gpu.UniformLocation, v []float32) {
	c.gl.Call(method, c.location(loc), false, float32Array(v))
}

func (c *Context) Uniform1fv(loc gpu.UniformLocation, v []float32) { c.uniformv("uniform1fv", loc, v) }
func (c *Context) Uniform2fv(loc gpu.UniformLocation, v []float32) { c.uniformv("uniform2fv", loc, v) }
func (c *Context) Uniform3fv(loc gpu.UniformLocation, v []float32) { c.uniformv("uniform3fv", loc, v) }
func (c *Context) Uniform4fv(loc gpu.UniformLocation, v []float32) { c.uniformv("uniform4fv", loc, v) }

func (c *Context) UniformMatrix2fv(loc gpu.UniformLocation, v []float32) {
	c.uniformMatrix("uniformMatrix2fv", loc, v)
}

func (c *Context) UniformMatrix3fv(loc gpu.UniformLocation, v []float32) {
	c.uniformMatrix("uniformMatrix3fv", loc, v)
}

func (c *Context) UniformMatrix4fv(loc gpu.UniformLocation, v []float32) {
	c.uniformMatrix("uniformMatrix4fv", loc, v)
}

// Vertex arrays are native on version 2 contexts.

func (c *Context) CreateVertexArray() gpu.VertexArray {
	return gpu.VertexArray(c.put(c.gl.Call("createVertexArray")))
}

func (c *Context) BindVertexArray(v gpu.VertexArray) {
	c.gl.Call("bindVertexArray", c.obj(uint32(v)))
}

func (c *Context) DeleteVertexArray(v gpu.VertexArray) {
	c.gl.Call("deleteVertexArray", c.drop(uint32(v)))
}

// vaoExtension is OES_vertex_array_object on version 1 contexts.
type vaoExtension struct {
	c   *Context
	ext js.Value
}

func (e *vaoExtension) CreateVertexArray() gpu.VertexArray {
	return gpu.VertexArray(e.c.put(e.ext.Call("createVertexArrayOES")))
}

func (e *vaoExtension) BindVertexArray(v gpu.VertexArray) {
	e.ext.Call("bindVertexArrayOES", e.c.obj(uint32(v)))
}

func (e *vaoExtension) DeleteVertexArray(v gpu.VertexArray) {
	e.ext.Call("deleteVertexArrayOES", e.c.drop(uint32(v)))
}

func jsString(v js.Value) string {
	if v.Type() != js.TypeString {
		return ""
	}
	return v.String()
}

func float32Array(data []float32) js.Value {
	b := make([]byte, len(data)*4)
	for i, f := range data {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	u8 := js.Global().Get("Uint8Array").New(len(b))
	js.CopyBytesToJS(u8, b)
	return js.Global().Get("Float32Array").New(u8.Get("buffer"))
}

func uint16Array(data []uint16) js.Value {
	b := make([]byte, len(data)*2)
	for i, v := range data {
		binary.LittleEndian.PutUint16(b[i*2:], v)
	}
	u8 := js.Global().Get("Uint8Array").New(len(b))
	js.CopyBytesToJS(u8, b)
	return js.Global().Get("Uint16Array").New(u8.Get("buffer"))
}
