// Package gputest provides an in-memory gpu.Context that records every call.
//
// Compilation is simulated: a shader fails to compile when its source contains
// an "#error" directive, and the info log points at that line in the ANGLE
// format. Attributes and uniforms are discovered from declarations in the
// source so that location queries behave like a real driver.
package gputest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/richinsley/goshadersandbox/gpu"
)

var (
	attribDecl  = regexp.MustCompile(`(?m)^\s*(?:attribute|in)\s+\w+\s+(\w+)\s*;`)
	uniformDecl = regexp.MustCompile(`(?m)^\s*uniform\s+(?:(?:lowp|mediump|highp)\s+)?\w+\s+(\w+)\s*(?:\[\s*\d+\s*\])?\s*;`)
)

// Upload is one uniform write observed by the context.
type Upload struct {
	Program gpu.Program
	Name    string
	Method  string
	Values  []float32
}

// Draw is one draw call observed by the context.
type Draw struct {
	Program gpu.Program
	Mode    gpu.DrawMode
	Count   int32
	Indexed bool
}

type shader struct {
	stage    gpu.ShaderStage
	source   string
	compiled bool
	log      string
}

type program struct {
	shaders  []gpu.Shader
	linked   bool
	log      string
	attribs  map[string]int32
	uniforms map[string]gpu.UniformLocation
	names    map[gpu.UniformLocation]string
}

// Context is a recording fake. The zero value is not usable; call New.
type Context struct {
	version    gpu.Version
	extensions map[string]bool

	// LinkLog, when non-empty, makes every LinkProgram fail with this log.
	LinkLog string
	// RefuseShaders makes CreateShader return 0.
	RefuseShaders bool

	next     uint32
	nextLoc  gpu.UniformLocation
	shaders  map[gpu.Shader]*shader
	programs map[gpu.Program]*program
	buffers  map[gpu.Buffer]bool
	arrays   map[gpu.VertexArray]bool

	Current       gpu.Program
	BoundArray    gpu.VertexArray
	ViewportRect  [4]int32
	Clears        int
	Draws         []Draw
	Uploads       []Upload
	EnabledAttrib map[uint32]bool
	// LocationQueries counts UniformLocation calls per uniform name.
	LocationQueries map[string]int
	// Calls is the ordered list of method names invoked.
	Calls []string
}

// New returns a fake context of the given version exposing the listed
// extensions.
func New(version gpu.Version, extensions ...string) *Context {
	c := &Context{
		version:         version,
		extensions:      make(map[string]bool),
		shaders:         make(map[gpu.Shader]*shader),
		programs:        make(map[gpu.Program]*program),
		buffers:         make(map[gpu.Buffer]bool),
		arrays:          make(map[gpu.VertexArray]bool),
		EnabledAttrib:   make(map[uint32]bool),
		LocationQueries: make(map[string]int),
	}
	for _, ext := range extensions {
		c.extensions[ext] = true
	}
	return c
}

func (c *Context) record(name string) { c.Calls = append(c.Calls, name) }

func (c *Context) id() uint32 {
	c.next++
	return c.next
}

func (c *Context) Version() gpu.Version { return c.version }

func (c *Context) Extension(name string) any {
	c.record("Extension")
	if !c.extensions[name] {
		return nil
	}
	if name == gpu.ExtVertexArrayObject {
		return vaoExtension{c}
	}
	return struct{}{}
}

func (c *Context) CreateShader(stage gpu.ShaderStage) gpu.Shader {
	c.record("CreateShader")
	if c.RefuseShaders {
		return 0
	}
	s := gpu.Shader(c.id())
	c.shaders[s] = &shader{stage: stage}
	return s
}

func (c *Context) ShaderSource(s gpu.Shader, source string) {
	c.record("ShaderSource")
	if sh, ok := c.shaders[s]; ok {
		sh.source = source
	}
}

func (c *Context) CompileShader(s gpu.Shader) {
	c.record("CompileShader")
	sh, ok := c.shaders[s]
	if !ok {
		return
	}
	sh.compiled = true
	sh.log = ""
	for i, line := range strings.Split(sh.source, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#error") {
			sh.compiled = false
			sh.log = fmt.Sprintf("ERROR: 0:%d: '#error' : %s\nERROR: 1 compilation errors.  No code generated.\n",
				i+1, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#error")))
			return
		}
	}
}

func (c *Context) ShaderCompiled(s gpu.Shader) bool {
	sh, ok := c.shaders[s]
	return ok && sh.compiled
}

func (c *Context) ShaderInfoLog(s gpu.Shader) string {
	if sh, ok := c.shaders[s]; ok {
		return sh.log
	}
	return ""
}

func (c *Context) DeleteShader(s gpu.Shader) {
	c.record("DeleteShader")
	delete(c.shaders, s)
}

func (c *Context) CreateProgram() gpu.Program {
	c.record("CreateProgram")
	p := gpu.Program(c.id())
	c.programs[p] = &program{}
	return p
}

func (c *Context) AttachShader(p gpu.Program, s gpu.Shader) {
	c.record("AttachShader")
	if prog, ok := c.programs[p]; ok {
		prog.shaders = append(prog.shaders, s)
	}
}

func (c *Context) DetachShader(p gpu.Program, s gpu.Shader) {
	c.record("DetachShader")
	prog, ok := c.programs[p]
	if !ok {
		return
	}
	for i, attached := range prog.shaders {
		if attached == s {
			prog.shaders = append(prog.shaders[:i], prog.shaders[i+1:]...)
			return
		}
	}
}

func (c *Context) LinkProgram(p gpu.Program) {
	c.record("LinkProgram")
	prog, ok := c.programs[p]
	if !ok {
		return
	}
	if c.LinkLog != "" {
		prog.linked = false
		prog.log = c.LinkLog
		return
	}
	prog.attribs = make(map[string]int32)
	prog.uniforms = make(map[string]gpu.UniformLocation)
	prog.names = make(map[gpu.UniformLocation]string)
	for _, s := range prog.shaders {
		sh := c.shaders[s]
		if sh == nil {
			continue
		}
		if sh.stage == gpu.VertexShader {
			for _, m := range attribDecl.FindAllStringSubmatch(sh.source, -1) {
				if _, dup := prog.attribs[m[1]]; !dup {
					prog.attribs[m[1]] = int32(len(prog.attribs))
				}
			}
		}
		for _, m := range uniformDecl.FindAllStringSubmatch(sh.source, -1) {
			if _, dup := prog.uniforms[m[1]]; dup {
				continue
			}
			// Locations are unique across programs so stale caches show up.
			c.nextLoc++
			prog.uniforms[m[1]] = c.nextLoc
			prog.names[c.nextLoc] = m[1]
		}
	}
	prog.linked = true
}

func (c *Context) ProgramLinked(p gpu.Program) bool {
	prog, ok := c.programs[p]
	return ok && prog.linked
}

func (c *Context) ProgramInfoLog(p gpu.Program) string {
	if prog, ok := c.programs[p]; ok {
		return prog.log
	}
	return ""
}

func (c *Context) UseProgram(p gpu.Program) {
	c.record("UseProgram")
	c.Current = p
}

func (c *Context) DeleteProgram(p gpu.Program) {
	c.record("DeleteProgram")
	delete(c.programs, p)
	if c.Current == p {
		c.Current = 0
	}
}

func (c *Context) AttribLocation(p gpu.Program, name string) int32 {
	prog, ok := c.programs[p]
	if !ok || !prog.linked {
		return -1
	}
	if loc, ok := prog.attribs[name]; ok {
		return loc
	}
	return -1
}

func (c *Context) UniformLocation(p gpu.Program, name string) gpu.UniformLocation {
	c.LocationQueries[name]++
	prog, ok := c.programs[p]
	if !ok || !prog.linked {
		return gpu.NoUniform
	}
	if loc, ok := prog.uniforms[name]; ok {
		return loc
	}
	return gpu.NoUniform
}

func (c *Context) CreateBuffer() gpu.Buffer {
	c.record("CreateBuffer")
	b := gpu.Buffer(c.id())
	c.buffers[b] = true
	return b
}

func (c *Context) BindBuffer(gpu.BufferTarget, gpu.Buffer)   { c.record("BindBuffer") }
func (c *Context) BufferFloat32(gpu.BufferTarget, []float32) { c.record("BufferFloat32") }
func (c *Context) BufferUint16(gpu.BufferTarget, []uint16)   { c.record("BufferUint16") }

func (c *Context) DeleteBuffer(b gpu.Buffer) {
	c.record("DeleteBuffer")
	delete(c.buffers, b)
}

func (c *Context) EnableVertexAttribArray(index uint32) {
	c.record("EnableVertexAttribArray")
	c.EnabledAttrib[index] = true
}

func (c *Context) VertexAttribPointer(uint32, int32, int32, int) {
	c.record("VertexAttribPointer")
}

func (c *Context) Viewport(x, y, width, height int32) {
	c.record("Viewport")
	c.ViewportRect = [4]int32{x, y, width, height}
}

func (c *Context) ClearColor(r, g, b, a float32) { c.record("ClearColor") }

func (c *Context) Clear() {
	c.record("Clear")
	c.Clears++
}

func (c *Context) DrawArrays(mode gpu.DrawMode, first, count int32) {
	c.record("DrawArrays")
	c.Draws = append(c.Draws, Draw{Program: c.Current, Mode: mode, Count: count})
}

func (c *Context) DrawElements(mode gpu.DrawMode, count int32) {
	c.record("DrawElements")
	c.Draws = append(c.Draws, Draw{Program: c.Current, Mode: mode, Count: count, Indexed: true})
}

func (c *Context) ReadPixels(x, y, width, height int32) []byte {
	c.record("ReadPixels")
	return make([]byte, int(width)*int(height)*4)
}

func (c *Context) upload(loc gpu.UniformLocation, method string, values ...float32) {
	c.record(method)
	name := ""
	if prog, ok := c.programs[c.Current]; ok {
		name = prog.names[loc]
	}
	c.Uploads = append(c.Uploads, Upload{
		Program: c.Current,
		Name:    name,
		Method:  method,
		Values:  append([]float32(nil), values...),
	})
}

func (c *Context) Uniform1f(loc gpu.UniformLocation, v float32) { c.upload(loc, "uniform1f", v) }
func (c *Context) Uniform1i(loc gpu.UniformLocation, v int32)   { c.upload(loc, "uniform1i", float32(v)) }
func (c *Context) Uniform1fv(loc gpu.UniformLocation, v []float32) {
	c.upload(loc, "uniform1fv", v...)
}
func (c *Context) Uniform2fv(loc gpu.UniformLocation, v []float32) {
	c.upload(loc, "uniform2fv", v...)
}
func (c *Context) Uniform3fv(loc gpu.UniformLocation, v []float32) {
	c.upload(loc, "uniform3fv", v...)
}
func (c *Context) Uniform4fv(loc gpu.UniformLocation, v []float32) {
	c.upload(loc, "uniform4fv", v...)
}
func (c *Context) UniformMatrix2fv(loc gpu.UniformLocation, v []float32) {
	c.upload(loc, "uniformMatrix2fv", v...)
}
func (c *Context) UniformMatrix3fv(loc gpu.UniformLocation, v []float32) {
	c.upload(loc, "uniformMatrix3fv", v...)
}
func (c *Context) UniformMatrix4fv(loc gpu.UniformLocation, v []float32) {
	c.upload(loc, "uniformMatrix4fv", v...)
}

func (c *Context) CreateVertexArray() gpu.VertexArray {
	c.record("CreateVertexArray")
	v := gpu.VertexArray(c.id())
	c.arrays[v] = true
	return v
}

func (c *Context) BindVertexArray(v gpu.VertexArray) {
	c.record("BindVertexArray")
	c.BoundArray = v
}

func (c *Context) DeleteVertexArray(v gpu.VertexArray) {
	c.record("DeleteVertexArray")
	delete(c.arrays, v)
}

// vaoExtension is the OES_vertex_array_object object of version-1 contexts.
type vaoExtension struct{ c *Context }

func (e vaoExtension) CreateVertexArray() gpu.VertexArray  { return e.c.CreateVertexArray() }
func (e vaoExtension) BindVertexArray(v gpu.VertexArray)   { e.c.BindVertexArray(v) }
func (e vaoExtension) DeleteVertexArray(v gpu.VertexArray) { e.c.DeleteVertexArray(v) }

// Live reports how many GPU objects of each kind are still allocated.
func (c *Context) Live() (shaders, programs, buffers, arrays int) {
	return len(c.shaders), len(c.programs), len(c.buffers), len(c.arrays)
}

// LastUpload returns the most recent upload for name in the current program.
func (c *Context) LastUpload(name string) (Upload, bool) {
	for i := len(c.Uploads) - 1; i >= 0; i-- {
		if c.Uploads[i].Name == name {
			return c.Uploads[i], true
		}
	}
	return Upload{}, false
}

// Count returns how many times the named method was invoked.
func (c *Context) Count(method string) int {
	n := 0
	for _, call := range c.Calls {
		if call == method {
			n++
		}
	}
	return n
}

// Reset clears the recorded calls, uploads and draws.
func (c *Context) Reset() {
	c.Calls = nil
	c.Uploads = nil
	c.Draws = nil
	c.Clears = 0
	c.LocationQueries = make(map[string]int)
}
