// Package glbackend implements gpu.Context on desktop OpenGL 4.1 core.
//
// Shaders arrive in either WebGL dialect and are translated to GLSL 4.10
// before they reach the driver. Attribute and uniform lookups go through the
// translator's name map so callers keep using the identifiers they wrote.
package glbackend

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/goshadersandbox/gpu"
	"github.com/richinsley/goshadersandbox/translator"
)

var (
	_ gpu.Context        = (*Context)(nil)
	_ gpu.VertexArrayAPI = (*Context)(nil)
)

var (
	glInitOnce sync.Once
	glInitErr  error
)

// TranslateFunc converts a WebGL-dialect shader for the driver.
type TranslateFunc func(source string, stage gpu.ShaderStage) (*translator.Shader, error)

type shaderInfo struct {
	names map[string]string
	// failure holds the translator log when the source never reached GL.
	failure string
}

type programInfo struct {
	attached []gpu.Shader
	names    map[string]string
}

func (p *programInfo) name(ident string) string {
	if mapped, ok := p.names[ident]; ok && mapped != "" {
		return mapped
	}
	return ident
}

// Context drives the GL context current on the calling thread. Every method
// must be called from that thread.
type Context struct {
	version   gpu.Version
	translate TranslateFunc
	log       *slog.Logger

	shaders  map[gpu.Shader]*shaderInfo
	programs map[gpu.Program]*programInfo
}

// New loads the GL entry points for the current context and returns a
// Context reporting version. A nil translate uses translator.Translate.
func New(version gpu.Version, translate TranslateFunc, log *slog.Logger) (*Context, error) {
	glInitOnce.Do(func() {
		glInitErr = gl.Init()
	})
	if glInitErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", glInitErr)
	}
	if translate == nil {
		translate = translator.Translate
	}
	if log == nil {
		log = slog.Default()
	}
	log.Info("glbackend: OpenGL initialized",
		"gl", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)),
		"emulating", version)

	return &Context{
		version:   version,
		translate: translate,
		log:       log,
		shaders:   make(map[gpu.Shader]*shaderInfo),
		programs:  make(map[gpu.Program]*programInfo),
	}, nil
}

func (c *Context) Version() gpu.Version { return c.version }

// Extension reports every sandbox extension as available: derivatives,
// float textures and vertex arrays are core in 4.1.
func (c *Context) Extension(name string) any {
	switch name {
	case gpu.ExtVertexArrayObject:
		return c
	case gpu.ExtStandardDerivatives, gpu.ExtTextureFloat, gpu.ExtTextureFloatLinear:
		return struct{}{}
	}
	return nil
}

func (c *Context) CreateShader(stage gpu.ShaderStage) gpu.Shader {
	s := gpu.Shader(gl.CreateShader(shaderType(stage)))
	if s != 0 {
		c.shaders[s] = &shaderInfo{}
	}
	return s
}

func (c *Context) ShaderSource(s gpu.Shader, source string) {
	info, ok := c.shaders[s]
	if !ok {
		return
	}
	out, err := c.translate(source, c.stage(s))
	if err != nil {
		info.failure = err.Error()
		info.names = nil
		c.log.Debug("glbackend: shader translation failed", "shader", s, "err", err)
		return
	}
	info.failure = ""
	info.names = out.Names

	csources, free := gl.Strs(out.Code + "\x00")
	gl.ShaderSource(uint32(s), 1, csources, nil)
	free()
}

func (c *Context) stage(s gpu.Shader) gpu.ShaderStage {
	var kind int32
	gl.GetShaderiv(uint32(s), gl.SHADER_TYPE, &kind)
	if uint32(kind) == gl.VERTEX_SHADER {
		return gpu.VertexShader
	}
	return gpu.FragmentShader
}

func (c *Context) CompileShader(s gpu.Shader) {
	if info, ok := c.shaders[s]; ok && info.failure != "" {
		return
	}
	gl.CompileShader(uint32(s))
}

func (c *Context) ShaderCompiled(s gpu.Shader) bool {
	if info, ok := c.shaders[s]; ok && info.failure != "" {
		return false
	}
	var status int32
	gl.GetShaderiv(uint32(s), gl.COMPILE_STATUS, &status)
	return status != gl.FALSE
}

func (c *Context) ShaderInfoLog(s gpu.Shader) string {
	if info, ok := c.shaders[s]; ok && info.failure != "" {
		return info.failure
	}
	var logLength int32
	gl.GetShaderiv(uint32(s), gl.INFO_LOG_LENGTH, &logLength)
	if logLength == 0 {
		return ""
	}
	logText := strings.Repeat("\x00", int(logLength+1))
	gl.GetShaderInfoLog(uint32(s), logLength, nil, gl.Str(logText))
	return strings.TrimRight(logText, "\x00")
}

func (c *Context) DeleteShader(s gpu.Shader) {
	delete(c.shaders, s)
	gl.DeleteShader(uint32(s))
}

func (c *Context) CreateProgram() gpu.Program {
	p := gpu.Program(gl.CreateProgram())
	if p != 0 {
		c.programs[p] = &programInfo{}
	}
	return p
}

func (c *Context) AttachShader(p gpu.Program, s gpu.Shader) {
	if info, ok := c.programs[p]; ok {
		info.attached = append(info.attached, s)
	}
	gl.AttachShader(uint32(p), uint32(s))
}

func (c *Context) DetachShader(p gpu.Program, s gpu.Shader) {
	if info, ok := c.programs[p]; ok {
		for i, attached := range info.attached {
			if attached == s {
				info.attached = append(info.attached[:i:i], info.attached[i+1:]...)
				break
			}
		}
	}
	gl.DetachShader(uint32(p), uint32(s))
}

// LinkProgram links p and snapshots the name maps of its shaders, so lookups
// keep working after the shaders are detached.
func (c *Context) LinkProgram(p gpu.Program) {
	if info, ok := c.programs[p]; ok {
		info.names = make(map[string]string)
		for _, s := range info.attached {
			if sh, ok := c.shaders[s]; ok {
				for k, v := range sh.names {
					info.names[k] = v
				}
			}
		}
	}
	gl.LinkProgram(uint32(p))
}

func (c *Context) ProgramLinked(p gpu.Program) bool {
	var status int32
	gl.GetProgramiv(uint32(p), gl.LINK_STATUS, &status)
	return status != gl.FALSE
}

func (c *Context) ProgramInfoLog(p gpu.Program) string {
	var logLength int32
	gl.GetProgramiv(uint32(p), gl.INFO_LOG_LENGTH, &logLength)
	if logLength == 0 {
		return ""
	}
	logText := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(uint32(p), logLength, nil, gl.Str(logText))
	return strings.TrimRight(logText, "\x00")
}

func (c *Context) UseProgram(p gpu.Program) { gl.UseProgram(uint32(p)) }

func (c *Context) DeleteProgram(p gpu.Program) {
	delete(c.programs, p)
	gl.DeleteProgram(uint32(p))
}

func (c *Context) AttribLocation(p gpu.Program, name string) int32 {
	if info, ok := c.programs[p]; ok {
		name = info.name(name)
	}
	return gl.GetAttribLocation(uint32(p), gl.Str(name+"\x00"))
}

func (c *Context) UniformLocation(p gpu.Program, name string) gpu.UniformLocation {
	if info, ok := c.programs[p]; ok {
		name = info.name(name)
	}
	return gpu.UniformLocation(gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00")))
}

func (c *Context) CreateBuffer() gpu.Buffer {
	var b uint32
	gl.GenBuffers(1, &b)
	return gpu.Buffer(b)
}

func (c *Context) BindBuffer(target gpu.BufferTarget, b gpu.Buffer) {
	gl.BindBuffer(bufferTarget(target), uint32(b))
}

func (c *Context) BufferFloat32(target gpu.BufferTarget, data []float32) {
	if len(data) == 0 {
		return
	}
	gl.BufferData(bufferTarget(target), len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
}

func (c *Context) BufferUint16(target gpu.BufferTarget, data []uint16) {
	if len(data) == 0 {
		return
	}
	gl.BufferData(bufferTarget(target), len(data)*2, gl.Ptr(data), gl.STATIC_DRAW)
}

func (c *Context) DeleteBuffer(b gpu.Buffer) {
	id := uint32(b)
	gl.DeleteBuffers(1, &id)
}

func (c *Context) EnableVertexAttribArray(index uint32) { gl.EnableVertexAttribArray(index) }

func (c *Context) VertexAttribPointer(index uint32, size, stride int32, offset int) {
	gl.VertexAttribPointerWithOffset(index, size, gl.FLOAT, false, stride, uintptr(offset))
}

func (c *Context) Viewport(x, y, width, height int32) { gl.Viewport(x, y, width, height) }
func (c *Context) ClearColor(r, g, b, a float32)      { gl.ClearColor(r, g, b, a) }
func (c *Context) Clear()                             { gl.Clear(gl.COLOR_BUFFER_BIT) }

func (c *Context) DrawArrays(mode gpu.DrawMode, first, count int32) {
	gl.DrawArrays(drawMode(mode), first, count)
}

func (c *Context) DrawElements(mode gpu.DrawMode, count int32) {
	gl.DrawElements(drawMode(mode), count, gl.UNSIGNED_SHORT, nil)
}

// ReadPixels reads RGBA bytes from the bound framebuffer, bottom row first.
func (c *Context) ReadPixels(x, y, width, height int32) []byte {
	if width <= 0 || height <= 0 {
		return nil
	}
	buf := make([]byte, int(width)*int(height)*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(x, y, width, height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(buf))
	return buf
}

func (c *Context) Uniform1f(loc gpu.UniformLocation, v float32) { gl.Uniform1f(int32(loc), v) }
func (c *Context) Uniform1i(loc gpu.UniformLocation, v int32)   { gl.Uniform1i(int32(loc), v) }

func (c *Context) Uniform1fv(loc gpu.UniformLocation, v []float32) {
	if len(v) > 0 {
		gl.Uniform1fv(int32(loc), int32(len(v)), &v[0])
	}
}

func (c *Context) Uniform2fv(loc gpu.UniformLocation, v []float32) {
	if len(v) >= 2 {
		gl.Uniform2fv(int32(loc), int32(len(v)/2), &v[0])
	}
}

func (c *Context) Uniform3fv(loc gpu.UniformLocation, v []float32) {
	if len(v) >= 3 {
		gl.Uniform3fv(int32(loc), int32(len(v)/3), &v[0])
	}
}

func (c *Context) Uniform4fv(loc gpu.UniformLocation, v []float32) {
	if len(v) >= 4 {
		gl.Uniform4fv(int32(loc), int32(len(v)/4), &v[0])
	}
}

func (c *Context) UniformMatrix2fv(loc gpu.UniformLocation, v []float32) {
	if len(v) >= 4 {
		gl.UniformMatrix2fv(int32(loc), int32(len(v)/4), false, &v[0])
	}
}

func (c *Context) UniformMatrix3fv(loc gpu.UniformLocation, v []float32) {
	if len(v) >= 9 {
		gl.UniformMatrix3fv(int32(loc), int32(len(v)/9), false, &v[0])
	}
}

func (c *Context) UniformMatrix4fv(loc gpu.UniformLocation, v []float32) {
	if len(v) >= 16 {
		gl.UniformMatrix4fv(int32(loc), int32(len(v)/16), false, &v[0])
	}
}

func (c *Context) CreateVertexArray() gpu.VertexArray {
	var v uint32
	gl.GenVertexArrays(1, &v)
	return gpu.VertexArray(v)
}

func (c *Context) BindVertexArray(v gpu.VertexArray) { gl.BindVertexArray(uint32(v)) }

func (c *Context) DeleteVertexArray(v gpu.VertexArray) {
	id := uint32(v)
	gl.DeleteVertexArrays(1, &id)
}

func shaderType(stage gpu.ShaderStage) uint32 {
	if stage == gpu.VertexShader {
		return gl.VERTEX_SHADER
	}
	return gl.FRAGMENT_SHADER
}

func bufferTarget(t gpu.BufferTarget) uint32 {
	if t == gpu.ElementArrayBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func drawMode(m gpu.DrawMode) uint32 {
	if m == gpu.TriangleStrip {
		return gl.TRIANGLE_STRIP
	}
	return gl.TRIANGLES
}
