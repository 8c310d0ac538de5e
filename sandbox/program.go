package sandbox

import (
	"log/slog"

	"github.com/richinsley/goshadersandbox/gpu"
)

// Program owns one linked shader program and its two shader stages.
type Program struct {
	gl       gpu.Context
	program  gpu.Program
	vertex   gpu.Shader
	fragment gpu.Shader
	version  gpu.Version
	log      *slog.Logger
}

// NewProgram returns an empty program. A nil log uses the package logger.
func NewProgram(gl gpu.Context, log *slog.Logger) *Program {
	if log == nil {
		log = Logger()
	}
	return &Program{gl: gl, version: gpu.Version1, log: log}
}

// Compile releases any previous program, then compiles and links the pair.
// A version mismatch is reported before any GPU call. On failure nothing
// stays allocated.
func (p *Program) Compile(vertexSource, fragmentSource string) error {
	p.Destroy()

	vv := gpu.DetectVersion(vertexSource)
	fv := gpu.DetectVersion(fragmentSource)
	if vv != fv {
		return &VersionMismatchError{Vertex: vv, Fragment: fv}
	}

	vs, err := p.compileShader(gpu.VertexShader, vertexSource)
	if err != nil {
		return err
	}
	fs, err := p.compileShader(gpu.FragmentShader, fragmentSource)
	if err != nil {
		p.gl.DeleteShader(vs)
		return err
	}

	prog, err := p.link(vs, fs)
	if err != nil {
		p.gl.DeleteShader(vs)
		p.gl.DeleteShader(fs)
		return err
	}

	p.program, p.vertex, p.fragment = prog, vs, fs
	p.version = vv
	p.log.Debug("sandbox: program linked", "program", prog, "version", vv)
	return nil
}

func (p *Program) compileShader(stage gpu.ShaderStage, source string) (gpu.Shader, error) {
	s := p.gl.CreateShader(stage)
	if s == 0 {
		return 0, newShaderCompilationError(stage, source, "failed to create shader object")
	}
	p.gl.ShaderSource(s, source)
	p.gl.CompileShader(s)
	if !p.gl.ShaderCompiled(s) {
		log := p.gl.ShaderInfoLog(s)
		if log == "" {
			log = "unknown error"
		}
		p.gl.DeleteShader(s)
		return 0, newShaderCompilationError(stage, source, log)
	}
	return s, nil
}

func (p *Program) link(vs, fs gpu.Shader) (gpu.Program, error) {
	prog := p.gl.CreateProgram()
	if prog == 0 {
		return 0, &ProgramLinkError{Log: "failed to create program object"}
	}
	p.gl.AttachShader(prog, vs)
	p.gl.AttachShader(prog, fs)
	p.gl.LinkProgram(prog)
	if !p.gl.ProgramLinked(prog) {
		log := p.gl.ProgramInfoLog(prog)
		if log == "" {
			log = "unknown error"
		}
		p.gl.DetachShader(prog, vs)
		p.gl.DetachShader(prog, fs)
		p.gl.DeleteProgram(prog)
		return 0, &ProgramLinkError{Log: log}
	}
	return prog, nil
}

// Use binds the program. It does nothing before a successful Compile.
func (p *Program) Use() {
	if p.program != 0 {
		p.gl.UseProgram(p.program)
	}
}

func (p *Program) AttribLocation(name string) int32 {
	if p.program == 0 {
		return -1
	}
	return p.gl.AttribLocation(p.program, name)
}

func (p *Program) UniformLocation(name string) gpu.UniformLocation {
	if p.program == 0 {
		return gpu.NoUniform
	}
	return p.gl.UniformLocation(p.program, name)
}

func (p *Program) Handle() gpu.Program  { return p.program }
func (p *Program) Linked() bool         { return p.program != 0 }
func (p *Program) Version() gpu.Version { return p.version }

// Destroy detaches and deletes both stages and the program. It is safe to
// call repeatedly.
func (p *Program) Destroy() {
	if p.program != 0 {
		if p.vertex != 0 {
			p.gl.DetachShader(p.program, p.vertex)
		}
		if p.fragment != 0 {
			p.gl.DetachShader(p.program, p.fragment)
		}
		p.gl.DeleteProgram(p.program)
		p.program = 0
	}
	if p.vertex != 0 {
		p.gl.DeleteShader(p.vertex)
		p.vertex = 0
	}
	if p.fragment != 0 {
		p.gl.DeleteShader(p.fragment)
		p.fragment = 0
	}
}
