package sandbox

import (
	"errors"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshadersandbox/gpu"
)

// Built-in uniforms written by the engine every frame.
const (
	UniformResolution = "u_resolution"
	UniformTime       = "u_time"
	UniformDelta      = "u_delta"
	UniformMouse      = "u_mouse"
	UniformFrame      = "u_frame"
)

var builtIns = []string{UniformResolution, UniformTime, UniformDelta, UniformMouse, UniformFrame}

// IsBuiltIn reports whether name is reserved for the engine.
func IsBuiltIn(name string) bool {
	for _, b := range builtIns {
		if b == name {
			return true
		}
	}
	return false
}

// Uniforms is the uniform store of one engine. Entries keep insertion order.
type Uniforms struct {
	gl      gpu.Context
	program *Program
	entries map[string]*Uniform
	order   []string
}

func NewUniforms(gl gpu.Context) *Uniforms {
	return &Uniforms{gl: gl, entries: make(map[string]*Uniform)}
}

// Set creates or updates a user uniform. Built-in names and values outside
// the supported shapes are rejected with an InvalidUniformError.
func (s *Uniforms) Set(name string, value any) error {
	if IsBuiltIn(name) {
		return &InvalidUniformError{Name: name, Value: value, Reason: "name is reserved for a built-in uniform"}
	}
	return s.set(name, value)
}

func (s *Uniforms) set(name string, value any) error {
	if u, ok := s.entries[name]; ok {
		return u.SetValue(value)
	}
	u, err := NewUniform(name, value)
	if err != nil {
		return err
	}
	s.entries[name] = u
	s.order = append(s.order, name)
	return nil
}

// SetMany sets every value in name order. Valid entries are applied even
// when others fail; the failures are joined.
func (s *Uniforms) SetMany(values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := s.Set(name, values[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns exactly the value last set for name.
func (s *Uniforms) Get(name string) (any, bool) {
	u, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	return u.Value(), true
}

func (s *Uniforms) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// Delete removes name and reports whether it existed.
func (s *Uniforms) Delete(name string) bool {
	if _, ok := s.entries[name]; !ok {
		return false
	}
	delete(s.entries, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Names returns the tracked names in insertion order.
func (s *Uniforms) Names() []string {
	return append([]string(nil), s.order...)
}

// Lookup returns the entry for name.
func (s *Uniforms) Lookup(name string) (*Uniform, bool) {
	u, ok := s.entries[name]
	return u, ok
}

// AttachProgram switches the store to p and drops every cached location.
func (s *Uniforms) AttachProgram(p *Program) {
	s.program = p
	for _, u := range s.entries {
		u.Invalidate()
	}
}

// UploadBuiltIns refreshes the five built-ins and uploads only those.
func (s *Uniforms) UploadBuiltIns(state ClockState, resolution, mouse mgl32.Vec2) {
	s.setBuiltIn(UniformResolution, resolution)
	s.setBuiltIn(UniformTime, state.Time)
	s.setBuiltIn(UniformDelta, state.Delta)
	s.setBuiltIn(UniformMouse, mouse)
	s.setBuiltIn(UniformFrame, float64(state.Frame))

	if !s.ready() {
		return
	}
	for _, name := range builtIns {
		s.entries[name].Upload(s.gl, s.program)
	}
}

func (s *Uniforms) setBuiltIn(name string, value any) {
	// Built-in values always have a valid shape.
	_ = s.set(name, value)
}

// UploadAll uploads every tracked uniform, built-ins included, to the
// attached program.
func (s *Uniforms) UploadAll() {
	if !s.ready() {
		return
	}
	for _, name := range s.order {
		s.entries[name].Upload(s.gl, s.program)
	}
}

func (s *Uniforms) ready() bool {
	return s.program != nil && s.program.Linked()
}

// Destroy drops every entry and the attached program.
func (s *Uniforms) Destroy() {
	s.entries = make(map[string]*Uniform)
	s.order = nil
	s.program = nil
}
