package sandbox

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshadersandbox/gpu"
)

// Kind is the GLSL shape a uniform value was recognised as.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindBool
	KindVec2
	KindVec3
	KindVec4
	KindMat2
	KindMat3
	KindMat4
	KindFloatArray
	KindVec2Array
	KindVec3Array
	KindVec4Array
)

var kindNames = [...]string{
	KindFloat:      "float",
	KindInt:        "int",
	KindBool:       "bool",
	KindVec2:       "vec2",
	KindVec3:       "vec3",
	KindVec4:       "vec4",
	KindMat2:       "mat2",
	KindMat3:       "mat3",
	KindMat4:       "mat4",
	KindFloatArray: "float[]",
	KindVec2Array:  "vec2[]",
	KindVec3Array:  "vec3[]",
	KindVec4Array:  "vec4[]",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Int marks a value to be uploaded as a GLSL int rather than a float.
type Int int32

// inferKind maps a Go value onto the closed set of uniform shapes. A flat
// four-element value is always a vec4; 2×2 matrices need mgl32.Mat2.
func inferKind(v any) (Kind, error) {
	switch x := v.(type) {
	case bool:
		return KindBool, nil
	case Int:
		return KindInt, nil
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindFloat, nil

	case [2]float32, [2]float64, mgl32.Vec2:
		return KindVec2, nil
	case [3]float32, [3]float64, mgl32.Vec3:
		return KindVec3, nil
	case [4]float32, [4]float64, mgl32.Vec4:
		return KindVec4, nil
	case mgl32.Mat2:
		return KindMat2, nil
	case [9]float32, [9]float64, mgl32.Mat3:
		return KindMat3, nil
	case [16]float32, [16]float64, mgl32.Mat4:
		return KindMat4, nil

	case []float32:
		return nonEmpty(KindFloatArray, len(x))
	case []float64:
		return nonEmpty(KindFloatArray, len(x))
	case [][2]float32:
		return nonEmpty(KindVec2Array, len(x))
	case [][2]float64:
		return nonEmpty(KindVec2Array, len(x))
	case []mgl32.Vec2:
		return nonEmpty(KindVec2Array, len(x))
	case [][3]float32:
		return nonEmpty(KindVec3Array, len(x))
	case [][3]float64:
		return nonEmpty(KindVec3Array, len(x))
	case []mgl32.Vec3:
		return nonEmpty(KindVec3Array, len(x))
	case [][4]float32:
		return nonEmpty(KindVec4Array, len(x))
	case [][4]float64:
		return nonEmpty(KindVec4Array, len(x))
	case []mgl32.Vec4:
		return nonEmpty(KindVec4Array, len(x))
	case [][]float32:
		return nestedKind(len(x), func(i int) int { return len(x[i]) })
	case [][]float64:
		return nestedKind(len(x), func(i int) int { return len(x[i]) })
	}
	return 0, errors.New("unsupported value shape")
}

func nonEmpty(k Kind, n int) (Kind, error) {
	if n == 0 {
		return 0, fmt.Errorf("empty %s", k)
	}
	return k, nil
}

func nestedKind(n int, inner func(int) int) (Kind, error) {
	if n == 0 {
		return 0, errors.New("empty vector array")
	}
	width := inner(0)
	for i := 1; i < n; i++ {
		if inner(i) != width {
			return 0, fmt.Errorf("vector array element %d has length %d, want %d", i, inner(i), width)
		}
	}
	switch width {
	case 2:
		return KindVec2Array, nil
	case 3:
		return KindVec3Array, nil
	case 4:
		return KindVec4Array, nil
	}
	return 0, fmt.Errorf("vector array elements have length %d, want 2, 3 or 4", width)
}

// flatten writes a validated value into one contiguous float buffer.
// Matrices keep their column-major order.
func flatten(v any) []float32 {
	var out []float32
	var walk func(r reflect.Value)
	walk = func(r reflect.Value) {
		switch r.Kind() {
		case reflect.Array, reflect.Slice:
			for i := 0; i < r.Len(); i++ {
				walk(r.Index(i))
			}
		case reflect.Float32, reflect.Float64:
			out = append(out, float32(r.Float()))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out = append(out, float32(r.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out = append(out, float32(r.Uint()))
		case reflect.Bool:
			if r.Bool() {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	walk(reflect.ValueOf(v))
	return out
}

// Uniform is one named value plus its location in the attached program.
type Uniform struct {
	name  string
	kind  Kind
	value any

	location gpu.UniformLocation
	resolved bool
}

// NewUniform validates value and returns the entry for it.
func NewUniform(name string, value any) (*Uniform, error) {
	kind, err := inferKind(value)
	if err != nil {
		return nil, &InvalidUniformError{Name: name, Value: value, Reason: err.Error()}
	}
	return &Uniform{name: name, kind: kind, value: value, location: gpu.NoUniform}, nil
}

func (u *Uniform) Name() string { return u.name }
func (u *Uniform) Kind() Kind   { return u.kind }

// Value returns exactly what was last set.
func (u *Uniform) Value() any { return u.value }

// SetValue replaces the value. The kind follows the new value.
func (u *Uniform) SetValue(value any) error {
	kind, err := inferKind(value)
	if err != nil {
		return &InvalidUniformError{Name: u.name, Value: value, Reason: err.Error()}
	}
	u.kind, u.value = kind, value
	return nil
}

// Invalidate forgets the cached location.
func (u *Uniform) Invalidate() {
	u.location = gpu.NoUniform
	u.resolved = false
}

func (u *Uniform) resolve(p *Program) gpu.UniformLocation {
	if !u.resolved {
		u.location = p.UniformLocation(u.name)
		u.resolved = true
	}
	return u.location
}

// Upload writes the value to p, which must be in use. Uniforms the program
// does not expose are skipped.
func (u *Uniform) Upload(gl gpu.Context, p *Program) {
	loc := u.resolve(p)
	if loc == gpu.NoUniform {
		return
	}

	switch u.kind {
	case KindInt:
		gl.Uniform1i(loc, int32(u.value.(Int)))
		return
	case KindBool:
		var b int32
		if u.value.(bool) {
			b = 1
		}
		gl.Uniform1i(loc, b)
		return
	}

	data := flatten(u.value)
	switch u.kind {
	case KindFloat:
		gl.Uniform1f(loc, data[0])
	case KindVec2, KindVec2Array:
		gl.Uniform2fv(loc, data)
	case KindVec3, KindVec3Array:
		gl.Uniform3fv(loc, data)
	case KindVec4, KindVec4Array:
		gl.Uniform4fv(loc, data)
	case KindMat2:
		gl.UniformMatrix2fv(loc, data)
	case KindMat3:
		gl.UniformMatrix3fv(loc, data)
	case KindMat4:
		gl.UniformMatrix4fv(loc, data)
	case KindFloatArray:
		gl.Uniform1fv(loc, data)
	}
}
