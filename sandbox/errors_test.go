package sandbox

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/richinsley/goshadersandbox/gpu"
)

func TestParseErrorLines(t *testing.T) {
	tests := []struct {
		name string
		log  string
		want []int
	}{
		{"angle", "ERROR: 0:15: 'foo' : undeclared identifier\nERROR: 0:3: 'bar' : syntax error", []int{3, 15}},
		{"firefox", "ERROR: :7: 'x' : bad", []int{7}},
		{"mesa", "0:12(5): error: syntax error, unexpected IDENTIFIER", []int{12}},
		{"mesa source index", "1:15(7): error: syntax error", []int{15}},
		{"bare", "4: something\n9: something else", []int{4, 9}},
		{"duplicates", "ERROR: 0:5: a\nERROR: 0:5: b", []int{5}},
		{"zero dropped", "0:0(1): error: preprocessor", []int{}},
		{"unrecognized", "link failed for unknown reasons", []int{}},
		{"empty", "", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseErrorLines(tt.log)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseErrorLines(%q) = %v, want %v", tt.log, got, tt.want)
			}
		})
	}
}

func TestErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		err  Error
		want error
	}{
		{&ContextError{code: CodeContextUnavailable}, ErrContextUnavailable},
		{&ContextError{code: CodeContextCreationFailed}, ErrContextCreationFailed},
		{&VersionMismatchError{Vertex: gpu.Version1, Fragment: gpu.Version2}, ErrVersionMismatch},
		{newShaderCompilationError(gpu.FragmentShader, "src", "ERROR: 0:2: x"), ErrShaderCompilation},
		{&ProgramLinkError{Log: "nope"}, ErrProgramLink},
		{&InvalidUniformError{Name: "u", Reason: "bad"}, ErrInvalidUniform},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%T (%s) does not match %v", tt.err, tt.err.Code(), tt.want)
		}
		wrapped := fmt.Errorf("outer: %w", tt.err)
		if !errors.Is(wrapped, tt.want) {
			t.Errorf("wrapped %T does not match %v", tt.err, tt.want)
		}
		if errors.Is(tt.err, ErrProgramLink) != (tt.want == ErrProgramLink) {
			t.Errorf("%T matched a foreign sentinel", tt.err)
		}
	}
}

func TestShaderCompilationErrorMessage(t *testing.T) {
	err := newShaderCompilationError(gpu.VertexShader, "src", "ERROR: 0:4: 'x' : oops")
	msg := err.Error()
	if !strings.Contains(msg, "vertex shader compilation failed at line(s): 4") {
		t.Errorf("message = %q", msg)
	}
}

func TestContextErrorUnwrap(t *testing.T) {
	cause := errors.New("driver said no")
	err := &ContextError{code: CodeContextCreationFailed, Err: fmt.Errorf("webgl2: %w", cause)}
	if !errors.Is(err, cause) {
		t.Error("ContextError does not unwrap to its cause")
	}
}
