package sandbox

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/richinsley/goshadersandbox/gpu"
)

// Code is the machine-readable kind of a sandbox error.
type Code string

const (
	CodeContextUnavailable     Code = "CONTEXT_UNAVAILABLE"
	CodeContextCreationFailed  Code = "CONTEXT_CREATION_FAILED"
	CodeShaderVersionMismatch  Code = "SHADER_VERSION_MISMATCH"
	CodeShaderCompilationError Code = "SHADER_COMPILATION_FAILED"
	CodeProgramLinkFailed      Code = "PROGRAM_LINK_FAILED"
	CodeInvalidUniform         Code = "INVALID_UNIFORM"
)

// Error is implemented by every error the sandbox reports.
type Error interface {
	error
	Code() Code
}

// Sentinels for errors.Is. Any sandbox error matches the sentinel of its code.
var (
	ErrContextUnavailable    error = codeError(CodeContextUnavailable)
	ErrContextCreationFailed error = codeError(CodeContextCreationFailed)
	ErrVersionMismatch       error = codeError(CodeShaderVersionMismatch)
	ErrShaderCompilation     error = codeError(CodeShaderCompilationError)
	ErrProgramLink           error = codeError(CodeProgramLinkFailed)
	ErrInvalidUniform        error = codeError(CodeInvalidUniform)
)

type codeError Code

func (e codeError) Error() string { return string(e) }
func (e codeError) Code() Code    { return Code(e) }

func isCode(target error, code Code) bool {
	var c codeError
	return errors.As(target, &c) && Code(c) == code
}

// ContextError reports that no rendering context could be obtained.
type ContextError struct {
	code Code
	Err  error
}

func (e *ContextError) Code() Code { return e.code }

func (e *ContextError) Error() string {
	if e.code == CodeContextUnavailable {
		return "sandbox: no version 2 or version 1 rendering context is available"
	}
	if e.Err != nil {
		return fmt.Sprintf("sandbox: failed to create rendering context: %v", e.Err)
	}
	return "sandbox: failed to create rendering context"
}

func (e *ContextError) Unwrap() error        { return e.Err }
func (e *ContextError) Is(target error) bool { return isCode(target, e.code) }

// VersionMismatchError reports a vertex/fragment pair written for different
// API versions.
type VersionMismatchError struct {
	Vertex, Fragment gpu.Version
}

func (e *VersionMismatchError) Code() Code { return CodeShaderVersionMismatch }

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("sandbox: vertex and fragment shader versions do not match (%d vs %d)", e.Vertex, e.Fragment)
}

func (e *VersionMismatchError) Is(target error) bool { return isCode(target, CodeShaderVersionMismatch) }

// ShaderCompilationError carries the compiler output of a failed stage.
type ShaderCompilationError struct {
	Stage  gpu.ShaderStage
	Source string
	Log    string
	// Lines are the 1-based source lines named by Log, sorted and unique.
	Lines []int
}

func newShaderCompilationError(stage gpu.ShaderStage, source, log string) *ShaderCompilationError {
	return &ShaderCompilationError{Stage: stage, Source: source, Log: log, Lines: ParseErrorLines(log)}
}

func (e *ShaderCompilationError) Code() Code { return CodeShaderCompilationError }

func (e *ShaderCompilationError) Error() string {
	msg := fmt.Sprintf("sandbox: %s shader compilation failed", e.Stage)
	if len(e.Lines) > 0 {
		msg += " at line(s): " + joinInts(e.Lines)
	}
	return msg + "\n\n" + e.Log
}

func (e *ShaderCompilationError) Is(target error) bool {
	return isCode(target, CodeShaderCompilationError)
}

// ProgramLinkError carries the linker output.
type ProgramLinkError struct {
	Log string
}

func (e *ProgramLinkError) Code() Code           { return CodeProgramLinkFailed }
func (e *ProgramLinkError) Error() string        { return "sandbox: shader program linking failed\n\n" + e.Log }
func (e *ProgramLinkError) Is(target error) bool { return isCode(target, CodeProgramLinkFailed) }

// InvalidUniformError rejects a value whose shape has no uniform kind.
type InvalidUniformError struct {
	Name   string
	Value  any
	Reason string
}

func (e *InvalidUniformError) Code() Code { return CodeInvalidUniform }

func (e *InvalidUniformError) Error() string {
	return fmt.Sprintf("sandbox: invalid uniform %q (%T): %s", e.Name, e.Value, e.Reason)
}

func (e *InvalidUniformError) Is(target error) bool { return isCode(target, CodeInvalidUniform) }

var logLinePatterns = []*regexp.Regexp{
	// ANGLE "ERROR: 0:15:" and Firefox "ERROR: :15:"
	regexp.MustCompile(`ERROR:\s*\d*:(\d+)`),
	// Mesa "0:15(7):"
	regexp.MustCompile(`\d+:(\d+)\(\d+\):`),
	// bare "15:" at the start of a line, not the "0:15(" Mesa prefix
	regexp.MustCompile(`(?m)^(\d+):(?:\D|$)`),
}

// ParseErrorLines extracts the source line numbers a compiler log refers to.
// Unrecognized logs yield an empty slice.
func ParseErrorLines(log string) []int {
	seen := make(map[int]bool)
	lines := []int{}
	for _, re := range logLinePatterns {
		for _, m := range re.FindAllStringSubmatch(log, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 || seen[n] {
				continue
			}
			seen[n] = true
			lines = append(lines, n)
		}
	}
	sort.Ints(lines)
	return lines
}

func joinInts(v []int) string {
	s := ""
	for i, n := range v {
		if i > 0 {
			s += ", "
		}
		s += strconv.Itoa(n)
	}
	return s
}
