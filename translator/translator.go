// Package translator owns the process-wide shader translator used to turn
// WebGL-dialect shaders into desktop GLSL.
package translator

import (
	"context"
	"fmt"
	"sync"

	"github.com/richinsley/goshadersandbox/gpu"
	gst "github.com/richinsley/goshadertranslator"
)

var (
	initOnce   sync.Once
	translator *gst.ShaderTranslator
	initErr    error
)

// Get returns the shared translator, creating it on first use.
func Get() (*gst.ShaderTranslator, error) {
	initOnce.Do(func() {
		translator, initErr = gst.NewShaderTranslator(context.Background())
		if initErr != nil {
			initErr = fmt.Errorf("failed to create shader translator: %w", initErr)
		}
	})
	return translator, initErr
}

// Shader is one translated stage.
type Shader struct {
	Code string
	// Names maps identifiers of the original source to the names used in
	// Code. Identifiers the translator kept as-is are absent.
	Names map[string]string
}

// Name returns the translated name of ident, or ident itself.
func (s *Shader) Name(ident string) string {
	if s != nil {
		if mapped, ok := s.Names[ident]; ok && mapped != "" {
			return mapped
		}
	}
	return ident
}

// Translate converts a GLSL ES 1.00 or 3.00 shader to GLSL 4.10. Both
// dialects are accepted under the WebGL2 rules. Translation errors carry the
// translator's info log, which uses the same "ERROR: 0:line:" format as
// browser compilers.
func Translate(source string, stage gpu.ShaderStage) (*Shader, error) {
	return translate(source, stage, false)
}

// TranslateES is Translate for OpenGL ES 3 contexts.
func TranslateES(source string, stage gpu.ShaderStage) (*Shader, error) {
	return translate(source, stage, true)
}

func translate(source string, stage gpu.ShaderStage, es bool) (*Shader, error) {
	t, err := Get()
	if err != nil {
		return nil, err
	}
	outputFormat := gst.OutputFormatGLSL410
	if es {
		outputFormat = gst.OutputFormatESSL
	}
	out, err := t.TranslateShader(source, stage.String(), gst.ShaderSpecWebGL2, outputFormat)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(out.Variables))
	for name, v := range out.Variables {
		names[name] = v.MappedName
	}
	return &Shader{Code: out.Code, Names: names}, nil
}
