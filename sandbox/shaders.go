package sandbox

import "github.com/richinsley/goshadersandbox/gpu"

// ──────────────────────────────── version 1 (GLSL ES 1.00) ────────────────────────────────

const vertexShaderV1 = `attribute vec2 a_position;
attribute vec2 a_texcoord;
varying vec2 v_texcoord;

void main() {
    v_texcoord = a_texcoord;
    gl_Position = vec4(a_position, 0.0, 1.0);
}
`

const fragmentShaderV1 = `precision mediump float;
uniform vec2 u_resolution;
uniform float u_time;
varying vec2 v_texcoord;

void main() {
    vec3 col = 0.5 + 0.5 * cos(u_time + v_texcoord.xyx + vec3(0.0, 2.0, 4.0));
    gl_FragColor = vec4(col, 1.0);
}
`

// ──────────────────────────────── version 2 (GLSL ES 3.00) ────────────────────────────────

const vertexShaderV2 = `#version 300 es
in vec2 a_position;
in vec2 a_texcoord;
out vec2 v_texcoord;

void main() {
    v_texcoord = a_texcoord;
    gl_Position = vec4(a_position, 0.0, 1.0);
}
`

const fragmentShaderV2 = `#version 300 es
precision highp float;
uniform vec2 u_resolution;
uniform float u_time;
in vec2 v_texcoord;
out vec4 fragColor;

void main() {
    vec3 col = 0.5 + 0.5 * cos(u_time + v_texcoord.xyx + vec3(0.0, 2.0, 4.0));
    fragColor = vec4(col, 1.0);
}
`

// DefaultVertex returns the pass-through vertex shader for version v.
func DefaultVertex(v gpu.Version) string {
	if v == gpu.Version2 {
		return vertexShaderV2
	}
	return vertexShaderV1
}

// DefaultFragment returns the default fragment shader for version v.
func DefaultFragment(v gpu.Version) string {
	if v == gpu.Version2 {
		return fragmentShaderV2
	}
	return fragmentShaderV1
}
