package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gmlewis/gfxscope/graphics"
)

// ShaderProgram is a linked GLSL program.
// Begin makes it the current program and End unbinds it.
type ShaderProgram struct {
	program  uint32
	uniforms map[string]int32
}

var _ graphics.ShaderProgram = &ShaderProgram{}

// NewShaderProgram compiles and links a vertex and fragment shader.
func NewShaderProgram(vertexShaderSource, fragmentShaderSource string) (*ShaderProgram, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(fragmentShader)

	program := gl.CreateProgram()

	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		return nil, fmt.Errorf("failed to link program: %v", log)
	}

	return &ShaderProgram{program: program, uniforms: map[string]int32{}}, nil
}

// Handle returns the GL program name.
func (s *ShaderProgram) Handle() uint32 { return s.program }

func (s *ShaderProgram) Begin() { gl.UseProgram(s.program) }
func (s *ShaderProgram) End()   { gl.UseProgram(0) }

// UniformLocation returns the location of the named uniform, or -1 if the
// program has no active uniform with that name.
func (s *ShaderProgram) UniformLocation(name string) int32 {
	if loc, ok := s.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(s.program, gl.Str(cString(name)))
	if loc < 0 {
		graphics.Logger().Warn("uniform not found", "name", name, "program", s.program)
	}
	s.uniforms[name] = loc
	return loc
}

// AttributeLocation returns the location of the named vertex attribute.
func (s *ShaderProgram) AttributeLocation(name string) int32 {
	return gl.GetAttribLocation(s.program, gl.Str(cString(name)))
}

// SetUniformMatrix sets a mat4 uniform. The program must be bound.
func (s *ShaderProgram) SetUniformMatrix(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(s.UniformLocation(name), 1, false, &m[0])
}

// SetUniformf sets a float uniform. The program must be bound.
func (s *ShaderProgram) SetUniformf(name string, v float32) {
	gl.Uniform1f(s.UniformLocation(name), v)
}

// SetUniformi sets an int uniform. The program must be bound.
func (s *ShaderProgram) SetUniformi(name string, v int32) {
	gl.Uniform1i(s.UniformLocation(name), v)
}

// Dispose deletes the program.
func (s *ShaderProgram) Dispose() {
	if s.program != 0 {
		gl.DeleteProgram(s.program)
		s.program = 0
	}
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(cString(source))
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("failed to compile %v: %v", source, log)
	}

	return shader, nil
}

// cString null-terminates s for the GL string helpers.
func cString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}
