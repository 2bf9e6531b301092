package software

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// glslVar is one `in`, `out` or `uniform` declaration.
type glslVar struct {
	Name  string
	Type  string
	Array bool
}

// glslUnit is what the front end keeps of a compiled stage: its interface.
type glslUnit struct {
	stage       metadata.ShaderStage
	version     int
	inputs      []glslVar
	outputs     []glslVar
	uniforms    []glslVar
	primitiveIn string
	maxVertices int
	body        string
}

const maxGeometryVertices = 256

var (
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	versionRe    = regexp.MustCompile(`^\s*#version\s+(\d+)(\s+core)?\s*$`)
	mainRe       = regexp.MustCompile(`\bvoid\s+main\s*\(\s*(void)?\s*\)\s*\{`)
	declRe       = regexp.MustCompile(`^(?:layout\s*\([^)]*\)\s*)?(?:(?:flat|smooth|noperspective)\s+)?(in|out|uniform)\s+(\w+)\s+(\w+)\s*(\[\s*\d*\s*\])?$`)
	layoutInRe   = regexp.MustCompile(`^layout\s*\(\s*(points|lines|triangles)\s*\)\s*in$`)
	layoutOutRe  = regexp.MustCompile(`^layout\s*\(\s*(points|line_strip|triangle_strip)\s*,\s*max_vertices\s*=\s*(\d+)\s*\)\s*out$`)
	qualifierRe  = regexp.MustCompile(`^(?:layout\s*\([^)]*\)\s*)?(?:(?:flat|smooth|noperspective)\s+)?(in|out|uniform)\b`)
)

func compileError(line int, format string, args ...interface{}) error {
	return fmt.Errorf("ERROR: 0:%d: %s", line, fmt.Sprintf(format, args...))
}

// parseGLSL runs the minimal front end: version directive, balanced
// delimiters, a main entry point and well formed interface declarations.
func parseGLSL(stage metadata.ShaderStage, source string) (*glslUnit, error) {
	src := blockComment.ReplaceAllStringFunc(source, func(s string) string {
		// keep line numbers stable
		return strings.Repeat("\n", strings.Count(s, "\n"))
	})
	src = lineComment.ReplaceAllString(src, "")

	unit := &glslUnit{stage: stage, body: src}

	lines := strings.Split(src, "\n")
	first := -1
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, compileError(0, "empty shader source")
	}
	m := versionRe.FindStringSubmatch(lines[first])
	if m == nil {
		return nil, compileError(first+1, "'' : #version directive missing")
	}
	unit.version, _ = strconv.Atoi(m[1])
	if unit.version < 330 {
		return nil, compileError(first+1, "'%d' : version not supported", unit.version)
	}

	if err := checkDelimiters(src); err != nil {
		return nil, err
	}
	if !mainRe.MatchString(src) {
		return nil, compileError(0, "'main' : function not defined")
	}

	// interface declarations live at global scope, outside any braces
	depth := 0
	line := 1
	var stmt strings.Builder
	stmtLine := 1
	for _, r := range globalText(src) {
		switch r {
		case '{':
			depth++
			stmt.Reset()
		case '}':
			depth--
			stmt.Reset()
		case ';':
			if depth == 0 {
				if err := unit.declare(strings.Join(strings.Fields(stmt.String()), " "), stmtLine); err != nil {
					return nil, err
				}
			}
			stmt.Reset()
		case '\n':
			line++
			stmt.WriteRune(' ')
		default:
			if depth == 0 {
				if strings.TrimSpace(stmt.String()) == "" {
					stmtLine = line
				}
				stmt.WriteRune(r)
			}
		}
	}

	if stage == metadata.ShaderStageGeometry {
		if unit.primitiveIn == "" {
			return nil, compileError(0, "geometry shader is missing an input primitive layout")
		}
		if unit.maxVertices == 0 {
			return nil, compileError(0, "geometry shader is missing max_vertices")
		}
	}
	return unit, nil
}

// globalText blanks preprocessor directives, which end at the newline and
// not at ';'. Newlines are kept so line numbers stay stable.
func globalText(src string) string {
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "#") {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

func checkDelimiters(src string) error {
	var stack []rune
	line := 1
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	for _, r := range src {
		switch r {
		case '\n':
			line++
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return compileError(line, "'%c' : syntax error, unexpected token", r)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return compileError(line, "'' : syntax error, unexpected end of file")
	}
	return nil
}

func (u *glslUnit) declare(stmt string, line int) error {
	if stmt == "" || strings.HasPrefix(stmt, "#") || strings.HasPrefix(stmt, "precision ") {
		return nil
	}
	if m := layoutInRe.FindStringSubmatch(stmt); m != nil {
		if u.stage != metadata.ShaderStageGeometry {
			return compileError(line, "'%s' : input primitive layout only allowed in geometry shaders", m[1])
		}
		u.primitiveIn = m[1]
		return nil
	}
	if m := layoutOutRe.FindStringSubmatch(stmt); m != nil {
		if u.stage != metadata.ShaderStageGeometry {
			return compileError(line, "'%s' : output primitive layout only allowed in geometry shaders", m[1])
		}
		n, _ := strconv.Atoi(m[2])
		if n < 1 || n > maxGeometryVertices {
			return compileError(line, "'max_vertices' : too large, must be at most %d", maxGeometryVertices)
		}
		u.maxVertices = n
		return nil
	}
	m := declRe.FindStringSubmatch(stmt)
	if m == nil {
		if qualifierRe.MatchString(stmt) {
			return compileError(line, "'%s' : syntax error in declaration", stmt)
		}
		// other global statements (functions prototypes, consts) are accepted
		return nil
	}
	v := glslVar{Type: m[2], Name: m[3], Array: m[4] != ""}
	switch m[1] {
	case "in":
		u.inputs = append(u.inputs, v)
	case "out":
		u.outputs = append(u.outputs, v)
	case "uniform":
		u.uniforms = append(u.uniforms, v)
	}
	return nil
}

// uses reports whether name is referenced in the stage beyond its declaration.
func (u *glslUnit) uses(name string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	return len(re.FindAllStringIndex(u.body, 2)) > 1
}

func findVar(vars []glslVar, name string) (glslVar, bool) {
	for _, v := range vars {
		if v.Name == name {
			return v, true
		}
	}
	return glslVar{}, false
}

// linkUnits checks that every stage input is produced by the previous stage
// with the same type, that uniforms agree on their types across stages, and
// returns the active uniform names in declaration order. Outputs nobody
// consumes are allowed.
func linkUnits(units []*glslUnit) ([]string, error) {
	var vertex, fragment *glslUnit
	for _, u := range units {
		switch u.stage {
		case metadata.ShaderStageVertex:
			vertex = u
		case metadata.ShaderStageFragment:
			fragment = u
		}
	}
	if vertex == nil {
		return nil, fmt.Errorf("ERROR: program has no compiled vertex shader")
	}
	if fragment == nil {
		return nil, fmt.Errorf("ERROR: program has no compiled fragment shader")
	}

	for i := 1; i < len(units); i++ {
		prev, cur := units[i-1], units[i]
		for _, in := range cur.inputs {
			out, ok := findVar(prev.outputs, in.Name)
			if !ok {
				return nil, fmt.Errorf("ERROR: input '%s' of the %s shader is not written by the %s shader", in.Name, cur.stage, prev.stage)
			}
			if out.Type != in.Type {
				return nil, fmt.Errorf("ERROR: type mismatch on '%s' between the %s (%s) and %s (%s) shaders", in.Name, prev.stage, out.Type, cur.stage, in.Type)
			}
		}
	}

	types := map[string]string{}
	var active []string
	for _, u := range units {
		for _, v := range u.uniforms {
			if t, ok := types[v.Name]; ok {
				if t != v.Type {
					return nil, fmt.Errorf("ERROR: uniform '%s' declared as both %s and %s", v.Name, t, v.Type)
				}
				continue
			}
			types[v.Name] = v.Type
		}
	}
	seen := map[string]bool{}
	for _, u := range units {
		for _, v := range u.uniforms {
			if seen[v.Name] {
				continue
			}
			for _, w := range units {
				if _, declared := findVar(w.uniforms, v.Name); declared && w.uses(v.Name) {
					seen[v.Name] = true
					active = append(active, v.Name)
					break
				}
			}
		}
	}
	return active, nil
}
