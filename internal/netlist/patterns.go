package netlist

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/bsv-synth/internal/design"
)

const identifier = `(\\\S+|[A-Za-z_][\w$]*)`

var (
	// Pattern: module / macromodule keyword (never matches inside endmodule)
	moduleKeywordPattern = regexp.MustCompile(`\b(?:macro)?module\b`)

	// Pattern: endmodule
	endModulePattern = regexp.MustCompile(`\bendmodule\b`)

	// Pattern: module <name>
	moduleHeaderPattern = regexp.MustCompile(`^\s*(?:macro)?module\s+` + identifier)

	// Pattern: <type> [#(<params>)] <instance> [<range>] (<connections>)
	instancePattern = regexp.MustCompile(`^` + identifier + `(?:\s*#\s*\(.*?\)\s*|\s+)` + identifier + `\s*(?:\[[^\]]*\])?\s*\(.*\)$`)

	// Pattern: <gate> [#(<delay>)] [<instance>] (<terminals>)
	gatePattern = regexp.MustCompile(`^(and|nand|or|nor|xor|xnor|not|buf|bufif0|bufif1|notif0|notif1)\b\s*(?:#\s*\(.*?\)\s*)?` + identifier + `?\s*\(.*\)$`)

	// Pattern: leading block keywords left over from the previous statement
	leadingKeywordPattern = regexp.MustCompile(`^(?:begin|end|else|endcase|endgenerate|endfunction|endtask|endspecify|generate|fork|join)\b\s*(?::\s*[A-Za-z_][\w$]*\s*)?`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// keywords can never name a module type or an instance.
var keywords = map[string]bool{
	"always": true, "always_comb": true, "always_ff": true, "always_latch": true,
	"assign": true, "automatic": true, "begin": true, "case": true, "casex": true,
	"casez": true, "deassign": true, "default": true, "defparam": true, "disable": true,
	"else": true, "end": true, "endcase": true, "endfunction": true, "endgenerate": true,
	"endtask": true, "for": true, "force": true, "forever": true, "function": true,
	"generate": true, "genvar": true, "if": true, "initial": true, "inout": true,
	"input": true, "integer": true, "localparam": true, "logic": true, "output": true,
	"parameter": true, "real": true, "reg": true, "release": true, "repeat": true,
	"return": true, "signed": true, "specify": true, "supply0": true, "supply1": true,
	"task": true, "time": true, "tri": true, "tri0": true, "tri1": true, "unsigned": true,
	"wait": true, "wand": true, "while": true, "wire": true, "wor": true,
}

// parseSimple is the pattern-based netlist parser.
// It understands the structural subset that compilers emit: module headers,
// module and gate instantiations, and behavioral code it can skip over.
func parseSimple(path string, content []byte) (File, error) {
	f := File{Path: path}
	text := string(blankOut(content))
	lines := newLineIndex(text)

	declared := make(map[string]int)
	pos := 0
	for {
		loc := moduleKeywordPattern.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		line := lines.lineOf(start)

		headerEnd := strings.IndexByte(text[start:], ';')
		if headerEnd < 0 {
			return f, fmt.Errorf("%s:%d: %w: module header is not terminated", path, line, ErrSyntax)
		}
		headerEnd += start

		m := moduleHeaderPattern.FindStringSubmatch(text[start:headerEnd])
		if m == nil {
			return f, fmt.Errorf("%s:%d: %w: module declaration has no name", path, line, ErrSyntax)
		}
		decl := ModuleDecl{Name: design.Unescape(m[1]), Line: line}
		if first, ok := declared[decl.Name]; ok {
			return f, fmt.Errorf("%s:%d: %w: %s (first defined at line %d)",
				path, line, design.ErrDuplicateModule, decl.Name, first)
		}
		declared[decl.Name] = line

		endLoc := endModulePattern.FindStringIndex(text[headerEnd:])
		if endLoc == nil {
			return f, fmt.Errorf("%s:%d: %w: module %s is missing endmodule", path, line, ErrSyntax, decl.Name)
		}
		bodyStart := headerEnd + 1
		bodyEnd := headerEnd + endLoc[0]
		body := text[bodyStart:bodyEnd]
		if nested := moduleKeywordPattern.FindStringIndex(body); nested != nil {
			return f, fmt.Errorf("%s:%d: %w: module %s is missing endmodule", path, line, ErrSyntax, decl.Name)
		}

		insts, err := parseModuleBody(path, body, bodyStart, lines)
		if err != nil {
			return f, err
		}
		decl.Instances = insts
		f.Modules = append(f.Modules, decl)

		pos = headerEnd + endLoc[1]
	}

	return f, nil
}

func parseModuleBody(path, body string, offset int, lines lineIndex) ([]Instance, error) {
	var insts []Instance
	names := make(map[string]bool)
	anonymous := 0

	stmtStart := 0
	for stmtStart < len(body) {
		end := strings.IndexByte(body[stmtStart:], ';')
		if end < 0 {
			break
		}
		raw := body[stmtStart : stmtStart+end]
		lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
		line := lines.lineOf(offset + stmtStart + lead)
		stmtStart += end + 1

		stmt := stripLeadingKeywords(whitespacePattern.ReplaceAllString(strings.TrimSpace(raw), " "))
		if stmt == "" {
			continue
		}

		inst, ok := matchInstance(stmt, line, &anonymous)
		if !ok {
			continue
		}
		if names[inst.Name] {
			return nil, fmt.Errorf("%s:%d: %w: %s", path, line, design.ErrDuplicateCell, inst.Name)
		}
		names[inst.Name] = true
		insts = append(insts, inst)
	}

	return insts, nil
}

// matchInstance returns the instance declared by stmt, if any
func matchInstance(stmt string, line int, anonymous *int) (Instance, bool) {
	if m := gatePattern.FindStringSubmatch(stmt); m != nil {
		gate := m[1]
		name := design.Unescape(m[2])
		if name == "" {
			*anonymous++
			name = anonymousGateName(gate, *anonymous)
		}
		return Instance{Name: name, Type: string(design.InternalMarker) + gate, Line: line}, true
	}

	m := instancePattern.FindStringSubmatch(stmt)
	if m == nil {
		return Instance{}, false
	}
	typeName, instName := design.Unescape(m[1]), design.Unescape(m[2])
	if keywords[typeName] || keywords[instName] {
		return Instance{}, false
	}
	return Instance{Name: instName, Type: typeName, Line: line}, true
}

func stripLeadingKeywords(stmt string) string {
	for {
		loc := leadingKeywordPattern.FindStringIndex(stmt)
		if loc == nil || loc[1] == 0 {
			return stmt
		}
		stmt = stmt[loc[1]:]
	}
}

// blankOut replaces comments, string literal contents and compiler directive
// lines with spaces. Of each `ifdef/`ifndef block only the first branch is
// kept; `elsif and `else branches are blanked as well. Newlines and byte
// offsets are preserved.
func blankOut(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)

	// one entry per open conditional, true once past its first branch
	var cond []bool
	skipping := func() bool {
		for _, past := range cond {
			if past {
				return true
			}
		}
		return false
	}
	blank := func(from, to int) {
		for ; from < to && from < len(out); from++ {
			if out[from] != '\n' {
				out[from] = ' '
			}
		}
	}

	lineStart := true
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case c == '\n':
			lineStart = true
			continue
		case c == ' ' || c == '\t' || c == '\r':
			continue
		case c == '`' && lineStart:
			j := i + 1
			for j < len(out) && isIdentByte(out[j]) {
				j++
			}
			switch string(out[i+1 : j]) {
			case "ifdef", "ifndef":
				cond = append(cond, false)
			case "elsif", "else":
				if len(cond) > 0 {
					cond[len(cond)-1] = true
				}
			case "endif":
				if len(cond) > 0 {
					cond = cond[:len(cond)-1]
				}
			}
			for ; i < len(out) && out[i] != '\n'; i++ {
				out[i] = ' '
			}
			i--
		case c == '/' && i+1 < len(out) && out[i+1] == '/':
			for ; i < len(out) && out[i] != '\n'; i++ {
				out[i] = ' '
			}
			i--
		case c == '/' && i+1 < len(out) && out[i+1] == '*':
			out[i], out[i+1] = ' ', ' '
			i += 2
			for ; i < len(out); i++ {
				if out[i] == '*' && i+1 < len(out) && out[i+1] == '/' {
					out[i], out[i+1] = ' ', ' '
					i++
					break
				}
				if out[i] != '\n' {
					out[i] = ' '
				}
			}
		case c == '"':
			start := i
			for i++; i < len(out) && out[i] != '"' && out[i] != '\n'; i++ {
				if out[i] == '\\' && i+1 < len(out) && out[i+1] != '\n' {
					out[i] = ' '
					i++
				}
				out[i] = ' '
			}
			if skipping() {
				blank(start, i+1)
			}
		case c == '\\':
			// escaped identifier: copied verbatim up to the terminating whitespace
			start := i
			for i+1 < len(out) && !isSpace(out[i+1]) {
				i++
			}
			if skipping() {
				blank(start, i+1)
			}
		default:
			if skipping() {
				out[i] = ' '
			}
		}
		lineStart = false
	}

	return out
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// lineIndex maps byte offsets to 1-based line numbers
type lineIndex []int

func newLineIndex(text string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (l lineIndex) lineOf(offset int) int {
	return sort.Search(len(l), func(i int) bool { return l[i] > offset })
}
