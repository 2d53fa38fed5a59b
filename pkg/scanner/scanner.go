// Package scanner runs the skeleton pass over MEL sources: it finds every
// procedure signature without parsing bodies, so that calls between files can
// be resolved before any file is translated.
package scanner

import (
	"fmt"
	"strings"

	"mel2py/pkg/mel"
)

// Arg is one declared procedure parameter.
type Arg struct {
	Name string
	Type mel.Type
}

// ProcInfo is the signature of one procedure.
type ProcInfo struct {
	Name       string
	ReturnType mel.Type
	Args       []Arg
	Global     bool
	Line       int
}

func (p ProcInfo) String() string {
	var sb strings.Builder
	if p.Global {
		sb.WriteString("global ")
	}
	sb.WriteString("proc ")
	if p.ReturnType != mel.None {
		sb.WriteString(p.ReturnType.String())
		sb.WriteString(" ")
	}
	sb.WriteString(p.Name)
	sb.WriteString("(")
	for i, a := range p.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s $%s", a.Type, a.Name)
	}
	sb.WriteString(")")
	return sb.String()
}

// FileProcs is the procedure index of a single file.
type FileProcs struct {
	Order   []string // declaration order, globals and locals mixed
	Globals map[string]ProcInfo
	Locals  map[string]ProcInfo
}

func NewFileProcs() *FileProcs {
	return &FileProcs{
		Globals: make(map[string]ProcInfo),
		Locals:  make(map[string]ProcInfo),
	}
}

// Add records p. A later declaration with the same name replaces the earlier
// one, as re-sourcing would in MEL.
func (fp *FileProcs) Add(p ProcInfo) {
	if _, ok := fp.Lookup(p.Name); !ok {
		fp.Order = append(fp.Order, p.Name)
	}
	delete(fp.Globals, p.Name)
	delete(fp.Locals, p.Name)
	if p.Global {
		fp.Globals[p.Name] = p
	} else {
		fp.Locals[p.Name] = p
	}
}

// Lookup finds a procedure of this file, local or global.
func (fp *FileProcs) Lookup(name string) (ProcInfo, bool) {
	if fp == nil {
		return ProcInfo{}, false
	}
	if p, ok := fp.Locals[name]; ok {
		return p, true
	}
	p, ok := fp.Globals[name]
	return p, ok
}

// Procs returns the procedures in declaration order.
func (fp *FileProcs) Procs() []ProcInfo {
	out := make([]ProcInfo, 0, len(fp.Order))
	for _, name := range fp.Order {
		if p, ok := fp.Lookup(name); ok {
			out = append(out, p)
		}
	}
	return out
}

// scan is a cursor over the non-comment tokens of one file.
type scan struct {
	tokens []mel.Token
	pos    int
}

func (s *scan) peekAt(offset int) mel.Token {
	if s.pos+offset >= len(s.tokens) {
		return mel.Token{Type: mel.EOF}
	}
	return s.tokens[s.pos+offset]
}

// Scan recognises
//
//	["global"] "proc" [type ["[" "]"]] IDENTIFIER "(" [arg {"," arg}] ")" "{"
//	arg = type VARIABLE ["[" "]"]
//
// at brace depth zero. Every other brace group is skipped without looking
// inside it. Malformed signatures are ignored.
func Scan(tokens []mel.Token) *FileProcs {
	filtered := make([]mel.Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Type != mel.COMMENT {
			filtered = append(filtered, tok)
		}
	}

	fp := NewFileProcs()
	s := &scan{tokens: filtered}
	depth := 0
	for s.pos < len(s.tokens) {
		tok := s.peekAt(0)
		switch tok.Type {
		case mel.EOF:
			return fp
		case mel.LBRACE:
			depth++
		case mel.RBRACE:
			if depth > 0 {
				depth--
			}
		case mel.GLOBAL, mel.PROC:
			if depth == 0 {
				if p, n, ok := s.signature(); ok {
					fp.Add(p)
					s.pos += n
					continue
				}
			}
		}
		s.pos++
	}
	return fp
}

// ScanSource lexes src permissively and scans it.
func ScanSource(src string) *FileProcs {
	tokens, _ := mel.Lex(src)
	return Scan(tokens)
}

// signature tries to read a procedure header at the cursor. It returns the
// number of tokens consumed, stopping before the body's "{".
func (s *scan) signature() (ProcInfo, int, bool) {
	i := 0
	p := ProcInfo{}
	if s.peekAt(i).Type == mel.GLOBAL {
		p.Global = true
		i++
	}
	if s.peekAt(i).Type != mel.PROC {
		return p, 0, false
	}
	p.Line = s.peekAt(i).Line
	i++

	if typ, ok := mel.TypeOfKeyword(s.peekAt(i).Type); ok {
		p.ReturnType = typ
		i++
		if s.peekAt(i).Type == mel.LBRACKET && s.peekAt(i+1).Type == mel.RBRACKET {
			p.ReturnType = typ.AsArray()
			i += 2
		}
	}

	if s.peekAt(i).Type != mel.IDENTIFIER {
		return p, 0, false
	}
	p.Name = s.peekAt(i).Lexeme
	i++

	if s.peekAt(i).Type != mel.LPAREN {
		return p, 0, false
	}
	i++
	for s.peekAt(i).Type != mel.RPAREN {
		typ, ok := mel.TypeOfKeyword(s.peekAt(i).Type)
		if !ok || s.peekAt(i+1).Type != mel.VARIABLE {
			return p, 0, false
		}
		arg := Arg{Name: strings.TrimPrefix(s.peekAt(i+1).Lexeme, "$"), Type: typ}
		i += 2
		if s.peekAt(i).Type == mel.LBRACKET && s.peekAt(i+1).Type == mel.RBRACKET {
			arg.Type = typ.AsArray()
			i += 2
		}
		p.Args = append(p.Args, arg)
		if s.peekAt(i).Type == mel.COMMA {
			i++
		} else if s.peekAt(i).Type != mel.RPAREN {
			return p, 0, false
		}
	}
	i++ // )

	if s.peekAt(i).Type != mel.LBRACE {
		return p, 0, false
	}
	return p, i, true
}
