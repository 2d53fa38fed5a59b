package batch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/edwingeng/deque"

	"mel2py/pkg/mel"
)

// Discover follows the source statements of the batch's files, adding every
// file they name. Paths resolve against the directory of the sourcing file
// first, then the working directory. Each file is added once, so sourcing
// cycles end on their own. Unresolved names become warnings.
func (c *Context) Discover() error {
	pending := deque.NewDeque()
	for _, f := range c.files {
		pending.PushBack(f)
	}

	for !pending.Empty() {
		f := pending.PopFront().(*File)
		for _, name := range sourcedNames(f.Source) {
			path, ok := resolveSource(name, filepath.Dir(f.Path))
			if !ok {
				c.warnf("%s: cannot find sourced file %q", f.Path, name)
				continue
			}
			added, err := c.AddFile(path)
			if err != nil {
				return err
			}
			if added == nil {
				continue
			}
			added.SourcedBy = f.Path
			pending.PushBack(added)
		}
	}
	return nil
}

// sourcedNames lists the file names of the source statements in src, in
// order. Both quoted and bare names are accepted.
func sourcedNames(src string) []string {
	tokens, _ := mel.Lex(src)
	var names []string
	atStmt := true
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Type == mel.COMMENT {
			continue
		}
		if atStmt && tok.Type == mel.IDENTIFIER && tok.Lexeme == "source" {
			if name := sourceArg(tokens[i+1:]); name != "" {
				names = append(names, name)
			}
		}
		atStmt = tok.Type == mel.SEMICOLON || tok.Type == mel.LBRACE || tok.Type == mel.RBRACE
	}
	return names
}

// sourceArg reads the argument of a source statement: a string, or a run
// of adjacent tokens such as scripts/rig.mel.
func sourceArg(tokens []mel.Token) string {
	if len(tokens) == 0 {
		return ""
	}
	if tokens[0].Type == mel.STRING_LIT {
		return unescape(tokens[0].Lexeme)
	}
	var sb strings.Builder
	for i, tok := range tokens {
		if tok.Type == mel.SEMICOLON || tok.Type == mel.EOF || tok.Type == mel.COMMENT {
			break
		}
		if i > 0 && !tokens[i-1].Adjacent(tok) {
			break
		}
		sb.WriteString(tok.Lexeme)
	}
	return sb.String()
}

func unescape(s string) string {
	return strings.NewReplacer(`\\`, `\`, `\"`, `"`).Replace(s)
}

func resolveSource(name, baseDir string) (string, bool) {
	if filepath.Ext(name) == "" {
		name += ".mel"
	}
	candidates := []string{name}
	if !filepath.IsAbs(name) {
		candidates = []string{filepath.Join(baseDir, name), name}
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
