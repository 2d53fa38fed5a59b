package translator

import (
	"strings"

	"mel2py/pkg/mel"
)

// Comment is a source comment captured by the parser cursor.
type Comment struct {
	Text    string // raw text including the // or /* */ markers
	Line    int
	EndLine int
	Start   int
	End     int
}

func newComment(tok mel.Token) Comment {
	return Comment{
		Text:    tok.Lexeme,
		Line:    tok.Line,
		EndLine: tok.Line + strings.Count(tok.Lexeme, "\n"),
		Start:   tok.Start,
		End:     tok.End,
	}
}

func (c Comment) Block() bool { return strings.HasPrefix(c.Text, "/*") }

// body returns the comment text without markers, one entry per line.
func (c Comment) body() []string {
	if !c.Block() {
		return []string{strings.TrimRight(strings.TrimPrefix(c.Text, "//"), " \t\r")}
	}
	text := strings.TrimPrefix(c.Text, "/*")
	text = strings.TrimSuffix(text, "*/")
	lines := strings.Split(text, "\n")
	var out []string
	for _, l := range lines {
		l = strings.TrimRight(l, " \t\r")
		trimmed := strings.TrimLeft(l, " \t")
		// " * text" continuation lines
		if strings.HasPrefix(trimmed, "*") {
			l = strings.TrimPrefix(trimmed, "*")
		}
		out = append(out, l)
	}
	for len(out) > 0 && strings.TrimSpace(out[0]) == "" {
		out = out[1:]
	}
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

// pyLines renders the comment as Python # lines.
func (c Comment) pyLines() []string {
	var out []string
	for _, l := range c.body() {
		out = append(out, pyComment(l))
	}
	return out
}

// pyComment turns "x" into "# x" and " x" into "# x".
func pyComment(text string) string {
	if text == "" {
		return "#"
	}
	if strings.HasPrefix(text, " ") || strings.HasPrefix(text, "\t") {
		return "#" + text
	}
	return "# " + text
}

// commentRuns splits comments into contiguous runs: consecutive // lines
// form one run, every block comment is a run of its own.
func commentRuns(cs []Comment) [][]Comment {
	var runs [][]Comment
	for i, c := range cs {
		if i > 0 && !c.Block() && !cs[i-1].Block() && c.Line == cs[i-1].EndLine+1 {
			runs[len(runs)-1] = append(runs[len(runs)-1], c)
			continue
		}
		runs = append(runs, []Comment{c})
	}
	return runs
}

// splitDocstring holds back the last run of a procedure's leading comments
// for its docstring.
func splitDocstring(cs []Comment) (before []Comment, doc []Comment) {
	runs := commentRuns(cs)
	if len(runs) == 0 {
		return nil, nil
	}
	for _, r := range runs[:len(runs)-1] {
		before = append(before, r...)
	}
	return before, runs[len(runs)-1]
}

// docstring renders a run of comments as the lines of a Python docstring.
func docstring(run []Comment) []string {
	var text []string
	for _, c := range run {
		for _, l := range c.body() {
			text = append(text, strings.TrimSpace(l))
		}
	}
	for i, l := range text {
		l = strings.ReplaceAll(l, `\`, `\\`)
		text[i] = strings.ReplaceAll(l, `"""`, `\"\"\"`)
	}
	if len(text) == 1 {
		line := text[0]
		if strings.HasSuffix(line, `"`) {
			line = line[:len(line)-1] + `\"`
		}
		return []string{`"""` + line + `"""`}
	}
	out := []string{`"""`}
	out = append(out, text...)
	return append(out, `"""`)
}
