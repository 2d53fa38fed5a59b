package translator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/edwingeng/deque"

	"mel2py/pkg/flagdb"
	"mel2py/pkg/mel"
	"mel2py/pkg/scanner"
)

// DoWhileMode selects how do-while loops are rendered.
type DoWhileMode int

const (
	// DoWhileGuard uses a first-iteration flag in the loop condition.
	DoWhileGuard DoWhileMode = iota
	// DoWhileDuplicate emits the body once before a plain while loop.
	DoWhileDuplicate
)

func (m DoWhileMode) String() string {
	if m == DoWhileDuplicate {
		return "dup"
	}
	return "guard"
}

// ParseDoWhileMode accepts "guard" or "dup".
func ParseDoWhileMode(s string) (DoWhileMode, error) {
	switch s {
	case "guard", "":
		return DoWhileGuard, nil
	case "dup", "duplicate":
		return DoWhileDuplicate, nil
	}
	return DoWhileGuard, fmt.Errorf("unknown do-while mode %q (want guard or dup)", s)
}

// Options configures one translation.
type Options struct {
	// Namespace prefixes host API references (pm.mel.eval, pm.dt.Vector).
	// Empty means unqualified names.
	Namespace string
	// NamespaceImport is the module bound to Namespace in the header.
	NamespaceImport string
	// Header emits the import block at the top of a module.
	Header         bool
	DoWhile        DoWhileMode
	StrictLex      bool
	ExpressionOnly bool
}

func DefaultOptions() Options {
	return Options{
		Namespace:       "pm",
		NamespaceImport: "pymel.core",
		Header:          true,
		DoWhile:         DoWhileGuard,
	}
}

// ProcResolver finds global procedures defined by other files of the batch.
// *scanner.Registry implements it.
type ProcResolver interface {
	Lookup(name string) (scanner.ProcRef, bool)
	HasModule(module string) bool
}

// Env carries the read-only collaborators shared by every translation of a
// batch.
type Env struct {
	Procs  ProcResolver
	Flags  *flagdb.DB
	Module string // the Python module name of the file being translated
}

// Context is the state of one translation. Nested translations (callbacks)
// get their own Context.
type Context struct {
	opts     Options
	env      Env
	types    *TypeEnv
	local    *scanner.FileProcs
	comments deque.Deque // Comment values waiting for a statement
	imports  map[string]bool
	modules  map[string]bool
	errors   []ErrorToken
	warnings []string
}

func newContext(opts Options, env Env) *Context {
	return &Context{
		opts:     opts,
		env:      env,
		types:    NewTypeEnv(),
		local:    scanner.NewFileProcs(),
		comments: deque.NewDeque(),
		imports:  make(map[string]bool),
		modules:  make(map[string]bool),
	}
}

// ns qualifies a host API name with the configured namespace.
func (c *Context) ns(name string) string {
	if c.opts.Namespace == "" {
		return name
	}
	return c.opts.Namespace + "." + name
}

func (c *Context) warnf(line int, format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf("line %d: ", line)+fmt.Sprintf(format, args...))
}

func (c *Context) addError(et ErrorToken) {
	c.errors = append(c.errors, et)
}

func (c *Context) requireImport(module string) {
	c.imports[module] = true
}

// queueComment captures a comment token stepped over by the parser.
func (c *Context) queueComment(tok mel.Token) {
	c.comments.PushBack(newComment(tok))
}

// drainComments empties the comment queue.
func (c *Context) drainComments() []Comment {
	var out []Comment
	for !c.comments.Empty() {
		out = append(out, c.comments.PopFront().(Comment))
	}
	return out
}

// drainCommentsBefore empties the queue of comments that start before pos,
// leaving later ones queued.
func (c *Context) drainCommentsBefore(pos int) []Comment {
	var out []Comment
	for !c.comments.Empty() {
		cm := c.comments.Front().(Comment)
		if cm.Start >= pos {
			break
		}
		out = append(out, cm)
		c.comments.PopFront()
	}
	return out
}

// takeInline removes and returns the first queued comment when it follows
// last on the same line. Comments before last must already be drained.
func (c *Context) takeInline(last mel.Token) *Comment {
	if c.comments.Empty() {
		return nil
	}
	cm := c.comments.Front().(Comment)
	if cm.Line != last.Line || cm.Start < last.End || cm.EndLine != cm.Line {
		return nil
	}
	c.comments.PopFront()
	return &cm
}

// importLines returns the header import statements in a stable order.
func (c *Context) importLines() []string {
	var lines []string
	if c.opts.Namespace != "" && c.opts.NamespaceImport != "" {
		lines = append(lines, fmt.Sprintf("import %s as %s", c.opts.NamespaceImport, c.opts.Namespace))
	}
	lines = append(lines, sortedImports(c.imports)...)
	lines = append(lines, sortedImports(c.modules)...)
	return lines
}

func sortedImports(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		names[i] = "import " + name
	}
	return names
}

// writer accumulates indented Python lines.
type writer struct {
	lines []string
	depth int
	stmts int // statement lines written, comments excluded
}

func (w *writer) prefix() string {
	return strings.Repeat("    ", w.depth)
}

// line writes one statement; text may span several lines.
func (w *writer) line(text string) {
	for _, l := range strings.Split(text, "\n") {
		w.lines = append(w.lines, w.prefix()+l)
	}
	w.stmts++
}

func (w *writer) linef(format string, args ...any) {
	w.line(fmt.Sprintf(format, args...))
}

func (w *writer) comment(text string) {
	w.lines = append(w.lines, w.prefix()+text)
}

func (w *writer) comments(cs []Comment) {
	for _, c := range cs {
		for _, l := range c.pyLines() {
			w.comment(l)
		}
	}
}

// inline appends a trailing comment to the last written line.
func (w *writer) inline(c *Comment) {
	if c == nil {
		return
	}
	body := c.body()
	if len(w.lines) == 0 || len(body) != 1 {
		w.comments([]Comment{*c})
		return
	}
	w.lines[len(w.lines)-1] += "  " + pyComment(body[0])
}

func (w *writer) indent(fn func()) {
	w.depth++
	fn()
	w.depth--
}

// block writes an indented suite, adding pass when fn wrote no statement.
func (w *writer) block(fn func()) {
	w.indent(func() {
		before := w.stmts
		fn()
		if w.stmts == before {
			w.line("pass")
		}
	})
}

func (w *writer) String() string {
	if len(w.lines) == 0 {
		return ""
	}
	return strings.Join(w.lines, "\n") + "\n"
}
