package translator

import (
	"fmt"
	"strings"

	"mel2py/pkg/mel"
)

// Translator renders a parsed Program as Python.
type Translator struct {
	ctx   *Context
	w     *writer
	pre   []string // statements hoisted in front of the current one
	loops []*loopFrame
	proc  *ProcDecl
	tmp   int
	quiet bool // suppress comments while re-rendering borrowed statements
}

// loopFrame tracks what break and continue mean at the current depth.
type loopFrame struct {
	cont     []string // statements run before a translated continue
	isSwitch bool     // a switch wrapped in "while True" so nested breaks leave it
}

func newTranslator(ctx *Context) *Translator {
	return &Translator{ctx: ctx, w: &writer{}}
}

// temp returns a fresh helper variable name.
func (t *Translator) temp(base string) string {
	t.tmp++
	if t.tmp == 1 {
		return "_" + base
	}
	return fmt.Sprintf("_%s%d", base, t.tmp)
}

func (t *Translator) comments(cs []Comment) {
	if !t.quiet {
		t.w.comments(cs)
	}
}

func (t *Translator) inline(c *Comment) {
	if !t.quiet {
		t.w.inline(c)
	}
}

func (t *Translator) program(prog *Program) {
	for _, s := range prog.Stmts {
		t.stmt(s)
	}
	t.comments(prog.Trailing)
}

// isolate evaluates fn with a private hoist list and returns what it hoisted.
func (t *Translator) isolate(fn func() Value) (Value, []string) {
	saved := t.pre
	t.pre = nil
	v := fn()
	pre := t.pre
	t.pre = saved
	return v, pre
}

// simple writes one statement line behind the statements its expressions
// hoisted.
func (t *Translator) simple(fn func() string) {
	saved := t.pre
	t.pre = nil
	line := fn()
	for _, p := range t.pre {
		t.w.line(p)
	}
	if line != "" {
		t.w.line(line)
	}
	t.pre = saved
}

func (t *Translator) stmt(s Stmt) {
	m := s.Meta()
	if p, ok := s.(*ProcDecl); ok {
		t.procDecl(p)
		t.inline(m.Inline)
		return
	}
	t.comments(m.Leading)

	switch n := s.(type) {
	case *DeclStmt:
		t.decl(n)
	case *ExprStmt:
		t.simple(func() string { return t.exprStmt(n.Expr) })
	case *EmptyStmt:
	case *BlockStmt:
		t.ctx.types.EnterScope()
		for _, c := range n.Stmts {
			t.stmt(c)
		}
		t.comments(n.Trailing)
		t.ctx.types.ExitScope()
	case *IfStmt:
		t.ifStmt(n)
	case *WhileStmt:
		t.whileStmt(n)
	case *DoWhileStmt:
		t.doWhileStmt(n)
	case *ForStmt:
		t.forStmt(n)
	case *ForInStmt:
		t.forInStmt(n)
	case *SwitchStmt:
		t.switchStmt(n)
	case *BreakStmt:
		t.w.line("break")
	case *ContinueStmt:
		t.continueStmt(m.Line)
	case *ReturnStmt:
		t.simple(func() string {
			if n.Value == nil {
				return "return"
			}
			v := t.expr(n.Value)
			if t.proc != nil {
				v = t.castTo(v, t.proc.ReturnType)
			}
			return "return " + v.Text
		})
	}
	t.inline(m.Inline)
}

// body writes s as an indented suite.
func (t *Translator) body(s Stmt) {
	t.w.block(func() { t.stmt(s) })
}

func (t *Translator) continueStmt(line int) {
	for i := len(t.loops) - 1; i >= 0; i-- {
		f := t.loops[i]
		if f.isSwitch {
			t.ctx.warnf(line, "continue inside a switch that has nested breaks restarts the switch, not the loop")
			continue
		}
		for _, c := range f.cont {
			t.w.line(c)
		}
		break
	}
	t.w.line("continue")
}

func (t *Translator) pushLoop(f *loopFrame) { t.loops = append(t.loops, f) }
func (t *Translator) popLoop()              { t.loops = t.loops[:len(t.loops)-1] }

// exprStmt translates an expression used as a statement. Values whose work
// was fully hoisted produce no line of their own.
func (t *Translator) exprStmt(e Expr) string {
	var v Value
	switch n := e.(type) {
	case *AssignExpr:
		return t.assign(n)
	case *IncDecExpr:
		return t.incDec(n)
	case *CommandExpr:
		v = t.command(n, true)
	case *CallExpr:
		v = t.callExpr(n, true)
	default:
		v = t.expr(e)
	}
	if v.Has(PendingAssignment) || v.Has(DeferredSizeAssignment) {
		return ""
	}
	return v.Text
}

//  Declarations

func (t *Translator) defaultValue(typ mel.Type, size Expr) string {
	if typ.IsArray() {
		if size == nil {
			return "[]"
		}
		n := t.expr(size)
		elem := t.defaultValue(typ.Elem(), nil)
		switch typ.Elem() {
		case mel.Vector, mel.Matrix:
			return fmt.Sprintf("[%s for _ in range(%s)]", elem, n.Text)
		}
		return fmt.Sprintf("[%s] * %s", elem, operand(n, precMul, true))
	}
	switch typ {
	case mel.Int:
		return "0"
	case mel.Float:
		return "0.0"
	case mel.String:
		return "''"
	case mel.Vector:
		return t.ctx.ns("dt.Vector") + "()"
	case mel.Matrix:
		return t.ctx.ns("dt.Matrix") + "()"
	}
	return "None"
}

func (t *Translator) globalRef(name string) string {
	return fmt.Sprintf("%s[%s]", t.ctx.ns("melGlobals"), pyStr(name))
}

func (t *Translator) decl(d *DeclStmt) {
	for _, dv := range d.Vars {
		typ := d.Type
		if dv.Array {
			typ = typ.AsArray()
		}
		t.simple(func() string {
			var init string
			if dv.Init != nil {
				init = t.initValue(dv.Init, typ).Text
			}
			info := t.ctx.types.Declare(dv.Name, typ, d.Global)
			if d.Global {
				t.w.linef("%s.initVar(%s, %s)", t.ctx.ns("melGlobals"), pyStr(typ.String()), pyStr(dv.Name))
				if init == "" {
					return ""
				}
				return t.globalRef(dv.Name) + " = " + init
			}
			if init == "" {
				init = t.defaultValue(typ, dv.Size)
			}
			return info.PyName + " = " + init
		})
	}
}

// initValue renders an initializer coerced to typ. Array literals are
// coerced element by element.
func (t *Translator) initValue(e Expr, typ mel.Type) Value {
	if lit, ok := e.(*ArrayLit); ok && typ.IsArray() {
		parts := make([]string, len(lit.Elems))
		for i, el := range lit.Elems {
			parts[i] = t.castTo(t.expr(el), typ.Elem()).Text
		}
		return atom("["+strings.Join(parts, ", ")+"]", typ)
	}
	return t.castTo(t.expr(e), typ)
}

//  Procedures

func (t *Translator) procDecl(p *ProcDecl) {
	before, doc := splitDocstring(p.Meta().Leading)
	t.comments(before)

	params := make([]string, len(p.Params))
	for i, prm := range p.Params {
		params[i] = pyName(prm.Name)
	}
	t.w.linef("def %s(%s):", pyName(p.Name), strings.Join(params, ", "))

	saved := t.proc
	t.proc = p
	t.ctx.types.EnterProc()
	for _, prm := range p.Params {
		t.ctx.types.Declare(prm.Name, prm.Type, false)
	}
	t.w.block(func() {
		if len(doc) > 0 && !t.quiet {
			t.w.line(strings.Join(docstring(doc), "\n"))
		}
		for _, s := range p.Body.Stmts {
			t.stmt(s)
		}
		t.comments(p.Body.Trailing)
	})
	t.ctx.types.ExitProc()
	t.proc = saved
}

//  Control flow

func (t *Translator) ifStmt(n *IfStmt) {
	cond, pre := t.isolate(func() Value { return t.expr(n.Cond) })
	for _, p := range pre {
		t.w.line(p)
	}
	t.w.linef("if %s:", cond.Text)
	t.body(n.Then)

	for els := n.Else; els != nil; {
		elif, ok := els.(*IfStmt)
		if !ok || needsHoist(elif.Cond) {
			t.w.line("else:")
			t.body(els)
			return
		}
		t.comments(elif.Meta().Leading)
		c := t.expr(elif.Cond)
		t.w.linef("elif %s:", c.Text)
		t.body(elif.Then)
		t.inline(elif.Meta().Inline)
		els = elif.Else
	}
}

// notBreak renders "if not (cond): break" for loop fallbacks.
func notBreak(cond Value) string {
	return fmt.Sprintf("if not %s:\n    break", operand(cond, precNot, false))
}

func (t *Translator) whileStmt(n *WhileStmt) {
	cond, pre := t.isolate(func() Value { return t.expr(n.Cond) })
	t.pushLoop(&loopFrame{})
	defer t.popLoop()
	if len(pre) == 0 {
		t.w.linef("while %s:", cond.Text)
		t.body(n.Body)
		return
	}
	t.w.line("while True:")
	t.w.block(func() {
		for _, p := range pre {
			t.w.line(p)
		}
		t.w.line(notBreak(cond))
		t.stmt(n.Body)
	})
}

func (t *Translator) forInStmt(n *ForInStmt) {
	coll, pre := t.isolate(func() Value { return t.expr(n.Coll) })
	for _, p := range pre {
		t.w.line(p)
	}
	info, ok := t.ctx.types.Lookup(n.Var)
	if !ok {
		info = t.ctx.types.Declare(n.Var, coll.Type.Elem(), false)
	}
	t.pushLoop(&loopFrame{})
	defer t.popLoop()
	if info.Global {
		tmp := t.temp(n.Var)
		t.w.linef("for %s in %s:", tmp, coll.Text)
		t.w.block(func() {
			t.w.linef("%s = %s", t.globalRef(n.Var), tmp)
			t.stmt(n.Body)
		})
		return
	}
	t.w.linef("for %s in %s:", info.PyName, coll.Text)
	t.body(n.Body)
}
