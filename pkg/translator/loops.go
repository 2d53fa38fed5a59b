package translator

import (
	"fmt"
	"strconv"

	"mel2py/pkg/mel"
)

// rangeShape is a C-style loop that counts one integer variable by a
// constant step.
type rangeShape struct {
	name  string
	start Expr
	end   Expr
	op    mel.TokenType // relational operator with the variable on the left
	step  int64
}

// flipRel mirrors a relational operator so the variable reads on the left.
var flipRel = map[mel.TokenType]mel.TokenType{
	mel.LESS:       mel.GREATER,
	mel.GREATER:    mel.LESS,
	mel.LESS_EQ:    mel.GREATER_EQ,
	mel.GREATER_EQ: mel.LESS_EQ,
}

// matchRange recognises
//
//	for ($i = start; $i relop end; $i++ | $i-- | $i += k | $i -= k)
//
// where $i is an integer that appears once in the condition, once in the
// update and is never written by the body. The bound must be an integer
// too, since range rejects floats.
func (t *Translator) matchRange(f *ForStmt) (rangeShape, bool) {
	var r rangeShape
	if len(f.Init) != 1 || len(f.Update) != 1 || f.Cond == nil {
		return r, false
	}
	init, ok := f.Init[0].(*AssignExpr)
	if !ok || init.Op != mel.ASSIGN {
		return r, false
	}
	v, ok := init.Left.(*VarRef)
	if !ok || refsVar(init.Value, v.Name) {
		return r, false
	}
	r.name = v.Name
	r.start = init.Value

	if info, ok := t.ctx.types.Lookup(v.Name); ok {
		if info.Global || (info.Type != mel.Int && info.Type != mel.None) {
			return r, false
		}
	}

	cond, ok := f.Cond.(*BinaryExpr)
	if !ok {
		return r, false
	}
	if _, rel := flipRel[cond.Op]; !rel {
		return r, false
	}
	switch {
	case isVar(cond.Left, v.Name) && !refsVar(cond.Right, v.Name):
		r.op, r.end = cond.Op, cond.Right
	case isVar(cond.Right, v.Name) && !refsVar(cond.Left, v.Name):
		r.op, r.end = flipRel[cond.Op], cond.Left
	default:
		return r, false
	}
	if needsHoist(r.end) || needsHoist(r.start) || !t.isIntExpr(r.end) {
		return r, false
	}

	switch u := f.Update[0].(type) {
	case *IncDecExpr:
		if !isVar(u.Target, v.Name) {
			return r, false
		}
		r.step = 1
		if u.Op == mel.MINUS_MINUS {
			r.step = -1
		}
	case *AssignExpr:
		if !isVar(u.Left, v.Name) || refsVar(u.Value, v.Name) {
			return r, false
		}
		k, ok := intConst(u.Value)
		if !ok || k == 0 {
			return r, false
		}
		switch u.Op {
		case mel.PLUS_ASSIGN:
			r.step = k
		case mel.MINUS_ASSIGN:
			r.step = -k
		default:
			return r, false
		}
	default:
		return r, false
	}

	// the loop must move towards its bound
	switch r.op {
	case mel.LESS, mel.LESS_EQ:
		if r.step < 0 {
			return r, false
		}
	case mel.GREATER, mel.GREATER_EQ:
		if r.step > 0 {
			return r, false
		}
	}

	if assignsVar(f.Body, v.Name) {
		return r, false
	}
	var bodyWrites bool
	walkExpr(r.end, func(x Expr) bool {
		if ref, ok := x.(*VarRef); ok && assignsVar(f.Body, ref.Name) {
			bodyWrites = true
		}
		return !bodyWrites
	})
	return r, !bodyWrites
}

// isIntExpr reports whether e is known to evaluate to an int without
// translating it.
func (t *Translator) isIntExpr(e Expr) bool {
	switch n := e.(type) {
	case *IntLit:
		return true
	case *ParenExpr:
		return t.isIntExpr(n.Inner)
	case *UnaryExpr:
		return n.Op == mel.MINUS && t.isIntExpr(n.Right)
	case *BinaryExpr:
		switch n.Op {
		case mel.PLUS, mel.MINUS, mel.STAR, mel.SLASH, mel.PERCENT:
			return t.isIntExpr(n.Left) && t.isIntExpr(n.Right)
		}
	case *VarRef:
		info, ok := t.ctx.types.Lookup(n.Name)
		return ok && info.Type == mel.Int
	case *IndexExpr:
		if v, ok := n.Left.(*VarRef); ok {
			info, ok := t.ctx.types.Lookup(v.Name)
			return ok && info.Type == mel.Int.AsArray()
		}
	case *CastExpr:
		return n.Type == mel.Int
	case *CallExpr:
		return n.Name == "size" && len(n.Args) == 1
	}
	return false
}

func isVar(e Expr, name string) bool {
	v, ok := e.(*VarRef)
	return ok && v.Name == name
}

func (t *Translator) forStmt(f *ForStmt) {
	if r, ok := t.matchRange(f); ok {
		t.rangeLoop(f, r)
		return
	}
	t.forFallback(f)
}

func (t *Translator) rangeLoop(f *ForStmt, r rangeShape) {
	start := t.castTo(t.expr(r.start), mel.Int)
	end := t.expr(r.end)
	switch r.op {
	case mel.LESS_EQ:
		end = addConst(end, 1)
	case mel.GREATER_EQ:
		end = addConst(end, -1)
	}
	info, ok := t.ctx.types.Lookup(r.name)
	if !ok {
		info = t.ctx.types.Declare(r.name, mel.Int, false)
	}
	args := start.Text + ", " + end.Text
	if r.step != 1 {
		args += ", " + strconv.FormatInt(r.step, 10)
	}
	t.w.linef("for %s in range(%s):", info.PyName, args)
	t.pushLoop(&loopFrame{})
	t.body(f.Body)
	t.popLoop()
}

// forFallback keeps exact MEL semantics with a while loop:
//
//	init
//	while True:
//	    if not (cond):
//	        break
//	    body
//	    update
func (t *Translator) forFallback(f *ForStmt) {
	for _, e := range f.Init {
		t.simple(func() string { return t.exprStmt(e) })
	}

	var cond Value
	var condPre []string
	if f.Cond != nil {
		cond, condPre = t.isolate(func() Value { return t.expr(f.Cond) })
	}
	var update []string
	for _, e := range f.Update {
		v, pre := t.isolate(func() Value { return atom(t.exprStmt(e), mel.None) })
		update = append(update, pre...)
		if v.Text != "" {
			update = append(update, v.Text)
		}
	}

	t.w.line("while True:")
	t.pushLoop(&loopFrame{cont: update})
	t.w.block(func() {
		for _, p := range condPre {
			t.w.line(p)
		}
		if f.Cond != nil {
			t.w.line(notBreak(cond))
		}
		t.stmt(f.Body)
		for _, u := range update {
			t.w.line(u)
		}
	})
	t.popLoop()
}

func (t *Translator) doWhileStmt(n *DoWhileStmt) {
	mode := t.ctx.opts.DoWhile
	if mode == DoWhileDuplicate && containsJump(n.Body) {
		t.ctx.warnf(n.Meta().Line, "do-while body has break or continue; using the first-iteration guard")
		mode = DoWhileGuard
	}

	cond, pre := t.isolate(func() Value { return t.expr(n.Cond) })

	if len(pre) > 0 {
		// the condition needs statements, so it is checked at the bottom
		check := append(append([]string(nil), pre...), notBreak(cond))
		if mode == DoWhileDuplicate {
			t.stmt(n.Body)
			t.w.line("while True:")
			t.pushLoop(&loopFrame{})
			t.w.block(func() {
				for _, c := range check {
					t.w.line(c)
				}
				t.rerender(n.Body)
			})
			t.popLoop()
			return
		}
		t.w.line("while True:")
		t.pushLoop(&loopFrame{cont: check})
		t.w.block(func() {
			t.stmt(n.Body)
			for _, c := range check {
				t.w.line(c)
			}
		})
		t.popLoop()
		return
	}

	if mode == DoWhileDuplicate {
		t.stmt(n.Body)
		t.w.linef("while %s:", cond.Text)
		t.pushLoop(&loopFrame{})
		t.w.block(func() { t.rerender(n.Body) })
		t.popLoop()
		return
	}

	flag := t.firstIterName()
	t.w.line(flag + " = True")
	t.w.linef("while %s or %s:", flag, operand(cond, precOr, true))
	t.pushLoop(&loopFrame{})
	t.w.block(func() {
		t.w.line(flag + " = False")
		t.stmt(n.Body)
	})
	t.popLoop()
}

// rerender writes s a second time without repeating its comments.
func (t *Translator) rerender(s Stmt) {
	saved := t.quiet
	t.quiet = true
	t.stmt(s)
	t.quiet = saved
}

func (t *Translator) firstIterName() string {
	depth := 0
	for _, f := range t.loops {
		if !f.isSwitch {
			depth++
		}
	}
	if depth == 0 {
		return "_firstIter"
	}
	return fmt.Sprintf("_firstIter%d", depth+1)
}
