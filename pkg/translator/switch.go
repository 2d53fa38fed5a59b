package translator

import "strings"

// caseStmt is a statement of a merged case body. Borrowed statements were
// reached by falling through from an earlier case and are rendered without
// their comments, which their own case already emits.
type caseStmt struct {
	stmt     Stmt
	borrowed bool
}

// caseGroup is one if/elif arm: every label that reaches the same body.
type caseGroup struct {
	values    []Expr
	isDefault bool
	body      []caseStmt
	leading   []Comment
	// trailing holds the comments of the statements cut off at the break.
	trailing []Comment
}

// truncateAtBreak returns the statements of a case body up to its first
// top-level break and whether a break (or other jump out) was found. The
// comments of the statements it cuts off are returned so they can still be
// emitted.
func truncateAtBreak(stmts []Stmt) ([]Stmt, []Comment, bool) {
	for i, s := range stmts {
		switch n := s.(type) {
		case *BreakStmt:
			return stmts[:i], droppedComments(stmts[i:]), true
		case *ReturnStmt, *ContinueStmt:
			return stmts[:i+1], droppedComments(stmts[i+1:]), true
		case *BlockStmt:
			inner, dropped, brk := truncateAtBreak(n.Stmts)
			if brk {
				cp := *n
				cp.Stmts = inner
				cp.Trailing = append(dropped, n.Trailing...)
				out := append(append([]Stmt(nil), stmts[:i]...), &cp)
				return out, droppedComments(stmts[i+1:]), true
			}
		}
	}
	return stmts, nil, false
}

func droppedComments(stmts []Stmt) []Comment {
	var cs []Comment
	for _, s := range stmts {
		m := s.Meta()
		cs = append(cs, m.Leading...)
		if m.Inline != nil {
			cs = append(cs, *m.Inline)
		}
	}
	return cs
}

// groupCases merges empty fallthrough labels into the next non-empty case
// and concatenates bodies that fall through into the following cases.
func groupCases(cases []*CaseClause) []*caseGroup {
	var groups []*caseGroup
	cur := &caseGroup{}
	for i, c := range cases {
		if c.Value == nil {
			cur.isDefault = true
		} else {
			cur.values = append(cur.values, c.Value)
		}
		cur.leading = append(cur.leading, c.Leading...)
		if len(c.Body) == 0 {
			continue
		}

		body, dropped, brk := truncateAtBreak(c.Body)
		for _, s := range body {
			cur.body = append(cur.body, caseStmt{stmt: s})
		}
		cur.trailing = dropped
		for j := i + 1; !brk && j < len(cases); j++ {
			var next []Stmt
			next, _, brk = truncateAtBreak(cases[j].Body)
			for _, s := range next {
				cur.body = append(cur.body, caseStmt{stmt: s, borrowed: true})
			}
		}
		groups = append(groups, cur)
		cur = &caseGroup{}
	}
	if len(cur.values) > 0 || cur.isDefault || len(cur.leading) > 0 {
		groups = append(groups, cur)
	}

	// default matches only when nothing else does, so it becomes the last arm
	for i, g := range groups {
		if g.isDefault && i != len(groups)-1 {
			groups = append(append(groups[:i:i], groups[i+1:]...), g)
			break
		}
	}
	return groups
}

func (t *Translator) switchStmt(n *SwitchStmt) {
	target, pre := t.isolate(func() Value { return t.expr(n.Target) })
	for _, p := range pre {
		t.w.line(p)
	}
	if _, simple := n.Target.(*VarRef); !simple {
		tmp := t.temp("switch")
		t.w.line(tmp + " = " + target.Text)
		target = atom(tmp, target.Type)
	}

	groups := groupCases(n.Cases)
	wrap := false
	for _, g := range groups {
		stmts := make([]Stmt, len(g.body))
		for i, cs := range g.body {
			stmts[i] = cs.stmt
		}
		if hasNestedBreak(stmts) {
			wrap = true
		}
	}

	emit := func() {
		first := true
		for _, g := range groups {
			t.comments(g.leading)
			if g.isDefault {
				if first {
					t.caseBody(g)
					break
				}
				t.w.line("else:")
			} else {
				kw := "elif"
				if first {
					kw = "if"
				}
				t.w.linef("%s %s:", kw, t.caseCond(target, g.values))
			}
			first = false
			t.w.block(func() { t.caseBody(g) })
		}
		t.comments(n.Trailing)
	}

	if !wrap {
		emit()
		return
	}
	t.w.line("while True:")
	t.pushLoop(&loopFrame{isSwitch: true})
	t.w.indent(func() {
		emit()
		t.w.line("break")
	})
	t.popLoop()
}

func (t *Translator) caseCond(target Value, values []Expr) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = t.expr(v).Text
	}
	lhs := operand(target, precCmp, true)
	if len(parts) == 1 {
		return lhs + " == " + parts[0]
	}
	return lhs + " in (" + strings.Join(parts, ", ") + ")"
}

func (t *Translator) caseBody(g *caseGroup) {
	for _, cs := range g.body {
		if cs.borrowed {
			t.rerender(cs.stmt)
			continue
		}
		t.stmt(cs.stmt)
	}
	t.comments(g.trailing)
}
