package translator

import "mel2py/pkg/mel"

// walkExpr calls fn on e and its subexpressions, depth first. fn returning
// false prunes the subtree.
func walkExpr(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *IndexExpr:
		walkExpr(n.Left, fn)
		walkExpr(n.Index, fn)
	case *ComponentExpr:
		walkExpr(n.Left, fn)
	case *UnaryExpr:
		walkExpr(n.Right, fn)
	case *BinaryExpr:
		walkExpr(n.Left, fn)
		walkExpr(n.Right, fn)
	case *TernaryExpr:
		walkExpr(n.Cond, fn)
		walkExpr(n.Then, fn)
		walkExpr(n.Else, fn)
	case *AssignExpr:
		walkExpr(n.Left, fn)
		walkExpr(n.Value, fn)
	case *IncDecExpr:
		walkExpr(n.Target, fn)
	case *ParenExpr:
		walkExpr(n.Inner, fn)
	case *CallExpr:
		for _, a := range n.Args {
			walkExpr(a, fn)
		}
	case *CommandExpr:
		for _, a := range n.Args {
			walkExpr(a.Value, fn)
		}
	case *ArrayLit:
		for _, a := range n.Elems {
			walkExpr(a, fn)
		}
	case *VectorLit:
		for _, a := range n.Elems {
			walkExpr(a, fn)
		}
	case *MatrixLit:
		for _, row := range n.Rows {
			for _, a := range row {
				walkExpr(a, fn)
			}
		}
	case *CastExpr:
		walkExpr(n.Expr, fn)
	}
}

// walkStmt calls fn on s and every statement nested in it. Expressions are
// reported through expr when it is not nil.
func walkStmt(s Stmt, fn func(Stmt) bool, expr func(Expr)) {
	if s == nil || !fn(s) {
		return
	}
	visit := func(e Expr) {
		if expr != nil && e != nil {
			expr(e)
		}
	}
	switch n := s.(type) {
	case *DeclStmt:
		for _, v := range n.Vars {
			visit(v.Size)
			visit(v.Init)
		}
	case *ExprStmt:
		visit(n.Expr)
	case *BlockStmt:
		for _, c := range n.Stmts {
			walkStmt(c, fn, expr)
		}
	case *IfStmt:
		visit(n.Cond)
		walkStmt(n.Then, fn, expr)
		walkStmt(n.Else, fn, expr)
	case *WhileStmt:
		visit(n.Cond)
		walkStmt(n.Body, fn, expr)
	case *DoWhileStmt:
		walkStmt(n.Body, fn, expr)
		visit(n.Cond)
	case *ForStmt:
		for _, e := range n.Init {
			visit(e)
		}
		visit(n.Cond)
		for _, e := range n.Update {
			visit(e)
		}
		walkStmt(n.Body, fn, expr)
	case *ForInStmt:
		visit(n.Coll)
		walkStmt(n.Body, fn, expr)
	case *SwitchStmt:
		visit(n.Target)
		for _, c := range n.Cases {
			visit(c.Value)
			for _, b := range c.Body {
				walkStmt(b, fn, expr)
			}
		}
	case *ReturnStmt:
		visit(n.Value)
	case *ProcDecl:
		walkStmt(n.Body, fn, expr)
	}
}

// refsVar reports whether e reads or writes $name.
func refsVar(e Expr, name string) bool {
	found := false
	walkExpr(e, func(x Expr) bool {
		if v, ok := x.(*VarRef); ok && v.Name == name {
			found = true
		}
		return !found
	})
	return found
}

// rootVar returns the variable an lvalue ultimately names.
func rootVar(e Expr) *VarRef {
	for {
		switch n := e.(type) {
		case *VarRef:
			return n
		case *IndexExpr:
			e = n.Left
		case *ComponentExpr:
			e = n.Left
		default:
			return nil
		}
	}
}

// assignsVar reports whether any statement in body writes $name.
func assignsVar(body Stmt, name string) bool {
	found := false
	check := func(e Expr) {
		walkExpr(e, func(x Expr) bool {
			switch n := x.(type) {
			case *AssignExpr:
				if v := rootVar(n.Left); v != nil && v.Name == name {
					found = true
				}
			case *IncDecExpr:
				if v := rootVar(n.Target); v != nil && v.Name == name {
					found = true
				}
			case *CallExpr:
				// tokenize fills its last argument
				if n.Name == "tokenize" && len(n.Args) > 0 {
					if v := rootVar(n.Args[len(n.Args)-1]); v != nil && v.Name == name {
						found = true
					}
				}
			}
			return !found
		})
	}
	walkStmt(body, func(s Stmt) bool {
		if f, ok := s.(*ForInStmt); ok && f.Var == name {
			found = true
		}
		if d, ok := s.(*DeclStmt); ok {
			for _, v := range d.Vars {
				if v.Name == name {
					found = true
				}
			}
		}
		return !found
	}, check)
	return found
}

// needsHoist reports whether translating e emits statements in front of the
// statement that contains it.
func needsHoist(e Expr) bool {
	found := false
	walkExpr(e, func(x Expr) bool {
		switch n := x.(type) {
		case *AssignExpr, *IncDecExpr:
			found = true
		case *CallExpr:
			if n.Name == "tokenize" || n.Name == "catch" {
				found = true
			}
		}
		return !found
	})
	return found
}

// containsJump reports whether body has a break or continue that belongs to
// the loop around it.
func containsJump(body Stmt) bool {
	found := false
	var visit func(s Stmt, inSwitch bool)
	visit = func(s Stmt, inSwitch bool) {
		walkStmt(s, func(x Stmt) bool {
			switch n := x.(type) {
			case *BreakStmt:
				if !inSwitch {
					found = true
				}
			case *ContinueStmt:
				found = true
			case *WhileStmt, *DoWhileStmt, *ForStmt, *ForInStmt, *ProcDecl:
				return false
			case *SwitchStmt:
				for _, c := range n.Cases {
					for _, b := range c.Body {
						visit(b, true)
					}
				}
				return false
			}
			return !found
		}, nil)
	}
	visit(body, false)
	return found
}

// hasNestedBreak reports whether a break sits below the top level of a case
// body without a loop or switch of its own around it.
func hasNestedBreak(stmts []Stmt) bool {
	found := false
	for _, s := range stmts {
		if _, ok := s.(*BreakStmt); ok {
			continue
		}
		walkStmt(s, func(x Stmt) bool {
			switch x.(type) {
			case *BreakStmt:
				found = true
			case *WhileStmt, *DoWhileStmt, *ForStmt, *ForInStmt, *SwitchStmt, *ProcDecl:
				return false
			}
			return !found
		}, nil)
	}
	return found
}

// isSizeOf matches size($arr) for the array expression left.
func isSizeOf(e, left Expr) bool {
	call, ok := e.(*CallExpr)
	if !ok || call.Name != "size" || len(call.Args) != 1 {
		return false
	}
	return call.Args[0].String() == left.String()
}

// intConst extracts an integer constant from 1, -1 or +1 shaped literals.
func intConst(e Expr) (int64, bool) {
	switch n := e.(type) {
	case *IntLit:
		v, ok := intLiteral(Value{Text: n.Text})
		return v, ok
	case *UnaryExpr:
		if n.Op == mel.MINUS {
			if v, ok := intConst(n.Right); ok {
				return -v, true
			}
		}
	case *ParenExpr:
		return intConst(n.Inner)
	}
	return 0, false
}
