package translator

import (
	"strings"

	"mel2py/pkg/mel"
)

var pyBinOps = map[mel.TokenType]string{
	mel.PLUS:        "+",
	mel.MINUS:       "-",
	mel.STAR:        "*",
	mel.SLASH:       "/",
	mel.PERCENT:     "%",
	mel.CARET:       "^",
	mel.AND_LOGICAL: "and",
	mel.OR_LOGICAL:  "or",
	mel.EQUALS:      "==",
	mel.NOT_EQ:      "!=",
	mel.LESS:        "<",
	mel.GREATER:     ">",
	mel.LESS_EQ:     "<=",
	mel.GREATER_EQ:  ">=",
}

var binPrec = map[mel.TokenType]int{
	mel.OR_LOGICAL:  precOr,
	mel.AND_LOGICAL: precAnd,
	mel.EQUALS:      precCmp,
	mel.NOT_EQ:      precCmp,
	mel.LESS:        precCmp,
	mel.GREATER:     precCmp,
	mel.LESS_EQ:     precCmp,
	mel.GREATER_EQ:  precCmp,
	mel.CARET:       precXor,
	mel.PLUS:        precAdd,
	mel.MINUS:       precAdd,
	mel.STAR:        precMul,
	mel.SLASH:       precMul,
	mel.PERCENT:     precMul,
}

// expr translates an expression in value position.
func (t *Translator) expr(e Expr) Value {
	switch n := e.(type) {
	case *IntLit:
		return atom(pyInt(n.Text), mel.Int)
	case *FloatLit:
		return atom(n.Text, mel.Float)
	case *StringLit:
		return atom(`"`+n.Raw+`"`, mel.String)
	case *BoolLit:
		if n.Value {
			return atom("True", mel.Bool)
		}
		return atom("False", mel.Bool)
	case *VarRef:
		return t.varRef(n)
	case *IndexExpr:
		v := t.index(n, t.expr(n.Left))
		if v.Has(AppendingToArray) && !t.quiet {
			t.ctx.warnf(v.Line, "%s reads one past the end of the array", n)
		}
		return v
	case *ComponentExpr:
		left := t.expr(n.Left)
		return atom(operand(left, precAtom, false)+"."+n.Comp, mel.Float)
	case *UnaryExpr:
		right := t.expr(n.Right)
		if n.Op == mel.NOT {
			return Value{Text: "not " + operand(right, precNot, false), Type: mel.Int, prec: precNot}
		}
		return Value{Text: "-" + operand(right, precUnary, false), Type: right.Type, prec: precUnary}
	case *BinaryExpr:
		return t.binary(n)
	case *TernaryExpr:
		return t.ternary(n)
	case *AssignExpr:
		t.pre = append(t.pre, t.assign(n))
		v := t.lvalue(n.Left, "")
		v.Flags |= PendingAssignment
		return v
	case *IncDecExpr:
		t.pre = append(t.pre, t.incDec(n))
		v := t.lvalue(n.Target, "")
		if n.Prefix {
			v.Flags |= PendingAssignment
			return v
		}
		// the hoisted update already ran; undo it for the old value
		op := " - 1"
		if n.Op == mel.MINUS_MINUS {
			op = " + 1"
		}
		return atom("("+operand(v, precAdd, false)+op+")", v.Type)
	case *ParenExpr:
		inner := t.expr(n.Inner)
		out := atom("("+inner.Text+")", inner.Type)
		out.Flags = inner.Flags
		out.Payload = inner.Payload
		return out
	case *CallExpr:
		return t.callExpr(n, false)
	case *CommandExpr:
		return t.command(n, false)
	case *ArrayLit:
		parts := make([]string, len(n.Elems))
		typ := mel.None
		for i, el := range n.Elems {
			v := t.expr(el)
			if i == 0 {
				typ = v.Type
			}
			parts[i] = v.Text
		}
		return atom("["+strings.Join(parts, ", ")+"]", typ.AsArray())
	case *VectorLit:
		parts := make([]string, len(n.Elems))
		for i, el := range n.Elems {
			parts[i] = t.expr(el).Text
		}
		return atom(t.ctx.ns("dt.Vector")+"("+strings.Join(parts, ", ")+")", mel.Vector)
	case *MatrixLit:
		rows := make([]string, len(n.Rows))
		for i, row := range n.Rows {
			parts := make([]string, len(row))
			for j, el := range row {
				parts[j] = t.expr(el).Text
			}
			rows[i] = "[" + strings.Join(parts, ", ") + "]"
		}
		return atom(t.ctx.ns("dt.Matrix")+"(["+strings.Join(rows, ", ")+"])", mel.Matrix)
	case *CastExpr:
		return t.explicitCast(t.expr(n.Expr), n.Type)
	}
	return atom("None", mel.None)
}

func (t *Translator) varRef(n *VarRef) Value {
	var v Value
	info, ok := t.ctx.types.Lookup(n.Name)
	switch {
	case !ok:
		v = atom(pyName(n.Name), mel.None)
	case info.Global:
		v = atom(t.globalRef(n.Name), info.Type)
		v.Flags = GlobalVar
		v.Payload = n.Name
	default:
		v = atom(info.PyName, info.Type)
	}
	v.Line = n.Line
	return v
}

func (t *Translator) index(n *IndexExpr, left Value) Value {
	idx := t.expr(n.Index)
	out := atom(operand(left, precAtom, false)+"["+idx.Text+"]", mel.None)
	out.Line = left.Line
	if isSizeOf(n.Index, n.Left) {
		out.Flags |= AppendingToArray
	}
	switch {
	case left.Type.IsArray():
		out.Type = left.Type.Elem()
	case left.Type == mel.Matrix:
		out.Payload = "row"
	case left.Payload == "row" && !left.Has(GlobalVar):
		out.Type = mel.Float
	}
	return out
}

func (t *Translator) binary(n *BinaryExpr) Value {
	left := t.expr(n.Left)
	right := t.expr(n.Right)
	p := binPrec[n.Op]
	op := pyBinOps[n.Op]
	typ := mel.Int

	switch n.Op {
	case mel.PLUS:
		ls, rs := left.Type == mel.String, right.Type == mel.String
		switch {
		case ls && !rs && right.Type != mel.None:
			right = atom("str("+right.Text+")", mel.String)
			typ = mel.String
		case rs && !ls && left.Type != mel.None:
			left = atom("str("+left.Text+")", mel.String)
			typ = mel.String
		case ls || rs:
			typ = mel.String
		case left.Type.IsArray() || right.Type.IsArray():
			typ = left.Type
			if typ == mel.None {
				typ = right.Type
			}
		default:
			typ = combineNumeric(left.Type, right.Type)
		}
	case mel.MINUS, mel.PERCENT:
		typ = combineNumeric(left.Type, right.Type)
	case mel.STAR:
		typ = combineNumeric(left.Type, right.Type)
		if left.Type == mel.Vector && right.Type == mel.Vector {
			typ = mel.Float // dot product
		}
	case mel.SLASH:
		typ = combineNumeric(left.Type, right.Type)
		if left.Type == mel.Int && right.Type == mel.Int {
			op = "//"
		}
	case mel.CARET:
		typ = mel.Vector
	}

	// Python chains comparisons, so nested ones keep their parentheses.
	strictLeft := p == precCmp
	return Value{
		Text: operand(left, p, strictLeft) + " " + op + " " + operand(right, p, true),
		Type: typ,
		prec: p,
	}
}

// ternary keeps the historical "c and a or b" shape, which yields b when a
// is falsy.
func (t *Translator) ternary(n *TernaryExpr) Value {
	cond := t.expr(n.Cond)
	a := t.expr(n.Then)
	b := t.expr(n.Else)
	typ := a.Type
	if typ == mel.None {
		typ = b.Type
	}
	return Value{
		Text: operand(cond, precAnd, false) + " and " + operand(a, precAnd, true) + " or " + operand(b, precOr, true),
		Type: typ,
		prec: precOr,
	}
}

// lvalue renders an assignment target. A non-empty root replaces the text
// of the root variable, which lets globals be modified through a temporary.
func (t *Translator) lvalue(e Expr, root string) Value {
	switch n := e.(type) {
	case *VarRef:
		v := t.varRef(n)
		if root != "" {
			v.Text = root
		}
		return v
	case *IndexExpr:
		return t.index(n, t.lvalue(n.Left, root))
	case *ComponentExpr:
		left := t.lvalue(n.Left, root)
		out := atom(operand(left, precAtom, false)+"."+n.Comp, mel.Float)
		out.Flags = left.Flags & GlobalVar
		return out
	case *ParenExpr:
		return t.lvalue(n.Inner, root)
	}
	return t.expr(e)
}

// globalElement reports whether e writes inside a global array or vector,
// which the globals table can only do by reading and storing the whole value.
func (t *Translator) globalElement(e Expr) (string, bool) {
	if _, ok := e.(*VarRef); ok {
		return "", false
	}
	root := rootVar(e)
	if root == nil {
		return "", false
	}
	info, ok := t.ctx.types.Lookup(root.Name)
	if !ok || !info.Global {
		return "", false
	}
	return root.Name, true
}

// throughTemp wraps update in a read-modify-write of global name.
func (t *Translator) throughTemp(name string, update func(root string) string) string {
	tmp := t.temp(name)
	return strings.Join([]string{
		tmp + " = " + t.globalRef(name),
		update(tmp),
		t.globalRef(name) + " = " + tmp,
	}, "\n")
}

var assignOps = map[mel.TokenType]string{
	mel.ASSIGN:       "=",
	mel.PLUS_ASSIGN:  "+=",
	mel.MINUS_ASSIGN: "-=",
	mel.STAR_ASSIGN:  "*=",
	mel.SLASH_ASSIGN: "/=",
}

// assign renders an assignment statement.
func (t *Translator) assign(n *AssignExpr) string {
	if idx, ok := n.Left.(*IndexExpr); ok && n.Op == mel.ASSIGN && isSizeOf(idx.Index, idx.Left) {
		return t.appendTo(idx.Left, n.Value)
	}

	value := t.expr(n.Value)
	render := func(root string) string {
		target := t.lvalue(n.Left, root)
		op := assignOps[n.Op]
		v := value
		switch n.Op {
		case mel.ASSIGN:
			v = t.castTo(v, target.Type)
		case mel.PLUS_ASSIGN:
			if target.Type == mel.String && v.Type != mel.String && v.Type != mel.None {
				v = atom("str("+v.Text+")", mel.String)
			}
		case mel.SLASH_ASSIGN:
			if target.Type == mel.Int && v.Type == mel.Int {
				op = "//="
			}
		}
		return target.Text + " " + op + " " + v.Text
	}
	if name, ok := t.globalElement(n.Left); ok {
		return t.throughTemp(name, render)
	}
	return render("")
}

// appendTo renders arr[size(arr)] = value.
func (t *Translator) appendTo(arr Expr, valueExpr Expr) string {
	target := t.lvalue(arr, "")
	v := t.castTo(t.expr(valueExpr), target.Type.Elem())
	if _, ok := arr.(*VarRef); ok && target.Has(GlobalVar) {
		return target.Text + " += [" + v.Text + "]"
	}
	render := func(root string) string {
		return operand(t.lvalue(arr, root), precAtom, false) + ".append(" + v.Text + ")"
	}
	if name, ok := t.globalElement(arr); ok {
		return t.throughTemp(name, render)
	}
	return render("")
}

// incDec renders ++/-- as an augmented assignment.
func (t *Translator) incDec(n *IncDecExpr) string {
	op := " += 1"
	if n.Op == mel.MINUS_MINUS {
		op = " -= 1"
	}
	render := func(root string) string {
		return t.lvalue(n.Target, root).Text + op
	}
	if name, ok := t.globalElement(n.Target); ok {
		return t.throughTemp(name, render)
	}
	return render("")
}
