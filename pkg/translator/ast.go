package translator

import (
	"fmt"
	"strings"

	"mel2py/pkg/mel"
)

var opText = map[mel.TokenType]string{
	mel.PLUS:         "+",
	mel.MINUS:        "-",
	mel.STAR:         "*",
	mel.SLASH:        "/",
	mel.PERCENT:      "%",
	mel.CARET:        "^",
	mel.AND_LOGICAL:  "&&",
	mel.OR_LOGICAL:   "||",
	mel.NOT:          "!",
	mel.PLUS_PLUS:    "++",
	mel.MINUS_MINUS:  "--",
	mel.ASSIGN:       "=",
	mel.PLUS_ASSIGN:  "+=",
	mel.MINUS_ASSIGN: "-=",
	mel.STAR_ASSIGN:  "*=",
	mel.SLASH_ASSIGN: "/=",
	mel.EQUALS:       "==",
	mel.NOT_EQ:       "!=",
	mel.LESS:         "<",
	mel.GREATER:      ">",
	mel.LESS_EQ:      "<=",
	mel.GREATER_EQ:   ">=",
}

func joinNodes[T fmt.Stringer](nodes []T, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}

//  Expression nodes

// Expr is implemented by every node that produces a value.
type Expr interface {
	exprNode()
	String() string
}

// IntLit is an integer literal, decimal or hex, kept as written.
type IntLit struct {
	Text string
}

func (*IntLit) exprNode()        {}
func (l *IntLit) String() string { return l.Text }

type FloatLit struct {
	Text string
}

func (*FloatLit) exprNode()        {}
func (l *FloatLit) String() string { return l.Text }

// StringLit holds the literal body with escapes as written.
type StringLit struct {
	Raw string
}

func (*StringLit) exprNode()        {}
func (s *StringLit) String() string { return `"` + s.Raw + `"` }

// BoolLit is true/on/yes or false/off/no.
type BoolLit struct {
	Value bool
}

func (*BoolLit) exprNode() {}
func (b *BoolLit) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// VarRef is a read of $Name.
type VarRef struct {
	Name string
	Line int
}

func (*VarRef) exprNode()        {}
func (v *VarRef) String() string { return "$" + v.Name }

type IndexExpr struct {
	Left  Expr
	Index Expr
}

func (*IndexExpr) exprNode()        {}
func (i *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", i.Left, i.Index) }

// ComponentExpr is a vector component access: $v.x
type ComponentExpr struct {
	Left Expr
	Comp string // "x", "y" or "z"
}

func (*ComponentExpr) exprNode()        {}
func (c *ComponentExpr) String() string { return fmt.Sprintf("%s.%s", c.Left, c.Comp) }

type UnaryExpr struct {
	Op    mel.TokenType
	Right Expr
}

func (*UnaryExpr) exprNode()        {}
func (u *UnaryExpr) String() string { return fmt.Sprintf("(%s%s)", opText[u.Op], u.Right) }

type BinaryExpr struct {
	Op    mel.TokenType
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, opText[b.Op], b.Right)
}

type TernaryExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (*TernaryExpr) exprNode() {}
func (t *TernaryExpr) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", t.Cond, t.Then, t.Else)
}

// AssignExpr is = += -= *= /= used as a statement or inside an expression.
type AssignExpr struct {
	Op    mel.TokenType
	Left  Expr
	Value Expr
	Line  int
}

func (*AssignExpr) exprNode() {}
func (a *AssignExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", a.Left, opText[a.Op], a.Value)
}

// IncDecExpr is ++ or -- in prefix or postfix position.
type IncDecExpr struct {
	Op     mel.TokenType
	Target Expr
	Prefix bool
}

func (*IncDecExpr) exprNode() {}
func (i *IncDecExpr) String() string {
	if i.Prefix {
		return fmt.Sprintf("(%s%s)", opText[i.Op], i.Target)
	}
	return fmt.Sprintf("(%s%s)", i.Target, opText[i.Op])
}

// ParenExpr keeps source parentheses.
type ParenExpr struct {
	Inner Expr
}

func (*ParenExpr) exprNode()        {}
func (p *ParenExpr) String() string { return "(" + p.Inner.String() + ")" }

// CallExpr is a procedure or command invoked with function syntax: name(a, b)
type CallExpr struct {
	Name string
	Args []Expr
	Line int
}

func (*CallExpr) exprNode() {}
func (c *CallExpr) String() string {
	return fmt.Sprintf("%s(%s)", c.Name, joinNodes(c.Args, ", "))
}

// CmdArg is one argument of a command-syntax invocation: either a flag
// (Flag holds the name without the dash) or a value.
type CmdArg struct {
	Flag  string
	Value Expr
}

func (a CmdArg) String() string {
	if a.Flag != "" {
		return "-" + a.Flag
	}
	return a.Value.String()
}

// CommandExpr is a command invoked with command syntax, either as a
// statement or inside backquotes.
type CommandExpr struct {
	Name string
	Args []CmdArg
	Line int
}

func (*CommandExpr) exprNode() {}
func (c *CommandExpr) String() string {
	if len(c.Args) == 0 {
		return "`" + c.Name + "`"
	}
	return "`" + c.Name + " " + joinNodes(c.Args, " ") + "`"
}

type ArrayLit struct {
	Elems []Expr
}

func (*ArrayLit) exprNode()        {}
func (a *ArrayLit) String() string { return "{" + joinNodes(a.Elems, ", ") + "}" }

type VectorLit struct {
	Elems []Expr
}

func (*VectorLit) exprNode()        {}
func (v *VectorLit) String() string { return "<<" + joinNodes(v.Elems, ", ") + ">>" }

type MatrixLit struct {
	Rows [][]Expr
}

func (*MatrixLit) exprNode() {}
func (m *MatrixLit) String() string {
	rows := make([]string, len(m.Rows))
	for i, r := range m.Rows {
		rows[i] = joinNodes(r, ", ")
	}
	return "<<" + strings.Join(rows, "; ") + ">>"
}

// CastExpr is int(x), (float)x and friends.
type CastExpr struct {
	Type mel.Type
	Expr Expr
}

func (*CastExpr) exprNode()        {}
func (c *CastExpr) String() string { return fmt.Sprintf("%s(%s)", c.Type, c.Expr) }

//  Statement nodes

// StmtMeta carries position and the comments attached to a statement.
type StmtMeta struct {
	Line    int
	Leading []Comment
	Inline  *Comment
}

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
	Meta() *StmtMeta
	String() string
}

type stmtBase struct {
	meta StmtMeta
}

func (*stmtBase) stmtNode()         {}
func (b *stmtBase) Meta() *StmtMeta { return &b.meta }

// DeclVar is one name of a declaration: $a, $a[], $a[4], $m[4][4] = ...
type DeclVar struct {
	Name  string
	Array bool
	Size  Expr   // optional array size
	Dims  []Expr // matrix dimensions
	Init  Expr
}

func (d DeclVar) String() string {
	s := "$" + d.Name
	if d.Array {
		if d.Size != nil {
			s += "[" + d.Size.String() + "]"
		} else {
			s += "[]"
		}
	}
	for _, dim := range d.Dims {
		s += "[" + dim.String() + "]"
	}
	if d.Init != nil {
		s += " = " + d.Init.String()
	}
	return s
}

type DeclStmt struct {
	stmtBase
	Global bool
	Type   mel.Type // element type
	Vars   []DeclVar
}

func (d *DeclStmt) String() string {
	prefix := ""
	if d.Global {
		prefix = "global "
	}
	return fmt.Sprintf("%s%s %s;", prefix, d.Type, joinNodes(d.Vars, ", "))
}

type ExprStmt struct {
	stmtBase
	Expr Expr
}

func (e *ExprStmt) String() string { return e.Expr.String() + ";" }

type EmptyStmt struct {
	stmtBase
}

func (*EmptyStmt) String() string { return ";" }

type BlockStmt struct {
	stmtBase
	Stmts    []Stmt
	Trailing []Comment
}

func (b *BlockStmt) String() string {
	if len(b.Stmts) == 0 {
		return "{ }"
	}
	return "{ " + joinNodes(b.Stmts, " ") + " }"
}

type IfStmt struct {
	stmtBase
	Cond Expr
	Then Stmt
	Else Stmt // nil, *IfStmt or any statement
}

func (i *IfStmt) String() string {
	s := fmt.Sprintf("if %s %s", i.Cond, i.Then)
	if i.Else != nil {
		s += " else " + i.Else.String()
	}
	return s
}

type WhileStmt struct {
	stmtBase
	Cond Expr
	Body Stmt
}

func (w *WhileStmt) String() string { return fmt.Sprintf("while %s %s", w.Cond, w.Body) }

type DoWhileStmt struct {
	stmtBase
	Body Stmt
	Cond Expr
}

func (d *DoWhileStmt) String() string { return fmt.Sprintf("do %s while %s;", d.Body, d.Cond) }

// ForStmt is the C-style loop. Init and Update are comma separated lists.
type ForStmt struct {
	stmtBase
	Init   []Expr
	Cond   Expr // nil means forever
	Update []Expr
	Body   Stmt
}

func (f *ForStmt) String() string {
	cond := ""
	if f.Cond != nil {
		cond = f.Cond.String()
	}
	return fmt.Sprintf("for (%s; %s; %s) %s", joinNodes(f.Init, ", "), cond, joinNodes(f.Update, ", "), f.Body)
}

type ForInStmt struct {
	stmtBase
	Var  string
	Coll Expr
	Body Stmt
}

func (f *ForInStmt) String() string { return fmt.Sprintf("for ($%s in %s) %s", f.Var, f.Coll, f.Body) }

// CaseClause is one case label and the statements that follow it. Value is
// nil for default.
type CaseClause struct {
	Value   Expr
	Body    []Stmt
	Line    int
	Leading []Comment
}

func (c *CaseClause) String() string {
	label := "default:"
	if c.Value != nil {
		label = "case " + c.Value.String() + ":"
	}
	if len(c.Body) == 0 {
		return label
	}
	return label + " " + joinNodes(c.Body, " ")
}

type SwitchStmt struct {
	stmtBase
	Target   Expr
	Cases    []*CaseClause
	Trailing []Comment
}

func (s *SwitchStmt) String() string {
	return fmt.Sprintf("switch %s { %s }", s.Target, joinNodes(s.Cases, " "))
}

type BreakStmt struct {
	stmtBase
}

func (*BreakStmt) String() string { return "break;" }

type ContinueStmt struct {
	stmtBase
}

func (*ContinueStmt) String() string { return "continue;" }

type ReturnStmt struct {
	stmtBase
	Value Expr
}

func (r *ReturnStmt) String() string {
	if r.Value == nil {
		return "return;"
	}
	return "return " + r.Value.String() + ";"
}

type Param struct {
	Name string
	Type mel.Type
}

func (p Param) String() string { return fmt.Sprintf("%s $%s", p.Type, p.Name) }

type ProcDecl struct {
	stmtBase
	Global     bool
	ReturnType mel.Type
	Name       string
	Params     []Param
	Body       *BlockStmt
}

func (p *ProcDecl) String() string {
	prefix := ""
	if p.Global {
		prefix = "global "
	}
	ret := ""
	if p.ReturnType != mel.None {
		ret = p.ReturnType.String() + " "
	}
	return fmt.Sprintf("%sproc %s%s(%s) %s", prefix, ret, p.Name, joinNodes(p.Params, ", "), p.Body)
}

// Program is a parsed file.
type Program struct {
	Stmts    []Stmt
	Trailing []Comment
}

func (p *Program) String() string {
	return joinNodes(p.Stmts, "\n")
}
