package translator

import (
	"regexp"
	"strconv"
	"strings"

	"mel2py/pkg/mel"
)

// ValueFlag tags a translated value with work its consumer still has to do.
type ValueFlag uint8

const (
	// PendingAssignment: the value is the target of an assignment that was
	// hoisted in front of the current statement.
	PendingAssignment ValueFlag = 1 << iota
	// GlobalVar: the value reads a MEL global through the globals table.
	// Payload holds the global's name.
	GlobalVar
	// AppendingToArray: the value is arr[size(arr)], one past the end.
	AppendingToArray
	// DeferredSizeAssignment: the value is the length of an array filled by
	// a hoisted tokenize.
	DeferredSizeAssignment
)

// Python operator precedence, lowest first.
const (
	precLambda = iota
	precOr
	precAnd
	precNot
	precCmp
	precXor
	precAdd
	precMul
	precUnary
	precPow
	precAtom
)

// Value is one translated expression.
type Value struct {
	Text    string
	Type    mel.Type
	Line    int // source line of the variable or call it came from
	Flags   ValueFlag
	Payload string
	prec    int
}

func (v Value) Has(f ValueFlag) bool { return v.Flags&f != 0 }

func atom(text string, typ mel.Type) Value {
	return Value{Text: text, Type: typ, prec: precAtom}
}

// operand renders v for use inside an operator of precedence p. Operands
// that bind looser than p get parentheses; so do equal ones when strict.
func operand(v Value, p int, strict bool) string {
	if v.prec < p || (strict && v.prec == p) {
		return "(" + v.Text + ")"
	}
	return v.Text
}

var (
	decimalInt = regexp.MustCompile(`^-?\d+$`)
	leadZeros  = regexp.MustCompile(`^0+(\d)`)
)

// intLiteral reports whether v is a plain decimal integer constant.
func intLiteral(v Value) (int64, bool) {
	if !decimalInt.MatchString(v.Text) {
		return 0, false
	}
	n, err := strconv.ParseInt(v.Text, 10, 64)
	return n, err == nil
}

// addConst renders v + k, folding integer constants.
func addConst(v Value, k int64) Value {
	if k == 0 {
		return v
	}
	if n, ok := intLiteral(v); ok {
		out := atom(strconv.FormatInt(n+k, 10), mel.Int)
		if n+k < 0 {
			out.prec = precUnary
		}
		return out
	}
	op := " + "
	if k < 0 {
		op = " - "
		k = -k
	}
	return Value{Text: operand(v, precAdd, false) + op + strconv.FormatInt(k, 10), Type: v.Type, prec: precAdd}
}

// combineNumeric is the result type of an arithmetic operator.
func combineNumeric(a, b mel.Type) mel.Type {
	switch {
	case a == mel.Matrix || b == mel.Matrix:
		return mel.Matrix
	case a == mel.Vector || b == mel.Vector:
		return mel.Vector
	case a == mel.Float || b == mel.Float:
		return mel.Float
	case a == mel.None || b == mel.None:
		if a == mel.None {
			return b
		}
		return a
	}
	return mel.Int
}

// castTo coerces v to typ the way MEL does on assignment. Unknown types are
// left alone.
func (t *Translator) castTo(v Value, typ mel.Type) Value {
	if typ == mel.None || v.Type == mel.None || v.Type == typ || typ.IsArray() || v.Type.IsArray() {
		return v
	}
	switch typ {
	case mel.Int:
		if v.Type == mel.Bool {
			return v
		}
		return atom("int("+v.Text+")", mel.Int)
	case mel.Float:
		if _, ok := intLiteral(v); ok {
			out := atom(v.Text+".0", mel.Float)
			out.prec = v.prec
			return out
		}
		return atom("float("+v.Text+")", mel.Float)
	case mel.String:
		return atom("str("+v.Text+")", mel.String)
	case mel.Bool:
		if v.Type == mel.Int {
			return v
		}
	case mel.Vector:
		if v.Type == mel.Matrix {
			return v
		}
		return atom(t.ctx.ns("dt.Vector")+"("+v.Text+")", mel.Vector)
	case mel.Matrix:
		return atom(t.ctx.ns("dt.Matrix")+"("+v.Text+")", mel.Matrix)
	}
	return v
}

// explicitCast renders a source-level cast, which always converts.
func (t *Translator) explicitCast(v Value, typ mel.Type) Value {
	if v.Type == typ {
		return v
	}
	switch typ {
	case mel.Int:
		return atom("int("+v.Text+")", mel.Int)
	case mel.Float:
		if _, ok := intLiteral(v); ok {
			return atom(v.Text+".0", mel.Float)
		}
		return atom("float("+v.Text+")", mel.Float)
	case mel.String:
		return atom("str("+v.Text+")", mel.String)
	}
	return t.castTo(v, typ)
}

// pyInt normalises a MEL integer literal for Python 3, which rejects
// leading zeros.
func pyInt(text string) string {
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "0x") {
		return text
	}
	return leadZeros.ReplaceAllString(text, "$1")
}

// pyStr quotes s as a single-quoted Python string literal.
func pyStr(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return "'" + s + "'"
}

// unescapeMEL resolves the backslash escapes of a MEL string body.
func unescapeMEL(raw string) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '"', '\\':
			sb.WriteByte(raw[i])
		default:
			sb.WriteByte('\\')
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}
