package translator

import (
	"errors"
	"fmt"
	"strings"

	"mel2py/pkg/flagdb"
	"mel2py/pkg/mel"
)

// callSite is one invocation of a command or procedure, in either function
// syntax (every argument positional) or command syntax.
type callSite struct {
	name      string
	args      []CmdArg
	line      int
	stmt      bool // the call is a whole statement
	cmdSyntax bool
}

func (cs *callSite) hasFlags() bool {
	for _, a := range cs.args {
		if a.Flag != "" {
			return true
		}
	}
	return false
}

func (t *Translator) callExpr(n *CallExpr, stmt bool) Value {
	args := make([]CmdArg, len(n.Args))
	for i, a := range n.Args {
		args[i] = CmdArg{Value: a}
	}
	return t.call(&callSite{name: n.Name, args: args, line: n.Line, stmt: stmt})
}

func (t *Translator) command(n *CommandExpr, stmt bool) Value {
	return t.call(&callSite{name: n.Name, args: n.Args, line: n.Line, stmt: stmt, cmdSyntax: true})
}

// call renders a call, trying in order: builtin rewrite rules, procedures
// of this file or the batch, the flag database, and the live evaluator.
func (t *Translator) call(cs *callSite) Value {
	if rule, ok := builtins[cs.name]; ok {
		if v, ok := rule(t, cs); ok {
			v.Line = cs.line
			return v
		}
	}
	if v, ok := t.procCall(cs); ok {
		return v
	}
	if v, ok := t.flagCall(cs); ok {
		return v
	}
	return t.fallback(cs)
}

func (t *Translator) argText(a CmdArg) string {
	if a.Flag != "" {
		return pyStr("-" + a.Flag)
	}
	return t.expr(a.Value).Text
}

func (t *Translator) procCall(cs *callSite) (Value, bool) {
	info, ok := t.ctx.local.Lookup(cs.name)
	prefix := ""
	if !ok {
		if t.ctx.env.Procs == nil {
			return Value{}, false
		}
		ref, found := t.ctx.env.Procs.Lookup(cs.name)
		if !found {
			return Value{}, false
		}
		info = ref.Proc
		if ref.Module != t.ctx.env.Module {
			prefix = ref.Module + "."
			t.ctx.modules[ref.Module] = true
		}
	}

	args := make([]string, len(cs.args))
	for i, a := range cs.args {
		if a.Flag != "" {
			args[i] = pyStr("-" + a.Flag)
			continue
		}
		v := t.expr(a.Value)
		if i < len(info.Args) {
			v = t.castTo(v, info.Args[i].Type)
		}
		args[i] = v.Text
	}
	return atom(prefix+pyName(cs.name)+"("+strings.Join(args, ", ")+")", info.ReturnType), true
}

// kwArg is one keyword argument of a flag database call.
type kwArg struct {
	name   string
	values []string
	multi  bool
}

func (k *kwArg) String() string {
	if k.multi {
		return "[" + strings.Join(k.values, ", ") + "]"
	}
	return k.values[len(k.values)-1]
}

// flagCall renders a command known to the flag database as a call with
// keyword arguments. It declines when the arguments do not match the
// database, leaving the call to the live evaluator.
func (t *Translator) flagCall(cs *callSite) (Value, bool) {
	db := t.ctx.env.Flags
	cmd, ok := db.Command(cs.name)
	if !ok || !db.HasPython(cs.name) {
		return Value{}, false
	}

	query := false
	for _, a := range cs.args {
		if a.Flag == "" {
			continue
		}
		f, ok := cmd.Flag(a.Flag)
		if !ok {
			if s := cmd.Suggest(a.Flag); s != "" {
				t.ctx.warnf(cs.line, "%s: unknown flag -%s (did you mean -%s?)", cs.name, a.Flag, s)
			} else {
				t.ctx.warnf(cs.line, "%s: unknown flag -%s", cs.name, a.Flag)
			}
			return Value{}, false
		}
		if f.Name == "query" {
			query = true
		}
	}

	// check arity before rendering so a declined call hoists nothing
	for i := 0; i < len(cs.args); i++ {
		a := cs.args[i]
		if a.Flag == "" {
			continue
		}
		f, _ := cmd.Flag(a.Flag)
		n := f.NumArgs
		if query {
			n = 0
		}
		for j := 1; j <= n; j++ {
			if i+j >= len(cs.args) || cs.args[i+j].Flag != "" {
				t.ctx.warnf(cs.line, "%s: flag -%s takes %d value(s)", cs.name, f.Name, f.NumArgs)
				return Value{}, false
			}
		}
		i += n
	}

	var positional []string
	var kws []*kwArg
	byName := make(map[string]*kwArg)
	for i := 0; i < len(cs.args); i++ {
		a := cs.args[i]
		if a.Flag == "" {
			positional = append(positional, t.expr(a.Value).Text)
			continue
		}
		f, _ := cmd.Flag(a.Flag)
		n := f.NumArgs
		if query {
			n = 0
		}
		vals := make([]string, n)
		for j := range vals {
			vals[j] = t.flagValue(f, cs.args[i+1+j].Value)
		}
		i += n

		var val string
		switch n {
		case 0:
			val = "True"
		case 1:
			val = vals[0]
		default:
			val = "(" + strings.Join(vals, ", ") + ")"
		}
		kw, seen := byName[f.Name]
		if !seen {
			kw = &kwArg{name: f.Name, multi: f.MultiUse}
			byName[f.Name] = kw
			kws = append(kws, kw)
		}
		kw.values = append(kw.values, val)
	}

	args := positional
	var special []string
	for _, kw := range kws {
		if pyKeywords[kw.name] && kw.name != "print" && kw.name != "exec" {
			special = append(special, fmt.Sprintf("%s: %s", pyStr(kw.name), kw))
			continue
		}
		args = append(args, kw.name+"="+kw.String())
	}
	if len(special) > 0 {
		args = append(args, "**{"+strings.Join(special, ", ")+"}")
	}

	typ := cmd.Returns
	if query {
		typ = mel.None
	}
	return atom(t.ctx.ns(cs.name)+"("+strings.Join(args, ", ")+")", typ), true
}

func (t *Translator) flagValue(f *flagdb.Flag, e Expr) string {
	if f.Callback {
		return t.callback(e)
	}
	return t.expr(e).Text
}

// callback translates a script passed to a callback flag into a lambda. A
// script that is not a single expression is handed to the live evaluator
// unchanged.
func (t *Translator) callback(e Expr) string {
	lit, ok := e.(*StringLit)
	if !ok {
		return t.expr(e).Text
	}
	code, sub, err := translateExpr(unescapeMEL(lit.Raw), t.ctx.opts, t.ctx.env, t.ctx.local)
	if err != nil {
		var epe *ExpressionParseError
		if !errors.As(err, &epe) {
			t.ctx.warnf(0, "callback %q: %v", lit.Raw, err)
		}
		return "lambda *args: " + t.ctx.ns("mel.eval") + `("` + lit.Raw + `")`
	}
	for m := range sub.imports {
		t.ctx.imports[m] = true
	}
	for m := range sub.modules {
		t.ctx.modules[m] = true
	}
	t.ctx.warnings = append(t.ctx.warnings, sub.warnings...)
	return "lambda *args: " + code
}

// fallback hands the call to the live evaluator with flags as strings.
func (t *Translator) fallback(cs *callSite) Value {
	args := make([]string, len(cs.args))
	for i, a := range cs.args {
		args[i] = t.argText(a)
	}
	return atom(t.ctx.ns("mel."+cs.name)+"("+strings.Join(args, ", ")+")", mel.None)
}
