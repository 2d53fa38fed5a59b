package translator

import (
	"fmt"
	"strings"

	"mel2py/pkg/mel"
)

// builtin rewrites a call to a MEL library function. It reports false to
// decline, in which case nothing may have been rendered or hoisted yet.
type builtin func(t *Translator, cs *callSite) (Value, bool)

// builtins is filled in init because the rules call back into the
// translator, which consults the table.
var builtins map[string]builtin

// fixed builds a rule for calls with between min and max positional
// arguments. render receives the translated arguments.
func fixed(min, max int, typ mel.Type, imports []string, render func(a []Value) string) builtin {
	return func(t *Translator, cs *callSite) (Value, bool) {
		if len(cs.args) < min || len(cs.args) > max || cs.hasFlags() {
			return Value{}, false
		}
		vals := make([]Value, len(cs.args))
		for i, a := range cs.args {
			vals[i] = t.expr(a.Value)
		}
		for _, imp := range imports {
			t.ctx.requireImport(imp)
		}
		return atom(render(vals), typ), true
	}
}

// method renders a.name(args...).
func method(name string, typ mel.Type, nargs int) builtin {
	return fixed(nargs+1, nargs+1, typ, nil, func(a []Value) string {
		args := make([]string, nargs)
		for i := range args {
			args[i] = a[i+1].Text
		}
		return operand(a[0], precAtom, false) + "." + name + "(" + strings.Join(args, ", ") + ")"
	})
}

// function renders name(args...), optionally from an imported module.
func function(name string, typ mel.Type, nargs int, module string) builtin {
	var imports []string
	if module != "" {
		imports = []string{module}
		name = module + "." + name
	}
	return fixed(nargs, nargs, typ, imports, func(a []Value) string {
		return name + "(" + joinValues(a) + ")"
	})
}

func joinValues(vals []Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.Text
	}
	return strings.Join(parts, ", ")
}

func indentBlock(lines []string) string {
	var out []string
	for _, l := range lines {
		for _, sub := range strings.Split(l, "\n") {
			out = append(out, "    "+sub)
		}
	}
	return strings.Join(out, "\n")
}

func init() {
	builtins = map[string]builtin{
		"size": fixed(1, 1, mel.Int, nil, func(a []Value) string {
			return "len(" + a[0].Text + ")"
		}),
		"strip":               method("strip", mel.String, 0),
		"toupper":             method("upper", mel.String, 0),
		"tolower":             method("lower", mel.String, 0),
		"startsWith":          method("startswith", mel.Bool, 1),
		"endsWith":            method("endswith", mel.Bool, 1),
		"substituteAllString": method("replace", mel.String, 2),
		"substring": fixed(3, 3, mel.String, nil, func(a []Value) string {
			return operand(a[0], precAtom, false) + "[" + addConst(a[1], -1).Text + ":" + a[2].Text + "]"
		}),
		"substitute": fixed(3, 3, mel.String, []string{"re"}, func(a []Value) string {
			return fmt.Sprintf("re.sub(%s, %s, %s, 1)", a[0].Text, a[2].Text, a[1].Text)
		}),
		"match": fixed(2, 2, mel.String, []string{"re"}, func(a []Value) string {
			return fmt.Sprintf("(re.search(%s, %s) or [''])[0]", a[0].Text, a[1].Text)
		}),
		"stringArrayToString": fixed(2, 2, mel.String, nil, func(a []Value) string {
			return operand(a[1], precAtom, false) + ".join(" + a[0].Text + ")"
		}),
		"gmatch": function("fnmatchcase", mel.Bool, 2, "fnmatch"),
		"abs": func(t *Translator, cs *callSite) (Value, bool) {
			if len(cs.args) != 1 || cs.hasFlags() {
				return Value{}, false
			}
			v := t.expr(cs.args[0].Value)
			return atom("abs("+v.Text+")", v.Type), true
		},
		"min":  minMax("min"),
		"max":  minMax("max"),
		"pow":  function("pow", mel.Float, 2, ""),
		"sqrt": function("sqrt", mel.Float, 1, "math"),
		"sin":  function("sin", mel.Float, 1, "math"),
		"cos":  function("cos", mel.Float, 1, "math"),
		"tan":  function("tan", mel.Float, 1, "math"),
		"exp":  function("exp", mel.Float, 1, "math"),
		"log":  function("log", mel.Float, 1, "math"),
		"floor": fixed(1, 1, mel.Float, []string{"math"}, func(a []Value) string {
			return "float(math.floor(" + a[0].Text + "))"
		}),
		"ceil": fixed(1, 1, mel.Float, []string{"math"}, func(a []Value) string {
			return "float(math.ceil(" + a[0].Text + "))"
		}),
		"rand": fixed(1, 2, mel.Float, []string{"random"}, func(a []Value) string {
			if len(a) == 1 {
				return "random.uniform(0, " + a[0].Text + ")"
			}
			return "random.uniform(" + a[0].Text + ", " + a[1].Text + ")"
		}),
		"getenv": fixed(1, 1, mel.String, []string{"os"}, func(a []Value) string {
			return "os.getenv(" + a[0].Text + ", '')"
		}),
		"putenv": func(t *Translator, cs *callSite) (Value, bool) {
			if !cs.stmt {
				return Value{}, false
			}
			return fixed(2, 2, mel.None, []string{"os"}, func(a []Value) string {
				return "os.environ[" + a[0].Text + "] = " + a[1].Text
			})(t, cs)
		},
		"system": function("getoutput", mel.String, 1, "subprocess"),
		"eval": func(t *Translator, cs *callSite) (Value, bool) {
			return function(t.ctx.ns("mel.eval"), mel.None, 1, "")(t, cs)
		},
		"print": fixed(1, 1, mel.None, nil, func(a []Value) string {
			return "print(" + a[0].Text + ", end='')"
		}),
		"fopen": fixed(1, 2, mel.None, nil, func(a []Value) string {
			if len(a) == 1 {
				return "open(" + a[0].Text + ", 'w')"
			}
			return "open(" + a[0].Text + ", " + a[1].Text + ")"
		}),
		"fclose":   method("close", mel.None, 0),
		"fgetline": method("readline", mel.String, 0),
		"fprint": fixed(2, 2, mel.None, nil, func(a []Value) string {
			v := a[1]
			if v.Type != mel.String {
				v = atom("str("+v.Text+")", mel.String)
			}
			return operand(a[0], precAtom, false) + ".write(" + v.Text + ")"
		}),
		"filetest": filetest,
		"sysFile":  sysFile,
		"tokenize": tokenize,
		"catch":    catch,
		"source":   source,
	}
}

func minMax(name string) builtin {
	return func(t *Translator, cs *callSite) (Value, bool) {
		if len(cs.args) != 2 || cs.hasFlags() {
			return Value{}, false
		}
		a, b := t.expr(cs.args[0].Value), t.expr(cs.args[1].Value)
		return atom(name+"("+a.Text+", "+b.Text+")", combineNumeric(a.Type, b.Type)), true
	}
}

var filetestFlags = map[string]string{
	"f": "os.path.isfile(%s)",
	"d": "os.path.isdir(%s)",
	"r": "os.access(%s, os.R_OK)",
	"w": "os.access(%s, os.W_OK)",
	"x": "os.access(%s, os.X_OK)",
	"l": "os.path.islink(%s)",
	"h": "os.path.islink(%s)",
	"s": "(os.path.exists(%[1]s) and os.path.getsize(%[1]s) > 0)",
}

// filetest -f $path
func filetest(t *Translator, cs *callSite) (Value, bool) {
	if len(cs.args) != 2 || cs.args[0].Flag == "" || cs.args[1].Flag != "" {
		return Value{}, false
	}
	format, ok := filetestFlags[cs.args[0].Flag]
	if !ok {
		return Value{}, false
	}
	t.ctx.requireImport("os")
	return atom(fmt.Sprintf(format, t.expr(cs.args[1].Value).Text), mel.Bool), true
}

// sysFile -delete $p, sysFile -copy $dst $src and friends.
func sysFile(t *Translator, cs *callSite) (Value, bool) {
	if len(cs.args) < 2 || cs.args[0].Flag == "" {
		return Value{}, false
	}
	for _, a := range cs.args[1:] {
		if a.Flag != "" {
			return Value{}, false
		}
	}
	var format, module string
	switch cs.args[0].Flag {
	case "delete", "del":
		format, module = "os.remove(%s)", "os"
	case "makeDir", "md":
		format, module = "os.makedirs(%s, exist_ok=True)", "os"
	case "removeEmptyDir", "red":
		format, module = "os.rmdir(%s)", "os"
	case "copy", "cp":
		format, module = "shutil.copy(%[2]s, %[1]s)", "shutil"
	case "rename", "ren":
		format, module = "os.rename(%[2]s, %[1]s)", "os"
	case "move", "mov":
		format, module = "shutil.move(%[2]s, %[1]s)", "shutil"
	default:
		return Value{}, false
	}
	want := 2
	if strings.Contains(format, "%[2]s") {
		want = 3
	}
	if len(cs.args) != want {
		return Value{}, false
	}
	args := make([]any, 0, 2)
	for _, a := range cs.args[1:] {
		args = append(args, t.expr(a.Value).Text)
	}
	t.ctx.requireImport(module)
	return atom(fmt.Sprintf(format, args...), mel.None), true
}

// tokenize(str, [sep,] array) fills array and returns its length. The fill
// is hoisted; the value is the length.
func tokenize(t *Translator, cs *callSite) (Value, bool) {
	if len(cs.args) < 2 || len(cs.args) > 3 || cs.hasFlags() {
		return Value{}, false
	}
	arrExpr, ok := cs.args[len(cs.args)-1].Value.(*VarRef)
	if !ok {
		return Value{}, false
	}
	info, declared := t.ctx.types.Lookup(arrExpr.Name)
	if !declared {
		info = t.ctx.types.Declare(arrExpr.Name, mel.String.AsArray(), false)
	}

	s := t.expr(cs.args[0].Value)
	var split string
	if len(cs.args) == 2 {
		split = operand(s, precAtom, false) + ".split()"
	} else {
		sepExpr := cs.args[1].Value
		sep := t.expr(sepExpr)
		if lit, ok := sepExpr.(*StringLit); ok && len([]rune(unescapeMEL(lit.Raw))) == 1 {
			split = fmt.Sprintf("[_t for _t in %s.split(%s) if _t]", operand(s, precAtom, false), sep.Text)
		} else {
			t.ctx.requireImport("re")
			split = fmt.Sprintf("[_t for _t in re.split('[' + re.escape(%s) + ']', %s) if _t]", sep.Text, s.Text)
		}
	}

	arr := t.varRef(arrExpr)
	target := arr.Text
	if declared && !info.Global {
		target += "[:]"
	}
	t.pre = append(t.pre, target+" = "+split)

	v := atom("len("+arr.Text+")", mel.Int)
	v.Flags = DeferredSizeAssignment
	v.Payload = arrExpr.Name
	return v, true
}

// catch(expr) runs expr and reports 1 when it failed. As a statement it is a
// plain try block; in an expression the try block is hoisted and the value
// is a flag variable.
func catch(t *Translator, cs *callSite) (Value, bool) {
	if len(cs.args) != 1 || cs.hasFlags() {
		return Value{}, false
	}
	inner := cs.args[0].Value
	if p, ok := inner.(*ParenExpr); ok {
		inner = p.Inner
	}
	line, pre := t.isolate(func() Value { return atom(t.exprStmt(inner), mel.None) })
	body := pre
	if line.Text != "" {
		body = append(body, line.Text)
	}
	if len(body) == 0 {
		body = []string{"pass"}
	}
	if cs.stmt {
		return atom("try:\n"+indentBlock(body)+"\nexcept Exception:\n    pass", mel.None), true
	}
	flag := t.temp("caught")
	t.pre = append(t.pre, flag+" = 0\ntry:\n"+indentBlock(body)+"\nexcept Exception:\n    "+flag+" = 1")
	return atom(flag, mel.Int), true
}

// source "file.mel" imports the file's module when the batch translates it.
func source(t *Translator, cs *callSite) (Value, bool) {
	if !cs.stmt || len(cs.args) != 1 || cs.hasFlags() || t.ctx.env.Procs == nil {
		return Value{}, false
	}
	lit, ok := cs.args[0].Value.(*StringLit)
	if !ok {
		return Value{}, false
	}
	mod := ModuleName(unescapeMEL(lit.Raw))
	if mod == t.ctx.env.Module || !t.ctx.env.Procs.HasModule(mod) {
		return Value{}, false
	}
	return atom("import "+mod, mel.None), true
}
