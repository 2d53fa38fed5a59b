package translator

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"mel2py/pkg/scanner"
)

func assertContains(t *testing.T, code, expected string) {
	t.Helper()
	if !strings.Contains(code, expected) {
		t.Errorf("Expected code to contain %q, but it didn't.\nCode:\n%s", expected, code)
	}
}

func assertNotContains(t *testing.T, code, unexpected string) {
	t.Helper()
	if strings.Contains(code, unexpected) {
		t.Errorf("Expected code not to contain %q.\nCode:\n%s", unexpected, code)
	}
}

// translateBody translates src without the import header.
func translateBody(t *testing.T, src string) string {
	t.Helper()
	opts := DefaultOptions()
	opts.Header = false
	res, err := Translate(src, opts, Env{})
	if err != nil {
		t.Fatalf("Translate(%q): %v", src, err)
	}
	return res.Code
}

func TestTranslateDeclarations(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Int default", "int $a;", "a = 0\n"},
		{"Float default", "float $f;", "f = 0.0\n"},
		{"String default", "string $s;", "s = ''\n"},
		{"Vector default", "vector $v;", "v = pm.dt.Vector()\n"},
		{"Open array", "string $arr[];", "arr = []\n"},
		{"Sized array", "int $arr[4];", "arr = [0] * 4\n"},
		{"Int initializer", "int $a = 5;", "a = 5\n"},
		{"Int literal to float", "float $f = 3;", "f = 3.0\n"},
		{"Float to int", "int $i = 2.7;", "i = int(2.7)\n"},
		{"String concatenation", `string $s = "a" + 3;`, "s = \"a\" + str(3)\n"},
		{"Array literal", "float $xs[] = {1, 2.5};", "xs = [1.0, 2.5]\n"},
		{"Vector literal", "vector $v = <<1, 2, 3>>;", "v = pm.dt.Vector(1, 2, 3)\n"},
		{"Int division", "int $a = 7 / 2;", "a = 7 // 2\n"},
		{"Python keyword name", "int $in = 1;", "in_ = 1\n"},
		{"Leading zero", "int $a = 007;", "a = 7\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateBody(t, tt.input)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTranslateExpressions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Ternary shape", "int $a = 1;\nint $b = $a > 0 ? 2 : 3;", "b = a > 0 and 2 or 3"},
		{"Logical operators", "int $a; int $b; int $c = $a && !$b;", "c = a and not b"},
		{"Nested comparison", "int $a; int $b = ($a < 2) == 1;", "b = (a < 2) == 1"},
		{"Postfix in expression", "int $i; int $j = $i++;", "i += 1\nj = (i - 1)"},
		{"Prefix in expression", "int $i; int $j = ++$i;", "i += 1\nj = i"},
		{"Assignment in expression", "int $a; int $b = ($a = 4) + 1;", "a = 4\nb = (a) + 1"},
		{"String augmented assign", `string $s; $s += 5;`, "s += str(5)"},
		{"Int augmented divide", "int $i = 8; $i /= 2;", "i //= 2"},
		{"Vector component", "vector $v; float $x = $v.x;", "x = v.x"},
		{"Explicit cast", "float $f = 2.5; int $i = (int)$f;", "i = int(f)"},
		{"Cast keyword", `string $s = string(3);`, "s = str(3)"},
		{"Cross product", "vector $a; vector $b; vector $c = $a ^ $b;", "c = a ^ b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertContains(t, translateBody(t, tt.input), tt.expected)
		})
	}
}

func TestTranslateGlobals(t *testing.T) {
	code := translateBody(t, "global int $g = 3;\n$g = $g + 1;")
	assertContains(t, code, "pm.melGlobals.initVar('int', 'g')\npm.melGlobals['g'] = 3\n")
	assertContains(t, code, "pm.melGlobals['g'] = pm.melGlobals['g'] + 1")

	code = translateBody(t, "global string $gl[];\n$gl[size($gl)] = \"x\";")
	assertContains(t, code, "pm.melGlobals.initVar('string[]', 'gl')")
	assertContains(t, code, `pm.melGlobals['gl'] += ["x"]`)

	// element writes go through a temporary
	code = translateBody(t, "global int $counts[];\n$counts[0] = 2;")
	assertContains(t, code, "_counts = pm.melGlobals['counts']\n_counts[0] = 2\npm.melGlobals['counts'] = _counts")

	// inside a procedure only the declared global is visible
	code = translateBody(t, "global int $g;\nproc f() {\n  global int $g;\n  $g++;\n}")
	assertContains(t, code, "def f():\n    pm.melGlobals.initVar('int', 'g')\n    pm.melGlobals['g'] += 1")
}

func TestTranslateArrays(t *testing.T) {
	code := translateBody(t, "string $list[];\n$list[size($list)] = \"x\";")
	assertContains(t, code, `list.append("x")`)

	code = translateBody(t, "string $parts[];\nint $n = tokenize(\"a b\", \" \", $parts);")
	assertContains(t, code, "parts = []\nparts[:] = [_t for _t in \"a b\".split(\" \") if _t]\nn = len(parts)\n")

	code = translateBody(t, "string $parts[];\ntokenize \"a,b;c\" \",;\" $parts;")
	assertContains(t, code, "parts[:] = [_t for _t in re.split('[' + re.escape(\",;\") + ']', \"a,b;c\") if _t]")
	assertNotContains(t, code, "len(parts)")

	code = translateBody(t, "int $n = tokenize(\"a b\", $words);")
	assertContains(t, code, "words = \"a b\".split()\nn = len(words)")
}

func TestTranslateComments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Inline", "int $a = 1; // one", "a = 1  # one\n"},
		{"Leading", "// set up\nint $a = 1;", "# set up\na = 1\n"},
		{"Block", "/* first\n * second\n */\nint $a;", "# first\n# second\na = 0\n"},
		{"Trailing", "int $a;\n// done", "a = 0\n# done\n"},
		{
			"Docstring",
			"// helper\n// does things\nproc hello() {\n  print \"hi\";\n}",
			"def hello():\n    \"\"\"\n    helper\n    does things\n    \"\"\"\n    print(\"hi\", end='')\n",
		},
		{
			"Docstring after separate comment",
			"// file header\n\n// doc\nproc f() {}",
			"# file header\ndef f():\n    \"\"\"doc\"\"\"\n",
		},
		{"Block trailing comment", "proc f() {\n  // nothing yet\n}", "def f():\n    # nothing yet\n    pass\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateBody(t, tt.input)
			if got != tt.expected {
				t.Errorf("got\n%s\nwant\n%s", got, tt.expected)
			}
		})
	}
}

func TestTranslateControlFlow(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"If elif else",
			"int $a;\nif ($a > 1) $a = 1;\nelse if ($a < 0) $a = 0;\nelse $a = 2;",
			"if a > 1:\n    a = 1\nelif a < 0:\n    a = 0\nelse:\n    a = 2\n",
		},
		{"Empty if body", "int $a;\nif ($a) {}", "if a:\n    pass\n"},
		{"While", "int $i;\nwhile ($i < 3) $i++;", "while i < 3:\n    i += 1\n"},
		{
			"While with assignment in condition",
			"while (($line = fgetline($f)) != \"\") print $line;",
			"while True:\n    line = f.readline()\n    if not (line) != \"\":\n        break\n    print(line, end='')\n",
		},
		{
			"For in",
			"string $names[];\nfor ($n in $names) print $n;",
			"for n in names:\n    print(n, end='')\n",
		},
		{
			"Return cast",
			"proc float half(int $x) { return $x; }",
			"def half(x):\n    return float(x)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertContains(t, translateBody(t, tt.input), tt.expected)
		})
	}
}

func TestTranslateHeader(t *testing.T) {
	res, err := Translate("float $r = sqrt(4);\nstring $e = getenv(\"HOME\");", DefaultOptions(), Env{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"import pymel.core as pm", "import math", "import os"}
	if !reflect.DeepEqual(res.Imports, want) {
		t.Errorf("imports = %v, want %v", res.Imports, want)
	}
	if !strings.HasPrefix(res.Code, "import pymel.core as pm\nimport math\nimport os\n\nr = math.sqrt(4)\n") {
		t.Errorf("unexpected module:\n%s", res.Code)
	}

	opts := DefaultOptions()
	opts.Namespace = ""
	res, err = Translate("vector $v;", opts, Env{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Code != "v = dt.Vector()\n" {
		t.Errorf("unqualified namespace: %q", res.Code)
	}
}

func TestTranslateParseErrors(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = false
	res, err := Translate("int $a = ;\nint $b = 2;", opts, Env{})
	var perr *MelParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *MelParseError, got %v", err)
	}
	if len(perr.Errors) != 1 || perr.Errors[0].Line != 1 {
		t.Errorf("errors = %v", perr.Errors)
	}
	if res == nil || res.Code != "b = 2\n" {
		t.Errorf("partial result = %+v", res)
	}
}

func TestTranslateLexing(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = false
	res, err := Translate("int $a = 1; @\nint $b;", opts, Env{})
	if err != nil {
		t.Fatalf("permissive lexing failed: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v", res.Warnings)
	}
	assertContains(t, res.Code, "b = 0")

	opts.StrictLex = true
	if _, err := Translate("int $a = 1; @", opts, Env{}); err == nil {
		t.Error("strict lexing accepted '@'")
	}
}

func TestTranslateArrayEnd(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = false
	res, err := Translate("int $a[];\n$a[size($a)] = 4;\nprint($a[size($a)]);", opts, Env{})
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, res.Code, "a.append(4)\n")
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	if want := "line 3: $a[size($a)] reads one past the end of the array"; res.Warnings[0] != want {
		t.Errorf("warning = %q, want %q", res.Warnings[0], want)
	}
}

func TestTranslateProcedures(t *testing.T) {
	code := translateBody(t, "proc int twice(int $x) { return $x * 2; }\nint $y = twice(3);")
	assertContains(t, code, "def twice(x):\n    return x * 2\n")
	assertContains(t, code, "y = twice(3)")

	code = translateBody(t, "proc f(float $x) {}\nf 3;")
	assertContains(t, code, "def f(x):\n    pass\n")
	assertContains(t, code, "f(3.0)")

	// parameters are local to their procedure
	code = translateBody(t, "proc g(string $s) { print $s; }\nint $s = 1;")
	assertContains(t, code, "s = 1")
}

func TestTranslateAcrossModules(t *testing.T) {
	reg := scanner.NewRegistry()
	reg.Add("utils", scanner.ScanSource(`global proc string greet(string $n) { return "hi " + $n; }`))
	reg.Add("main", scanner.NewFileProcs())

	res, err := Translate(`string $g = greet("bob");`+"\nsource \"utils.mel\";", DefaultOptions(), Env{Procs: reg, Module: "main"})
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, res.Code, `g = utils.greet("bob")`)
	assertContains(t, res.Code, "\nimport utils\n")
	want := []string{"import pymel.core as pm", "import utils"}
	if !reflect.DeepEqual(res.Imports, want) {
		t.Errorf("imports = %v, want %v", res.Imports, want)
	}
}

func TestTranslateExpression(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"Arithmetic", "size($a) + 1", "len(a) + 1", false},
		{"Command", "ls -sl", "pm.ls(selection=True)", false},
		{"Builtin call", `toupper("a")`, `"a".upper()`, false},
		{"Assignment", "$a = 1", "", true},
		{"Two statements", "print 1; print 2;", "", true},
		{"Declaration", "int $a;", "", true},
		{"Syntax error", "$a +", "", true},
	}

	env := Env{Flags: defaultFlags()}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TranslateExpression(tt.input, DefaultOptions(), env)
			if tt.wantErr {
				var epe *ExpressionParseError
				if !errors.As(err, &epe) {
					t.Fatalf("expected *ExpressionParseError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestModuleName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"scripts/rigTools.mel", "rigTools"},
		{`C:\maya\scripts\my-tool.v2.mel`, "my_tool_v2"},
		{"2dTools.mel", "_2dTools"},
		{"import.mel", "import_"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ModuleName(tt.input); got != tt.expected {
				t.Errorf("ModuleName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
