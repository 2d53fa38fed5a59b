package translator

import (
	"strings"
	"testing"

	"mel2py/pkg/mel"
)

func parseSource(t *testing.T, src string) (*Program, *Context) {
	t.Helper()
	tokens, errs := mel.Lex(src)
	if len(errs) > 0 {
		t.Fatalf("lex %q: %v", src, errs[0])
	}
	ctx := newContext(DefaultOptions(), Env{})
	return parse(tokens, src, ctx), ctx
}

// TestParse checks the shape of the AST through its String form.
func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"Declaration", "int $a = 5;", []string{"int $a = 5;"}},
		{"Global array declaration", "global string $names[];", []string{"global string $names[];"}},
		{"Declaration list", "float $m[3], $n = 1.5;", []string{"float $m[3], $n = 1.5;"}},
		{"Matrix dimensions", "matrix $m[2][2] = <<1, 2; 3, 4>>;", []string{"matrix $m[2][2] = <<1, 2; 3, 4>>;"}},
		{"Vector literal", "vector $v = <<1, 2, 3>>;", []string{"vector $v = <<1, 2, 3>>;"}},
		{"Precedence", "$x = $a + $b * 2;", []string{"($x = ($a + ($b * 2)));"}},
		{"Ternary", "$t = $c ? 1 : 2;", []string{"($t = ($c ? 1 : 2));"}},
		{"Postfix increment", "$i++;", []string{"($i++);"}},
		{"Unary minus", "$x = -$y;", []string{"($x = (-$y));"}},
		{"Cast", "$f = (float)$i / 2;", []string{"($f = (float($i) / 2));"}},
		{"Component", "$p = $v.x;", []string{"($p = $v.x);"}},
		{"Append idiom", "$a[size($a)] = 3;", []string{"($a[size($a)] = 3);"}},
		{"Command with string", `print "hi";`, []string{"`print \"hi\"`;"}},
		{"Command object name", "setAttr pCube1.tx 5;", []string{"`setAttr \"pCube1.tx\" 5`;"}},
		{"Command flags", `ls -sl -type "mesh";`, []string{"`ls -sl -type \"mesh\"`;"}},
		{"Negative number word", "move -r 0 -1 0;", []string{"`move -r 0 -1 0`;"}},
		{"Backquote", "string $s = `ls -sl`;", []string{"string $s = `ls -sl`;"}},
		{"Function syntax call", "foo(1, $x);", []string{"foo(1, $x);"}},
		{"Call followed by operator", "size($a) + 1;", []string{"(size($a) + 1);"}},
		{"Parenthesised first argument", `setAttr ($obj + ".tx") 1;`, []string{"`setAttr (($obj + \".tx\")) 1`;"}},
		{
			"If else chain",
			`if ($a > 1) print "x"; else if ($a < 0) print "y"; else print "z";`,
			[]string{"if ($a > 1) `print \"x\"`; else if ($a < 0) `print \"y\"`; else `print \"z\"`;"},
		},
		{"For loop", "for ($i = 0; $i < 10; $i++) { }", []string{"for (($i = 0); ($i < 10); ($i++)) { }"}},
		{"For in", "for ($n in $names) print $n;", []string{"for ($n in $names) `print $n`;"}},
		{"Do while", "do { $i++; } while ($i < 3);", []string{"do { ($i++); } while ($i < 3);"}},
		{
			"Switch",
			`switch ($v) { case 1: case 2: print "a"; break; default: print "b"; }`,
			[]string{"switch $v { case 1: case 2: `print \"a\"`; break; default: `print \"b\"`; }"},
		},
		{
			"Global proc",
			"global proc int add(int $a, int $b) { return $a + $b; }",
			[]string{"global proc int add(int $a, int $b) { return ($a + $b); }"},
		},
		{"Array return type", "proc string[] names() { return {}; }", []string{"proc string[] names() { return {}; }"}},
		{"Missing final semicolon", "print 1", []string{"`print 1`;"}},
		{"Empty statement", ";", []string{";"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, ctx := parseSource(t, tt.input)
			if len(ctx.errors) > 0 {
				t.Fatalf("unexpected errors: %v", ctx.errors)
			}
			var got []string
			for _, s := range prog.Stmts {
				got = append(got, s.String())
			}
			if strings.Join(got, "\n") != strings.Join(tt.expected, "\n") {
				t.Errorf("got\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(tt.expected, "\n"))
			}
		})
	}
}

func TestParseComments(t *testing.T) {
	src := "// leading\nint $a = 1; // trailing\n/* block */\n$a++;\n// end\n"
	prog, ctx := parseSource(t, src)
	if len(ctx.errors) > 0 {
		t.Fatalf("unexpected errors: %v", ctx.errors)
	}
	if len(prog.Stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Stmts))
	}

	first := prog.Stmts[0].Meta()
	if len(first.Leading) != 1 || first.Leading[0].Text != "// leading" {
		t.Errorf("first leading = %+v", first.Leading)
	}
	if first.Inline == nil || first.Inline.Text != "// trailing" {
		t.Errorf("first inline = %+v", first.Inline)
	}

	second := prog.Stmts[1].Meta()
	if len(second.Leading) != 1 || second.Leading[0].Text != "/* block */" {
		t.Errorf("second leading = %+v", second.Leading)
	}
	if second.Inline != nil {
		t.Errorf("second inline = %+v", second.Inline)
	}
	if second.Line != 4 {
		t.Errorf("second line = %d, want 4", second.Line)
	}

	if len(prog.Trailing) != 1 || prog.Trailing[0].Text != "// end" {
		t.Errorf("trailing = %+v", prog.Trailing)
	}
}

func TestParseErrorRecovery(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantStmts  int
		wantErrors int
		wantLine   int
	}{
		{"Bad initializer", "int $a = ;\nint $b = 2;", 1, 1, 1},
		{"Error inside a block", "proc f() {\n  $a = ;\n  print \"ok\";\n}\nprint \"after\";", 2, 1, 2},
		{"Stray brace", "}\nprint \"x\";", 1, 1, 1},
		{"Two errors", "int $a = ;\nint $b = 1;\n$c = * 2;\n", 1, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, ctx := parseSource(t, tt.input)
			if len(prog.Stmts) != tt.wantStmts {
				t.Errorf("got %d statements, want %d: %v", len(prog.Stmts), tt.wantStmts, prog.Stmts)
			}
			if len(ctx.errors) != tt.wantErrors {
				t.Fatalf("got %d errors, want %d: %v", len(ctx.errors), tt.wantErrors, ctx.errors)
			}
			if ctx.errors[0].Line != tt.wantLine {
				t.Errorf("first error on line %d, want %d", ctx.errors[0].Line, tt.wantLine)
			}
			if ctx.errors[0].Source == "" {
				t.Error("error does not quote its source line")
			}
		})
	}
}

func TestCommandArguments(t *testing.T) {
	prog, ctx := parseSource(t, `polyCube -w 2.5 -n "box" -ch on;`)
	if len(ctx.errors) > 0 {
		t.Fatalf("unexpected errors: %v", ctx.errors)
	}
	cmd := prog.Stmts[0].(*ExprStmt).Expr.(*CommandExpr)
	if cmd.Name != "polyCube" {
		t.Fatalf("name = %s", cmd.Name)
	}
	got := make([]string, len(cmd.Args))
	for i, a := range cmd.Args {
		got[i] = a.String()
	}
	want := []string{"-w", "2.5", "-n", `"box"`, "-ch", "true"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("args = %v, want %v", got, want)
	}
	if _, ok := cmd.Args[1].Value.(*FloatLit); !ok {
		t.Errorf("2.5 parsed as %T", cmd.Args[1].Value)
	}
	if _, ok := cmd.Args[5].Value.(*BoolLit); !ok {
		t.Errorf("on parsed as %T", cmd.Args[5].Value)
	}
}
