package translator

import (
	"strings"
	"testing"
)

func TestForRange(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Counting up", "for ($i = 0; $i < 5; $i++) print $i;", "for i in range(0, 5):\n    print(i, end='')\n"},
		{"Inclusive bound", "int $n = 3;\nfor ($i = 1; $i <= $n; $i++) ;", "for i in range(1, n + 1):\n    pass\n"},
		{"Inclusive literal bound", "for ($i = 0; $i <= 5; $i++) ;", "for i in range(0, 6):\n"},
		{"Counting down by two", "for ($i = 10; $i >= 0; $i -= 2) ;", "for i in range(10, -1, -2):\n"},
		{"Bound on the left", "for ($i = 0; 4 > $i; $i += 1) ;", "for i in range(0, 4):\n"},
		{"Declared counter", "int $i;\nfor ($i = 0; $i < 2; $i++) ;", "i = 0\nfor i in range(0, 2):\n"},
		{"Size bound", "int $a[];\nfor ($i = 0; $i < size($a) - 1; $i++) ;", "for i in range(0, len(a) - 1):\n"},
		{"Int array element bound", "int $a[];\nfor ($i = 0; $i < $a[0]; $i++) ;", "for i in range(0, a[0]):\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertContains(t, translateBody(t, tt.input), tt.expected)
		})
	}
}

func TestForFallback(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"Body writes the counter",
			"for ($i = 0; $i < 5; $i++) { $i += 1; }",
			"i = 0\nwhile True:\n    if not i < 5:\n        break\n    i += 1\n    i += 1\n",
		},
		{
			"Float counter",
			"float $f;\nfor ($f = 0; $f < 1; $f += 0.5) ;",
			"f = 0.0\nwhile True:\n    if not f < 1:\n        break\n    f += 0.5\n",
		},
		{
			"Wrong direction",
			"for ($i = 0; $i < 5; $i--) ;",
			"while True:",
		},
		{
			"Body writes the bound",
			"int $n = 4;\nfor ($i = 0; $i < $n; $i++) $n--;",
			"    n -= 1\n    i += 1\n",
		},
		{
			"Float bound",
			"float $n = 2.5;\nfor ($i = 0; $i < $n; $i++) print $i;",
			"while True:\n    if not i < n:\n        break\n    print(i, end='')\n    i += 1\n",
		},
		{
			"Float literal bound",
			"for ($i = 0; $i <= 2.5; $i++) ;",
			"    if not i <= 2.5:\n",
		},
		{
			"Undeclared bound",
			"for ($i = 0; $i < $n; $i++) ;",
			"    if not i < n:\n",
		},
		{
			"No condition",
			"for ($i = 0; ; $i++) break;",
			"i = 0\nwhile True:\n    break\n    i += 1\n",
		},
		{
			"Continue runs the update",
			"for ($i = 0; $i < 5; $i++) {\n  if ($i == 1) { $i++; continue; }\n}",
			"    if i == 1:\n        i += 1\n        i += 1\n        continue\n    i += 1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := translateBody(t, tt.input)
			assertContains(t, code, tt.expected)
			if strings.Contains(code, "range(") {
				t.Errorf("loop should not become a range:\n%s", code)
			}
		})
	}
}

func TestDoWhile(t *testing.T) {
	src := "int $i = 0;\ndo {\n  $i++;\n} while ($i < 3);"

	code := translateBody(t, src)
	assertContains(t, code, "_firstIter = True\nwhile _firstIter or i < 3:\n    _firstIter = False\n    i += 1\n")

	opts := DefaultOptions()
	opts.Header = false
	opts.DoWhile = DoWhileDuplicate
	res, err := Translate(src, opts, Env{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Code != "i = 0\ni += 1\nwhile i < 3:\n    i += 1\n" {
		t.Errorf("duplicate mode:\n%s", res.Code)
	}

	// a jump in the body falls back to the guard form
	res, err = Translate("int $i;\ndo { if ($i) break; $i++; } while ($i < 3);", opts, Env{})
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, res.Code, "_firstIter = True")
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v", res.Warnings)
	}

	// nested do-while loops get distinct flags
	code = translateBody(t, "int $a; int $b;\ndo { do { $b++; } while ($b < 2); $a++; } while ($a < 2);")
	assertContains(t, code, "_firstIter = True\n")
	assertContains(t, code, "    _firstIter2 = True\n")
}

func TestDoWhileHoistedCondition(t *testing.T) {
	code := translateBody(t, "int $i;\ndo { print $i; } while (($i += 1) < 3);")
	assertContains(t, code, "while True:\n    print(i, end='')\n    i += 1\n    if not (i) < 3:\n        break\n")
}

func TestParseDoWhileMode(t *testing.T) {
	tests := []struct {
		input   string
		want    DoWhileMode
		wantErr bool
	}{
		{"guard", DoWhileGuard, false},
		{"", DoWhileGuard, false},
		{"dup", DoWhileDuplicate, false},
		{"duplicate", DoWhileDuplicate, false},
		{"unroll", DoWhileGuard, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDoWhileMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
