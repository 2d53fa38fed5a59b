package translator

import "testing"

func TestSwitch(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"Breaks and merged labels",
			`int $v = 2;
switch ($v) {
  case 1:
    print "one";
    break;
  case 2:
  case 3:
    print "two or three";
    break;
  default:
    print "other";
}`,
			"v = 2\nif v == 1:\n    print(\"one\", end='')\nelif v in (2, 3):\n    print(\"two or three\", end='')\nelse:\n    print(\"other\", end='')\n",
		},
		{
			"Fallthrough copies the next body",
			`int $v;
switch ($v) {
  case 1:
    print "a";
  case 2:
    print "b";
    break;
}`,
			"v = 0\nif v == 1:\n    print(\"a\", end='')\n    print(\"b\", end='')\nelif v == 2:\n    print(\"b\", end='')\n",
		},
		{
			"Default first moves last",
			`int $v;
switch ($v) {
  default:
    print "d";
    break;
  case 1:
    print "a";
    break;
}`,
			"if v == 1:\n    print(\"a\", end='')\nelse:\n    print(\"d\", end='')\n",
		},
		{
			"Default only",
			"int $v;\nswitch ($v) {\n  default:\n    print \"d\";\n}",
			"v = 0\nprint(\"d\", end='')\n",
		},
		{
			"Expression target",
			"string $a[];\nswitch (size($a)) {\n  case 0:\n    print \"empty\";\n    break;\n}",
			"_switch = len(a)\nif _switch == 0:\n",
		},
		{
			"Nested break wraps the switch",
			`int $v; int $x;
switch ($v) {
  case 1:
    if ($x) break;
    print "a";
    break;
}`,
			"while True:\n    if v == 1:\n        if x:\n            break\n        print(\"a\", end='')\n    break\n",
		},
		{
			"Return ends a case",
			`proc int f(int $v) {
  switch ($v) {
    case 1:
      return 10;
    case 2:
      return 20;
  }
  return 0;
}`,
			"    if v == 1:\n        return 10\n    elif v == 2:\n        return 20\n    return 0\n",
		},
		{
			"String labels",
			`string $s;
switch ($s) {
  case "a":
    print 1;
    break;
}`,
			"if s == \"a\":\n    print(1, end='')\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertContains(t, translateBody(t, tt.input), tt.expected)
		})
	}
}

func TestSwitchComments(t *testing.T) {
	src := `int $v;
switch ($v) {
  // the first case
  case 1:
    print "a"; // inline
  case 2:
    print "b";
    break;
}`
	code := translateBody(t, src)
	want := "v = 0\n# the first case\nif v == 1:\n    print(\"a\", end='')  # inline\n    print(\"b\", end='')\nelif v == 2:\n    print(\"b\", end='')\n"
	if code != want {
		t.Errorf("got\n%s\nwant\n%s", code, want)
	}
}

func TestSwitchBreakComments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"Comments around break",
			`int $v;
switch ($v) {
  case 1:
    print 1; // leave now
    // stop here
    break; // done
  case 2:
    print 2;
}`,
			"v = 0\nif v == 1:\n    print(1, end='')  # leave now\n    # stop here\n    # done\nelif v == 2:\n    print(2, end='')\n",
		},
		{
			"Unreachable after return",
			`global proc f(int $v) {
  switch ($v) {
    case 1:
      return;
      // never
      print 1;
    case 2:
      print 2;
  }
}`,
			"def f(v):\n    if v == 1:\n        return\n        # never\n    elif v == 2:\n        print(2, end='')\n",
		},
		{
			"Fallthrough into a commented break",
			`int $v;
switch ($v) {
  case 1:
    print 1;
  case 2:
    print 2;
    break; // only once
}`,
			"v = 0\nif v == 1:\n    print(1, end='')\n    print(2, end='')\nelif v == 2:\n    print(2, end='')\n    # only once\n",
		},
		{
			"Break inside a block",
			`int $v;
switch ($v) {
  case 1: {
    print 1;
    break; // out
  }
}`,
			"v = 0\nif v == 1:\n    print(1, end='')\n    # out\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translateBody(t, tt.input); got != tt.expected {
				t.Errorf("got\n%s\nwant\n%s", got, tt.expected)
			}
		})
	}
}

func TestSwitchContinueWarning(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = false
	src := `int $v; int $x;
while ($x < 3) {
  $x++;
  switch ($v) {
    case 1:
      if ($x) continue;
      if ($x > 1) break;
      print "a";
      break;
  }
}`
	res, err := Translate(src, opts, Env{})
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, res.Code, "    x += 1\n    while True:\n")
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestGroupCases(t *testing.T) {
	prog, ctx := parseSource(t, `switch ($v) { case 1: case 2: $a = 1; case 3: $b = 2; break; default: $c = 3; }`)
	if len(ctx.errors) > 0 {
		t.Fatal(ctx.errors)
	}
	sw := prog.Stmts[0].(*SwitchStmt)
	groups := groupCases(sw.Cases)
	if len(groups) != 3 {
		t.Fatalf("got %d groups", len(groups))
	}
	if len(groups[0].values) != 2 || len(groups[0].body) != 2 || !groups[0].body[1].borrowed {
		t.Errorf("first group = %+v", groups[0])
	}
	if len(groups[1].values) != 1 || len(groups[1].body) != 1 || groups[1].body[0].borrowed {
		t.Errorf("second group = %+v", groups[1])
	}
	if !groups[2].isDefault || len(groups[2].body) != 1 {
		t.Errorf("default group = %+v", groups[2])
	}
}
