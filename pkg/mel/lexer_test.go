package mel

import (
	"errors"
	"reflect"
	"testing"
)

// stripSpans drops the offsets so expectations stay readable.
func stripSpans(tokens []Token) []Token {
	out := make([]Token, len(tokens))
	for i, tok := range tokens {
		out[i] = Token{Type: tok.Type, Lexeme: tok.Lexeme, Line: tok.Line}
	}
	return out
}

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "Empty",
			input: "",
			expected: []Token{
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Operators",
			input: "+ - * / % ^ = += -= *= /= == != < > <= >= && || ! ++ -- ? : ; , |",
			expected: []Token{
				{Type: PLUS, Lexeme: "+", Line: 1},
				{Type: MINUS, Lexeme: "-", Line: 1},
				{Type: STAR, Lexeme: "*", Line: 1},
				{Type: SLASH, Lexeme: "/", Line: 1},
				{Type: PERCENT, Lexeme: "%", Line: 1},
				{Type: CARET, Lexeme: "^", Line: 1},
				{Type: ASSIGN, Lexeme: "=", Line: 1},
				{Type: PLUS_ASSIGN, Lexeme: "+=", Line: 1},
				{Type: MINUS_ASSIGN, Lexeme: "-=", Line: 1},
				{Type: STAR_ASSIGN, Lexeme: "*=", Line: 1},
				{Type: SLASH_ASSIGN, Lexeme: "/=", Line: 1},
				{Type: EQUALS, Lexeme: "==", Line: 1},
				{Type: NOT_EQ, Lexeme: "!=", Line: 1},
				{Type: LESS, Lexeme: "<", Line: 1},
				{Type: GREATER, Lexeme: ">", Line: 1},
				{Type: LESS_EQ, Lexeme: "<=", Line: 1},
				{Type: GREATER_EQ, Lexeme: ">=", Line: 1},
				{Type: AND_LOGICAL, Lexeme: "&&", Line: 1},
				{Type: OR_LOGICAL, Lexeme: "||", Line: 1},
				{Type: NOT, Lexeme: "!", Line: 1},
				{Type: PLUS_PLUS, Lexeme: "++", Line: 1},
				{Type: MINUS_MINUS, Lexeme: "--", Line: 1},
				{Type: QUESTION, Lexeme: "?", Line: 1},
				{Type: COLON, Lexeme: ":", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: COMMA, Lexeme: ",", Line: 1},
				{Type: PIPE, Lexeme: "|", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Keywords and booleans",
			input: "global proc string matrix on off yes no true false",
			expected: []Token{
				{Type: GLOBAL, Lexeme: "global", Line: 1},
				{Type: PROC, Lexeme: "proc", Line: 1},
				{Type: STRING, Lexeme: "string", Line: 1},
				{Type: MATRIX, Lexeme: "matrix", Line: 1},
				{Type: TRUE, Lexeme: "on", Line: 1},
				{Type: FALSE, Lexeme: "off", Line: 1},
				{Type: TRUE, Lexeme: "yes", Line: 1},
				{Type: FALSE, Lexeme: "no", Line: 1},
				{Type: TRUE, Lexeme: "true", Line: 1},
				{Type: FALSE, Lexeme: "false", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Numbers",
			input: "12 0x1F 1.5 .25 3e4 2.5f 7.",
			expected: []Token{
				{Type: INT_LIT, Lexeme: "12", Line: 1},
				{Type: INT_LIT, Lexeme: "0x1F", Line: 1},
				{Type: FLOAT_LIT, Lexeme: "1.5", Line: 1},
				{Type: FLOAT_LIT, Lexeme: ".25", Line: 1},
				{Type: FLOAT_LIT, Lexeme: "3e4", Line: 1},
				{Type: FLOAT_LIT, Lexeme: "2.5", Line: 1},
				{Type: FLOAT_LIT, Lexeme: "7.", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Variables and components",
			input: "$pos.x $arr[0]",
			expected: []Token{
				{Type: VARIABLE, Lexeme: "$pos", Line: 1},
				{Type: COMPONENT, Lexeme: ".x", Line: 1},
				{Type: VARIABLE, Lexeme: "$arr", Line: 1},
				{Type: LBRACKET, Lexeme: "[", Line: 1},
				{Type: INT_LIT, Lexeme: "0", Line: 1},
				{Type: RBRACKET, Lexeme: "]", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Vector delimiters and backquote",
			input: "<<1, 2, 3>> `ls`",
			expected: []Token{
				{Type: VEC_OPEN, Lexeme: "<<", Line: 1},
				{Type: INT_LIT, Lexeme: "1", Line: 1},
				{Type: COMMA, Lexeme: ",", Line: 1},
				{Type: INT_LIT, Lexeme: "2", Line: 1},
				{Type: COMMA, Lexeme: ",", Line: 1},
				{Type: INT_LIT, Lexeme: "3", Line: 1},
				{Type: VEC_CLOSE, Lexeme: ">>", Line: 1},
				{Type: BACKQUOTE, Lexeme: "`", Line: 1},
				{Type: IDENTIFIER, Lexeme: "ls", Line: 1},
				{Type: BACKQUOTE, Lexeme: "`", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Strings keep escapes",
			input: `"a\tb" "say \"hi\""`,
			expected: []Token{
				{Type: STRING_LIT, Lexeme: `a\tb`, Line: 1},
				{Type: STRING_LIT, Lexeme: `say \"hi\"`, Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Escaped newline joins string",
			input: "\"abc\\\ndef\" x",
			expected: []Token{
				{Type: STRING_LIT, Lexeme: "abcdef", Line: 1},
				{Type: IDENTIFIER, Lexeme: "x", Line: 2},
				{Type: EOF, Lexeme: "", Line: 2},
			},
		},
		{
			name:  "Comments are tokens",
			input: "// first\nint $a; /* block\nspans */ $a",
			expected: []Token{
				{Type: COMMENT, Lexeme: "// first", Line: 1},
				{Type: INT, Lexeme: "int", Line: 2},
				{Type: VARIABLE, Lexeme: "$a", Line: 2},
				{Type: SEMICOLON, Lexeme: ";", Line: 2},
				{Type: COMMENT, Lexeme: "/* block\nspans */", Line: 2},
				{Type: VARIABLE, Lexeme: "$a", Line: 3},
				{Type: EOF, Lexeme: "", Line: 3},
			},
		},
		{
			name:  "Unterminated block comment runs to EOF",
			input: "a /* never closed",
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "a", Line: 1},
				{Type: COMMENT, Lexeme: "/* never closed", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, errs := Lex(tt.input)
			if len(errs) > 0 {
				t.Fatalf("Lex() unexpected errors: %v", errs)
			}
			if got := stripSpans(tokens); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Lex() =\n%v\nwant\n%v", got, tt.expected)
			}
		})
	}
}

func TestLexAdjacency(t *testing.T) {
	tokens, errs := Lex("ls -sl pCube1.tx;")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	// ls | - | sl | pCube1 | . | tx | ;
	if tokens[0].Adjacent(tokens[1]) {
		t.Errorf("ls and - should be separated by whitespace")
	}
	if !tokens[1].Adjacent(tokens[2]) {
		t.Errorf("- and sl should be adjacent")
	}
	if !tokens[3].Adjacent(tokens[4]) || !tokens[4].Adjacent(tokens[5]) {
		t.Errorf("pCube1.tx should be three adjacent tokens, got %v", tokens[3:6])
	}
}

func TestLexPermissiveSkipsBadCharacters(t *testing.T) {
	tokens, errs := Lex("int $a = 1 @ 2;")
	if len(errs) != 1 {
		t.Fatalf("expected 1 lex error, got %d", len(errs))
	}
	if errs[0].Char != '@' || errs[0].Line != 1 {
		t.Errorf("unexpected error %+v", errs[0])
	}
	want := []TokenType{INT, VARIABLE, ASSIGN, INT_LIT, INT_LIT, SEMICOLON, EOF}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, tt := range want {
		if tokens[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, tokens[i].Type, tt)
		}
	}
}

func TestLexStrict(t *testing.T) {
	_, err := LexStrict("print 1;\n#bad")
	if err == nil {
		t.Fatal("expected error")
	}
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *LexError, got %T", err)
	}
	if lexErr.Line != 2 || lexErr.Char != '#' {
		t.Errorf("got %+v", lexErr)
	}

	if _, err := LexStrict(`print "open`); err == nil {
		t.Error("expected unterminated string error")
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{Int, "int"},
		{String.AsArray(), "string[]"},
		{Vector, "vector"},
		{None, "none"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.typ, got, tt.want)
		}
		back, ok := ParseType(tt.want)
		if !ok || back != tt.typ {
			t.Errorf("ParseType(%q) = %v, %v", tt.want, back, ok)
		}
	}
	if None.AsArray() != None {
		t.Error("None.AsArray() should stay None")
	}
}
