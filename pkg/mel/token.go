package mel

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // command / procedure name, bare word
	VARIABLE   // $name
	COMPONENT  // .x .y .z vector component
	INT_LIT    // decimal or hex integer literal
	FLOAT_LIT  // 1.5, .5, 1e3
	STRING_LIT // "..." (Lexeme holds the body with escapes intact)
	COMMENT    // // ... or /* ... */ (Lexeme holds the full comment)

	// Keywords
	IF
	ELSE
	FOR
	IN
	WHILE
	DO
	SWITCH
	CASE
	DEFAULT
	BREAK
	CONTINUE
	RETURN
	PROC
	GLOBAL
	INT
	FLOAT
	STRING
	VECTOR
	MATRIX
	TRUE  // true, on, yes
	FALSE // false, off, no

	// Paired delimiters
	LBRACE    // {
	RBRACE    // }
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	VEC_OPEN  // <<
	VEC_CLOSE // >>
	BACKQUOTE // `

	// Punctuation
	DOT       // .
	SEMICOLON // ;
	COMMA     // ,
	COLON     // :
	QUESTION  // ?
	PIPE      // |

	// Operators
	PLUS        // +
	MINUS       // -
	STAR        // *
	SLASH       // /
	PERCENT     // %
	CARET       // ^ (vector cross product)
	AND_LOGICAL // &&
	OR_LOGICAL  // ||
	NOT         // !
	PLUS_PLUS   // ++
	MINUS_MINUS // --

	ASSIGN       // =
	PLUS_ASSIGN  // +=
	MINUS_ASSIGN // -=
	STAR_ASSIGN  // *=
	SLASH_ASSIGN // /=

	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=
)

var tokenNames = [...]string{
	EOF:          "EOF",
	IDENTIFIER:   "IDENTIFIER",
	VARIABLE:     "VARIABLE",
	COMPONENT:    "COMPONENT",
	INT_LIT:      "INT_LIT",
	FLOAT_LIT:    "FLOAT_LIT",
	STRING_LIT:   "STRING_LIT",
	COMMENT:      "COMMENT",
	IF:           "IF",
	ELSE:         "ELSE",
	FOR:          "FOR",
	IN:           "IN",
	WHILE:        "WHILE",
	DO:           "DO",
	SWITCH:       "SWITCH",
	CASE:         "CASE",
	DEFAULT:      "DEFAULT",
	BREAK:        "BREAK",
	CONTINUE:     "CONTINUE",
	RETURN:       "RETURN",
	PROC:         "PROC",
	GLOBAL:       "GLOBAL",
	INT:          "INT",
	FLOAT:        "FLOAT",
	STRING:       "STRING",
	VECTOR:       "VECTOR",
	MATRIX:       "MATRIX",
	TRUE:         "TRUE",
	FALSE:        "FALSE",
	LBRACE:       "LBRACE",
	RBRACE:       "RBRACE",
	LPAREN:       "LPAREN",
	RPAREN:       "RPAREN",
	LBRACKET:     "LBRACKET",
	RBRACKET:     "RBRACKET",
	VEC_OPEN:     "VEC_OPEN",
	VEC_CLOSE:    "VEC_CLOSE",
	BACKQUOTE:    "BACKQUOTE",
	DOT:          "DOT",
	SEMICOLON:    "SEMICOLON",
	COMMA:        "COMMA",
	COLON:        "COLON",
	QUESTION:     "QUESTION",
	PIPE:         "PIPE",
	PLUS:         "PLUS",
	MINUS:        "MINUS",
	STAR:         "STAR",
	SLASH:        "SLASH",
	PERCENT:      "PERCENT",
	CARET:        "CARET",
	AND_LOGICAL:  "AND_LOGICAL",
	OR_LOGICAL:   "OR_LOGICAL",
	NOT:          "NOT",
	PLUS_PLUS:    "PLUS_PLUS",
	MINUS_MINUS:  "MINUS_MINUS",
	ASSIGN:       "ASSIGN",
	PLUS_ASSIGN:  "PLUS_ASSIGN",
	MINUS_ASSIGN: "MINUS_ASSIGN",
	STAR_ASSIGN:  "STAR_ASSIGN",
	SLASH_ASSIGN: "SLASH_ASSIGN",
	EQUALS:       "EQUALS",
	NOT_EQ:       "NOT_EQ",
	LESS:         "LESS",
	GREATER:      "GREATER",
	LESS_EQ:      "LESS_EQ",
	GREATER_EQ:   "GREATER_EQ",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// IsTypeKeyword reports whether tt names one of the MEL data types.
func (tt TokenType) IsTypeKeyword() bool {
	switch tt {
	case INT, FLOAT, STRING, VECTOR, MATRIX:
		return true
	}
	return false
}

// Token is a single lexical unit produced by the Lexer.
// Start and End are rune offsets into the source; two tokens are adjacent
// when the End of the first equals the Start of the second.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int // 1-based source line
	Start  int
	End    int
}

// Adjacent reports whether next starts exactly where t ends.
func (t Token) Adjacent(next Token) bool {
	return t.End == next.Start
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
