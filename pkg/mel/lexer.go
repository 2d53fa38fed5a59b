package mel

import (
	"fmt"
	"unicode"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"if":       IF,
	"else":     ELSE,
	"for":      FOR,
	"in":       IN,
	"while":    WHILE,
	"do":       DO,
	"switch":   SWITCH,
	"case":     CASE,
	"default":  DEFAULT,
	"break":    BREAK,
	"continue": CONTINUE,
	"return":   RETURN,
	"proc":     PROC,
	"global":   GLOBAL,
	"int":      INT,
	"float":    FLOAT,
	"string":   STRING,
	"vector":   VECTOR,
	"matrix":   MATRIX,
	"true":     TRUE,
	"on":       TRUE,
	"yes":      TRUE,
	"false":    FALSE,
	"off":      FALSE,
	"no":       FALSE,
}

// twoRuneOps are matched before any single-rune operator.
var twoRuneOps = map[[2]rune]TokenType{
	{'+', '+'}: PLUS_PLUS, {'+', '='}: PLUS_ASSIGN,
	{'-', '-'}: MINUS_MINUS, {'-', '='}: MINUS_ASSIGN,
	{'*', '='}: STAR_ASSIGN, {'/', '='}: SLASH_ASSIGN,
	{'=', '='}: EQUALS, {'!', '='}: NOT_EQ,
	{'<', '='}: LESS_EQ, {'>', '='}: GREATER_EQ,
	{'<', '<'}: VEC_OPEN, {'>', '>'}: VEC_CLOSE,
	{'&', '&'}: AND_LOGICAL, {'|', '|'}: OR_LOGICAL,
}

// LexError reports a character the lexer could not turn into a token.
type LexError struct {
	Line int
	Char rune
	Msg  string
}

func (e *LexError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: unexpected character %q", e.Line, e.Char)
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), pos: 0, line: 1}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) peek3() rune {
	if l.pos+2 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+2]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func (l *Lexer) token(tt TokenType, start, line int) Token {
	return Token{Type: tt, Lexeme: string(l.src[start:l.pos]), Line: line, Start: start, End: l.pos}
}

// scanComment collects a // or /* */ comment. An unterminated block comment
// runs to the end of the input.
func (l *Lexer) scanComment() Token {
	line, start := l.line, l.pos
	l.advance() // /
	if l.advance() == '/' {
		for l.pos < len(l.src) && l.peek() != '\n' {
			l.advance()
		}
		return l.token(COMMENT, start, line)
	}
	for l.pos < len(l.src) {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance()
			l.advance()
			break
		}
		l.advance()
	}
	return l.token(COMMENT, start, line)
}

// scanIdent collects a full identifier or keyword token.
func (l *Lexer) scanIdent() Token {
	line, start := l.line, l.pos
	for l.pos < len(l.src) && isIdentChar(l.peek()) {
		l.advance()
	}
	tok := l.token(IDENTIFIER, start, line)
	if kw, ok := keywords[tok.Lexeme]; ok {
		tok.Type = kw
	}
	return tok
}

// scanVariable collects $name. The '$' must still be at l.peek().
func (l *Lexer) scanVariable() (Token, error) {
	line, start := l.line, l.pos
	l.advance() // $
	if !isIdentStart(l.peek()) {
		return Token{}, &LexError{Line: line, Char: '$', Msg: "'$' not followed by a variable name"}
	}
	for l.pos < len(l.src) && isIdentChar(l.peek()) {
		l.advance()
	}
	return l.token(VARIABLE, start, line), nil
}

// scanNumber collects an integer, hex or floating point literal. A trailing
// f/F on a float is consumed but left out of the lexeme.
func (l *Lexer) scanNumber() Token {
	line, start := l.line, l.pos

	if l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X') && isHexDigit(l.peek3()) {
		l.advance()
		l.advance()
		for l.pos < len(l.src) && isHexDigit(l.peek()) {
			l.advance()
		}
		return l.token(INT_LIT, start, line)
	}

	isFloat := false
	for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && unicode.IsDigit(l.peek2()) {
		isFloat = true
		l.advance()
		for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
			l.advance()
		}
	} else if l.peek() == '.' && l.pos > start && !isIdentChar(l.peek2()) {
		// "1." is a complete float
		isFloat = true
		l.advance()
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		next := l.peek2()
		if unicode.IsDigit(next) || ((next == '+' || next == '-') && unicode.IsDigit(l.peek3())) {
			isFloat = true
			l.advance()
			if next == '+' || next == '-' {
				l.advance()
			}
			for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
				l.advance()
			}
		}
	}
	if !isFloat {
		return l.token(INT_LIT, start, line)
	}
	tok := l.token(FLOAT_LIT, start, line)
	if (l.peek() == 'f' || l.peek() == 'F') && !isIdentChar(l.peek2()) {
		l.advance()
		tok.End = l.pos
	}
	return tok
}

// scanString collects a string literal. The lexeme keeps escape sequences
// as written, except that an escaped newline is removed.
func (l *Lexer) scanString() (Token, error) {
	line, start := l.line, l.pos
	l.advance() // opening "
	var body []rune

	for l.pos < len(l.src) {
		r := l.peek()
		if r == '"' {
			l.advance()
			return Token{Type: STRING_LIT, Lexeme: string(body), Line: line, Start: start, End: l.pos}, nil
		}
		if r == '\n' {
			break
		}
		if r == '\\' {
			l.advance()
			next := l.peek()
			if next == '\n' {
				l.advance()
				continue
			}
			if next == '\r' && l.peek2() == '\n' {
				l.advance()
				l.advance()
				continue
			}
			body = append(body, '\\')
			if l.pos < len(l.src) {
				body = append(body, l.advance())
			}
			continue
		}
		body = append(body, l.advance())
	}

	tok := Token{Type: STRING_LIT, Lexeme: string(body), Line: line, Start: start, End: l.pos}
	return tok, &LexError{Line: line, Char: '"', Msg: "unterminated string literal"}
}

// nextToken returns the next token, comments included.
func (l *Lexer) nextToken() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Lexeme: "", Line: l.line, Start: l.pos, End: l.pos}, nil
	}

	ch := l.peek()
	line, start := l.line, l.pos

	switch {
	case ch == '/' && (l.peek2() == '/' || l.peek2() == '*'):
		return l.scanComment(), nil
	case isIdentStart(ch):
		return l.scanIdent(), nil
	case unicode.IsDigit(ch), ch == '.' && unicode.IsDigit(l.peek2()):
		return l.scanNumber(), nil
	case ch == '$':
		return l.scanVariable()
	case ch == '"':
		return l.scanString()
	case ch == '.' && (l.peek2() == 'x' || l.peek2() == 'y' || l.peek2() == 'z') && !isIdentChar(l.peek3()):
		l.advance()
		l.advance()
		return l.token(COMPONENT, start, line), nil
	}

	if tt, ok := twoRuneOps[[2]rune{ch, l.peek2()}]; ok {
		l.advance()
		l.advance()
		return l.token(tt, start, line), nil
	}

	l.advance()
	var tt TokenType
	switch ch {
	case '{':
		tt = LBRACE
	case '}':
		tt = RBRACE
	case '(':
		tt = LPAREN
	case ')':
		tt = RPAREN
	case '[':
		tt = LBRACKET
	case ']':
		tt = RBRACKET
	case '`':
		tt = BACKQUOTE
	case '.':
		tt = DOT
	case ';':
		tt = SEMICOLON
	case ',':
		tt = COMMA
	case ':':
		tt = COLON
	case '?':
		tt = QUESTION
	case '|':
		tt = PIPE
	case '+':
		tt = PLUS
	case '-':
		tt = MINUS
	case '*':
		tt = STAR
	case '/':
		tt = SLASH
	case '%':
		tt = PERCENT
	case '^':
		tt = CARET
	case '!':
		tt = NOT
	case '=':
		tt = ASSIGN
	case '<':
		tt = LESS
	case '>':
		tt = GREATER
	default:
		return Token{}, &LexError{Line: line, Char: ch}
	}
	return l.token(tt, start, line), nil
}

// Lex tokenises src permissively: characters that cannot start a token are
// skipped and reported, and lexing continues. The token slice always ends
// with EOF.
func Lex(src string) ([]Token, []*LexError) {
	l := newLexer(src)
	var tokens []Token
	var errs []*LexError
	for {
		tok, err := l.nextToken()
		if err != nil {
			lexErr := err.(*LexError)
			errs = append(errs, lexErr)
			if tok.Type != STRING_LIT {
				continue
			}
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, errs
		}
	}
}

// LexStrict tokenises src and stops at the first lexical error.
func LexStrict(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
