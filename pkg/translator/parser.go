package translator

import (
	"fmt"
	"regexp"
	"strings"

	"mel2py/pkg/mel"
)

// Parser consumes the token slice produced by the lexer and builds the AST.
// Comment tokens never reach the grammar: the cursor steps over them and
// queues them on the Context, and statement boundaries drain the queue.
//
// Grammar:
//
//	program    = statement* EOF
//	statement  = block | if | while | doWhile | for | forIn | switch
//	           | "break" ";" | "continue" ";" | "return" [expression] ";"
//	           | declaration | procDecl | command | expression ";" | ";"
//	declaration = ["global"] type declVar ("," declVar)* ";"
//	declVar    = VARIABLE ("[" [expression] "]")* ["=" expression]
//	procDecl   = ["global"] "proc" [type ["[" "]"]] IDENTIFIER "(" params ")" block
//	command    = IDENTIFIER word* ";"
//	expression = assignment
//	assignment = ternary [("=" | "+=" | "-=" | "*=" | "/=") assignment]
//	ternary    = logical_or ["?" ternary ":" ternary]
//	logical_or = logical_and ("||" logical_and)*
//	logical_and = equality ("&&" equality)*
//	equality   = relational (("==" | "!=") relational)*
//	relational = additive (("<" | ">" | "<=" | ">=") additive)*
//	additive   = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/" | "%" | "^") unary)*
//	unary      = ("!" | "-" | "+" | "++" | "--") unary | "(" type ")" unary | postfix
//	postfix    = primary ("[" expression "]" | COMPONENT | "++" | "--")*
//	primary    = literal | VARIABLE | "(" expression ")" | "{" list "}"
//	           | "<<" vector-or-matrix ">>" | "`" command "`"
//	           | IDENTIFIER "(" args ")" | type "(" expression ")"
type Parser struct {
	tokens      []mel.Token
	pos         int
	ctx         *Context
	sourceLines []string
	last        mel.Token // last consumed token
}

// syntaxError carries an ErrorToken through the recursive descent.
type syntaxError struct {
	et ErrorToken
}

func (e *syntaxError) Error() string { return e.et.String() }

func newParser(tokens []mel.Token, src string, ctx *Context) *Parser {
	p := &Parser{tokens: tokens, ctx: ctx, sourceLines: strings.Split(src, "\n")}
	p.skipComments()
	return p
}

// fmtError builds a syntax error for tok, quoting its source line.
func (p *Parser) fmtError(tok mel.Token, format string, args ...any) error {
	et := ErrorToken{
		Type:  tok.Type,
		Value: tok.Lexeme,
		Line:  tok.Line,
		Msg:   fmt.Sprintf(format, args...),
	}
	if idx := tok.Line - 1; idx >= 0 && idx < len(p.sourceLines) {
		et.Source = strings.TrimSpace(p.sourceLines[idx])
	}
	return &syntaxError{et: et}
}

func (p *Parser) record(err error) {
	if se, ok := err.(*syntaxError); ok {
		p.ctx.addError(se.et)
		return
	}
	p.ctx.addError(ErrorToken{Type: p.peek().Type, Value: p.peek().Lexeme, Line: p.peek().Line, Msg: err.Error()})
}

func (p *Parser) skipComments() {
	for p.pos < len(p.tokens) && p.tokens[p.pos].Type == mel.COMMENT {
		p.ctx.queueComment(p.tokens[p.pos])
		p.pos++
	}
}

// peek returns the current token without consuming it.
func (p *Parser) peek() mel.Token {
	if p.pos >= len(p.tokens) {
		return mel.Token{Type: mel.EOF, Line: p.last.Line}
	}
	return p.tokens[p.pos]
}

// peekAt returns the offset-th non-comment token from the current position.
func (p *Parser) peekAt(offset int) mel.Token {
	i := p.pos
	for n := 0; i < len(p.tokens); i++ {
		if p.tokens[i].Type == mel.COMMENT {
			continue
		}
		if n == offset {
			return p.tokens[i]
		}
		n++
	}
	return mel.Token{Type: mel.EOF, Line: p.last.Line}
}

// advance consumes and returns the current token, queueing any comments
// that follow it.
func (p *Parser) advance() mel.Token {
	tok := p.peek()
	if tok.Type != mel.EOF {
		p.pos++
		p.last = tok
	}
	p.skipComments()
	return tok
}

func (p *Parser) expect(tt mel.TokenType) (mel.Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return p.advance(), nil
}

// expectTerminator accepts ";" and tolerates a missing one before "}" or EOF.
func (p *Parser) expectTerminator() error {
	switch p.peek().Type {
	case mel.SEMICOLON:
		p.advance()
		return nil
	case mel.EOF, mel.RBRACE:
		return nil
	}
	tok := p.peek()
	return p.fmtError(tok, "expected ';', got %s (%q)", tok.Type, tok.Lexeme)
}

// synchronize skips tokens after a syntax error. Inside a block it stops in
// front of the block's closing brace; at the top level it stops after the
// next ";" or brace group at depth zero.
func (p *Parser) synchronize(topLevel bool) {
	depth := 0
	for {
		tok := p.peek()
		switch tok.Type {
		case mel.EOF:
			return
		case mel.LBRACE:
			depth++
		case mel.RBRACE:
			if depth == 0 {
				if topLevel {
					p.advance()
				}
				return
			}
			depth--
			if depth == 0 && topLevel {
				p.advance()
				return
			}
		case mel.SEMICOLON:
			if depth == 0 && topLevel {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// requeue puts comments back at the front of the queue so a failed
// statement does not lose them.
func (p *Parser) requeue(cs []Comment) {
	for i := len(cs) - 1; i >= 0; i-- {
		p.ctx.comments.PushFront(cs[i])
	}
}

// parseProgram parses a whole file, recording syntax errors and resuming
// after each one.
func (p *Parser) parseProgram() *Program {
	prog := &Program{}
	for p.peek().Type != mel.EOF {
		start := p.pos
		stmt, err := p.parseStatement()
		if err != nil {
			p.record(err)
			p.synchronize(true)
			if p.pos == start {
				p.advance()
			}
			continue
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	prog.Trailing = p.ctx.drainComments()
	return prog
}

// parseStatement wraps parseStatementInner with comment attachment.
func (p *Parser) parseStatement() (Stmt, error) {
	leading := p.ctx.drainComments()
	first := p.peek()
	stmt, err := p.parseStatementInner()
	if err != nil {
		p.requeue(leading)
		return nil, err
	}
	m := stmt.Meta()
	m.Line = first.Line
	m.Leading = append(leading, p.ctx.drainCommentsBefore(p.last.End)...)
	m.Inline = p.ctx.takeInline(p.last)
	return stmt, nil
}

func (p *Parser) parseStatementInner() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case mel.LBRACE:
		return p.parseBlock()
	case mel.IF:
		return p.parseIf()
	case mel.WHILE:
		return p.parseWhile()
	case mel.DO:
		return p.parseDoWhile()
	case mel.FOR:
		return p.parseFor()
	case mel.SWITCH:
		return p.parseSwitch()
	case mel.BREAK:
		p.advance()
		return &BreakStmt{}, p.expectTerminator()
	case mel.CONTINUE:
		p.advance()
		return &ContinueStmt{}, p.expectTerminator()
	case mel.RETURN:
		p.advance()
		ret := &ReturnStmt{}
		if t := p.peek().Type; t != mel.SEMICOLON && t != mel.EOF && t != mel.RBRACE {
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			ret.Value = value
		}
		return ret, p.expectTerminator()
	case mel.GLOBAL:
		if p.peekAt(1).Type == mel.PROC {
			return p.parseProc()
		}
		return p.parseDecl()
	case mel.PROC:
		return p.parseProc()
	case mel.SEMICOLON:
		p.advance()
		return &EmptyStmt{}, nil
	case mel.INT, mel.FLOAT, mel.STRING, mel.VECTOR, mel.MATRIX:
		if p.peekAt(1).Type != mel.LPAREN {
			return p.parseDecl()
		}
	case mel.IDENTIFIER:
		if p.peekAt(1).Type != mel.LPAREN || !p.callSyntaxAhead() {
			cmd, err := p.parseCommand(false)
			if err != nil {
				return nil, err
			}
			return &ExprStmt{Expr: cmd}, p.expectTerminator()
		}
	case mel.RBRACE:
		return nil, p.fmtError(tok, "unexpected '}'")
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{Expr: expr}, p.expectTerminator()
}

// callSyntaxAhead decides whether "name (" starts a function-syntax call,
// as opposed to command syntax whose first argument happens to be
// parenthesised: setAttr ($obj + ".tx") 1;
func (p *Parser) callSyntaxAhead() bool {
	depth := 0
	for i := 1; ; i++ {
		tok := p.peekAt(i)
		switch tok.Type {
		case mel.EOF:
			return true
		case mel.LPAREN:
			depth++
		case mel.RPAREN:
			depth--
			if depth == 0 {
				return !startsCmdArg(p.peekAt(i+1), p.peekAt(i+2))
			}
		}
	}
}

// startsCmdArg reports whether tok, followed by next, begins another
// command-syntax argument rather than continuing an expression.
func startsCmdArg(tok, next mel.Token) bool {
	switch tok.Type {
	case mel.IDENTIFIER, mel.VARIABLE, mel.INT_LIT, mel.FLOAT_LIT, mel.STRING_LIT,
		mel.LPAREN, mel.LBRACE, mel.VEC_OPEN, mel.BACKQUOTE, mel.TRUE, mel.FALSE:
		return true
	case mel.MINUS:
		// -flag or -1, but not "- 1"
		return tok.Adjacent(next) && !breaksWord(next.Type)
	}
	return false
}

func (p *Parser) parseBlock() (*BlockStmt, error) {
	if _, err := p.expect(mel.LBRACE); err != nil {
		return nil, err
	}
	block := &BlockStmt{}
	for p.peek().Type != mel.RBRACE && p.peek().Type != mel.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			p.record(err)
			p.synchronize(false)
			continue
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	block.Trailing = p.ctx.drainComments()
	if _, err := p.expect(mel.RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseParenCond() (Expr, error) {
	if _, err := p.expect(mel.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(mel.RPAREN); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	p.advance() // if
	cond, err := p.parseParenCond()
	if err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{Cond: cond, Then: then}
	if p.peek().Type == mel.ELSE {
		p.advance()
		els, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt.Else = els
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	p.advance() // while
	cond, err := p.parseParenCond()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body}, nil
}

func (p *Parser) parseDoWhile() (Stmt, error) {
	p.advance() // do
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(mel.WHILE); err != nil {
		return nil, err
	}
	cond, err := p.parseParenCond()
	if err != nil {
		return nil, err
	}
	return &DoWhileStmt{Body: body, Cond: cond}, p.expectTerminator()
}

func (p *Parser) parseExprList(end mel.TokenType) ([]Expr, error) {
	var list []Expr
	if p.peek().Type == end {
		return nil, nil
	}
	for {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if p.peek().Type != mel.COMMA {
			return list, nil
		}
		p.advance()
	}
}

func (p *Parser) parseFor() (Stmt, error) {
	p.advance() // for
	if _, err := p.expect(mel.LPAREN); err != nil {
		return nil, err
	}

	if p.peek().Type == mel.VARIABLE && p.peekAt(1).Type == mel.IN {
		v := p.advance()
		p.advance() // in
		coll, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(mel.RPAREN); err != nil {
			return nil, err
		}
		body, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return &ForInStmt{Var: strings.TrimPrefix(v.Lexeme, "$"), Coll: coll, Body: body}, nil
	}

	stmt := &ForStmt{}
	var err error
	if stmt.Init, err = p.parseExprList(mel.SEMICOLON); err != nil {
		return nil, err
	}
	if _, err := p.expect(mel.SEMICOLON); err != nil {
		return nil, err
	}
	if p.peek().Type != mel.SEMICOLON {
		if stmt.Cond, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(mel.SEMICOLON); err != nil {
		return nil, err
	}
	if stmt.Update, err = p.parseExprList(mel.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(mel.RPAREN); err != nil {
		return nil, err
	}
	if stmt.Body, err = p.parseStatement(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseSwitch() (Stmt, error) {
	p.advance() // switch
	target, err := p.parseParenCond()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(mel.LBRACE); err != nil {
		return nil, err
	}

	stmt := &SwitchStmt{Target: target}
	for p.peek().Type != mel.RBRACE && p.peek().Type != mel.EOF {
		leading := p.ctx.drainComments()
		tok := p.peek()
		clause := &CaseClause{Line: tok.Line, Leading: leading}
		switch tok.Type {
		case mel.CASE:
			p.advance()
			value, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			clause.Value = value
		case mel.DEFAULT:
			p.advance()
		default:
			p.requeue(leading)
			p.record(p.fmtError(tok, "expected case or default, got %s (%q)", tok.Type, tok.Lexeme))
			p.synchronize(false)
			continue
		}
		if _, err := p.expect(mel.COLON); err != nil {
			return nil, err
		}
		for {
			t := p.peek().Type
			if t == mel.CASE || t == mel.DEFAULT || t == mel.RBRACE || t == mel.EOF {
				break
			}
			body, err := p.parseStatement()
			if err != nil {
				p.record(err)
				p.synchronize(false)
				continue
			}
			clause.Body = append(clause.Body, body)
		}
		stmt.Cases = append(stmt.Cases, clause)
	}
	stmt.Trailing = p.ctx.drainComments()
	if _, err := p.expect(mel.RBRACE); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseDecl() (Stmt, error) {
	decl := &DeclStmt{}
	if p.peek().Type == mel.GLOBAL {
		p.advance()
		decl.Global = true
	}
	typTok := p.advance()
	typ, ok := mel.TypeOfKeyword(typTok.Type)
	if !ok {
		return nil, p.fmtError(typTok, "expected a type, got %s (%q)", typTok.Type, typTok.Lexeme)
	}
	decl.Type = typ

	for {
		v, err := p.expect(mel.VARIABLE)
		if err != nil {
			return nil, err
		}
		dv := DeclVar{Name: strings.TrimPrefix(v.Lexeme, "$")}
		for p.peek().Type == mel.LBRACKET {
			p.advance()
			var size Expr
			if p.peek().Type != mel.RBRACKET {
				if size, err = p.parseExpression(); err != nil {
					return nil, err
				}
			}
			if _, err := p.expect(mel.RBRACKET); err != nil {
				return nil, err
			}
			if typ == mel.Matrix {
				dv.Dims = append(dv.Dims, size)
			} else {
				dv.Array = true
				dv.Size = size
			}
		}
		if p.peek().Type == mel.ASSIGN {
			p.advance()
			if dv.Init, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		decl.Vars = append(decl.Vars, dv)
		if p.peek().Type != mel.COMMA {
			break
		}
		p.advance()
	}
	return decl, p.expectTerminator()
}

func (p *Parser) parseProc() (Stmt, error) {
	proc := &ProcDecl{}
	if p.peek().Type == mel.GLOBAL {
		p.advance()
		proc.Global = true
	}
	if _, err := p.expect(mel.PROC); err != nil {
		return nil, err
	}
	if typ, ok := mel.TypeOfKeyword(p.peek().Type); ok {
		p.advance()
		proc.ReturnType = typ
		if p.peek().Type == mel.LBRACKET && p.peekAt(1).Type == mel.RBRACKET {
			p.advance()
			p.advance()
			proc.ReturnType = typ.AsArray()
		}
	}
	name, err := p.expect(mel.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	proc.Name = name.Lexeme
	if _, err := p.expect(mel.LPAREN); err != nil {
		return nil, err
	}
	for p.peek().Type != mel.RPAREN {
		typTok := p.advance()
		typ, ok := mel.TypeOfKeyword(typTok.Type)
		if !ok {
			return nil, p.fmtError(typTok, "expected parameter type, got %s (%q)", typTok.Type, typTok.Lexeme)
		}
		v, err := p.expect(mel.VARIABLE)
		if err != nil {
			return nil, err
		}
		param := Param{Name: strings.TrimPrefix(v.Lexeme, "$"), Type: typ}
		if p.peek().Type == mel.LBRACKET {
			p.advance()
			if _, err := p.expect(mel.RBRACKET); err != nil {
				return nil, err
			}
			param.Type = typ.AsArray()
		}
		proc.Params = append(proc.Params, param)
		if p.peek().Type == mel.COMMA {
			p.advance()
		} else if p.peek().Type != mel.RPAREN {
			tok := p.peek()
			return nil, p.fmtError(tok, "expected ',' or ')', got %s (%q)", tok.Type, tok.Lexeme)
		}
	}
	p.advance() // )
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	proc.Body = body
	return proc, nil
}

//  Command syntax

var (
	flagWord  = regexp.MustCompile(`^-[A-Za-z][A-Za-z0-9_]*$`)
	intWord   = regexp.MustCompile(`^[-+]?(\d+|0[xX][0-9a-fA-F]+)$`)
	floatWord = regexp.MustCompile(`^[-+]?(\d+\.\d*|\.\d+|\d+)([eE][-+]?\d+)?$`)
)

// breaksWord lists tokens that never join an adjacent object-name word.
func breaksWord(tt mel.TokenType) bool {
	switch tt {
	case mel.SEMICOLON, mel.EOF, mel.STRING_LIT, mel.VARIABLE, mel.LPAREN, mel.RPAREN,
		mel.LBRACE, mel.RBRACE, mel.VEC_OPEN, mel.BACKQUOTE:
		return true
	}
	return false
}

// parseCommand parses "name arg*" up to ";" (statement form) or up to the
// closing backquote (quoted form, which it consumes).
func (p *Parser) parseCommand(quoted bool) (*CommandExpr, error) {
	name, err := p.expect(mel.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	cmd := &CommandExpr{Name: name.Lexeme, Line: name.Line}
	for {
		tok := p.peek()
		if tok.Type == mel.EOF {
			if quoted {
				return nil, p.fmtError(tok, "unterminated backquote command")
			}
			return cmd, nil
		}
		if quoted && tok.Type == mel.BACKQUOTE {
			p.advance()
			return cmd, nil
		}
		if !quoted && (tok.Type == mel.SEMICOLON || tok.Type == mel.RBRACE) {
			return cmd, nil
		}
		arg, err := p.parseCmdArg()
		if err != nil {
			return nil, err
		}
		cmd.Args = append(cmd.Args, arg)
	}
}

func (p *Parser) parseCmdArg() (CmdArg, error) {
	tok := p.peek()
	switch tok.Type {
	case mel.VARIABLE:
		e, err := p.parsePostfix()
		return CmdArg{Value: e}, err
	case mel.STRING_LIT:
		p.advance()
		return CmdArg{Value: &StringLit{Raw: tok.Lexeme}}, nil
	case mel.LPAREN, mel.LBRACE, mel.VEC_OPEN, mel.BACKQUOTE:
		e, err := p.parsePrimary()
		return CmdArg{Value: e}, err
	case mel.TRUE, mel.FALSE:
		if next := p.peekAt(1); !tok.Adjacent(next) || breaksWord(next.Type) {
			p.advance()
			return CmdArg{Value: &BoolLit{Value: tok.Type == mel.TRUE}}, nil
		}
	case mel.COMMA:
		p.advance()
		return p.parseCmdArg()
	}
	return p.parseWord(), nil
}

// parseWord joins adjacent tokens into one bare word and classifies it as
// a flag, a number or an object-name string.
func (p *Parser) parseWord() CmdArg {
	first := p.advance()
	var sb strings.Builder
	sb.WriteString(first.Lexeme)
	prev := first
	for {
		next := p.peek()
		if !prev.Adjacent(next) || breaksWord(next.Type) {
			break
		}
		sb.WriteString(next.Lexeme)
		prev = p.advance()
	}
	word := sb.String()
	switch {
	case flagWord.MatchString(word):
		return CmdArg{Flag: word[1:]}
	case intWord.MatchString(word):
		return CmdArg{Value: &IntLit{Text: strings.TrimPrefix(word, "+")}}
	case floatWord.MatchString(word):
		return CmdArg{Value: &FloatLit{Text: strings.TrimPrefix(word, "+")}}
	}
	word = strings.ReplaceAll(word, `\`, `\\`)
	return CmdArg{Value: &StringLit{Raw: strings.ReplaceAll(word, `"`, `\"`)}}
}

//  Expressions

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseAssignment()
}

func isAssignOp(tt mel.TokenType) bool {
	switch tt {
	case mel.ASSIGN, mel.PLUS_ASSIGN, mel.MINUS_ASSIGN, mel.STAR_ASSIGN, mel.SLASH_ASSIGN:
		return true
	}
	return false
}

func isLValue(e Expr) bool {
	switch n := e.(type) {
	case *VarRef:
		return true
	case *IndexExpr:
		return isLValue(n.Left)
	case *ComponentExpr:
		return isLValue(n.Left)
	}
	return false
}

func (p *Parser) parseAssignment() (Expr, error) {
	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if !isAssignOp(p.peek().Type) {
		return left, nil
	}
	opTok := p.advance()
	if !isLValue(left) {
		return nil, p.fmtError(opTok, "cannot assign to %s", left)
	}
	value, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	return &AssignExpr{Op: opTok.Type, Left: left, Value: value, Line: opTok.Line}, nil
}

func (p *Parser) parseTernary() (Expr, error) {
	cond, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != mel.QUESTION {
		return cond, nil
	}
	p.advance()
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(mel.COLON); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &TernaryExpr{Cond: cond, Then: then, Else: els}, nil
}

// parseBinary parses one left-associative precedence level.
func (p *Parser) parseBinary(next func() (Expr, error), ops ...mel.TokenType) (Expr, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}
	for {
		tt := p.peek().Type
		matched := false
		for _, op := range ops {
			if tt == op {
				matched = true
				break
			}
		}
		if !matched {
			return expr, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: tt, Left: expr, Right: right}
	}
}

func (p *Parser) parseLogicalOr() (Expr, error) {
	return p.parseBinary(p.parseLogicalAnd, mel.OR_LOGICAL)
}

func (p *Parser) parseLogicalAnd() (Expr, error) {
	return p.parseBinary(p.parseEquality, mel.AND_LOGICAL)
}

func (p *Parser) parseEquality() (Expr, error) {
	return p.parseBinary(p.parseRelational, mel.EQUALS, mel.NOT_EQ)
}

func (p *Parser) parseRelational() (Expr, error) {
	return p.parseBinary(p.parseAdditive, mel.LESS, mel.GREATER, mel.LESS_EQ, mel.GREATER_EQ)
}

func (p *Parser) parseAdditive() (Expr, error) {
	return p.parseBinary(p.parseMultiplicative, mel.PLUS, mel.MINUS)
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.parseBinary(p.parseUnary, mel.STAR, mel.SLASH, mel.PERCENT, mel.CARET)
}

func (p *Parser) parseUnary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case mel.NOT, mel.MINUS, mel.PLUS:
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if tok.Type == mel.PLUS {
			return right, nil
		}
		return &UnaryExpr{Op: tok.Type, Right: right}, nil
	case mel.PLUS_PLUS, mel.MINUS_MINUS:
		p.advance()
		target, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if !isLValue(target) {
			return nil, p.fmtError(tok, "%s needs a variable", tok.Lexeme)
		}
		return &IncDecExpr{Op: tok.Type, Target: target, Prefix: true}, nil
	case mel.LPAREN:
		// (int)$x
		if typ, ok := mel.TypeOfKeyword(p.peekAt(1).Type); ok && p.peekAt(2).Type == mel.RPAREN {
			p.advance()
			p.advance()
			p.advance()
			inner, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &CastExpr{Type: typ, Expr: inner}, nil
		}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch tok.Type {
		case mel.LBRACKET:
			p.advance()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(mel.RBRACKET); err != nil {
				return nil, err
			}
			expr = &IndexExpr{Left: expr, Index: idx}
		case mel.COMPONENT:
			p.advance()
			expr = &ComponentExpr{Left: expr, Comp: tok.Lexeme[1:]}
		case mel.PLUS_PLUS, mel.MINUS_MINUS:
			if !isLValue(expr) {
				return expr, nil
			}
			p.advance()
			expr = &IncDecExpr{Op: tok.Type, Target: expr}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case mel.INT_LIT:
		p.advance()
		return &IntLit{Text: tok.Lexeme}, nil
	case mel.FLOAT_LIT:
		p.advance()
		return &FloatLit{Text: tok.Lexeme}, nil
	case mel.STRING_LIT:
		p.advance()
		return &StringLit{Raw: tok.Lexeme}, nil
	case mel.TRUE, mel.FALSE:
		p.advance()
		return &BoolLit{Value: tok.Type == mel.TRUE}, nil
	case mel.VARIABLE:
		p.advance()
		return &VarRef{Name: strings.TrimPrefix(tok.Lexeme, "$"), Line: tok.Line}, nil
	case mel.LPAREN:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(mel.RPAREN); err != nil {
			return nil, err
		}
		return &ParenExpr{Inner: inner}, nil
	case mel.LBRACE:
		p.advance()
		elems, err := p.parseExprList(mel.RBRACE)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(mel.RBRACE); err != nil {
			return nil, err
		}
		return &ArrayLit{Elems: elems}, nil
	case mel.VEC_OPEN:
		return p.parseVectorOrMatrix()
	case mel.BACKQUOTE:
		p.advance()
		return p.parseCommand(true)
	case mel.IDENTIFIER:
		if p.peekAt(1).Type != mel.LPAREN {
			return nil, p.fmtError(tok, "unexpected word %q in expression", tok.Lexeme)
		}
		p.advance()
		p.advance() // (
		args, err := p.parseExprList(mel.RPAREN)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(mel.RPAREN); err != nil {
			return nil, err
		}
		return &CallExpr{Name: tok.Lexeme, Args: args, Line: tok.Line}, nil
	case mel.INT, mel.FLOAT, mel.STRING, mel.VECTOR, mel.MATRIX:
		typ, _ := mel.TypeOfKeyword(tok.Type)
		p.advance()
		if _, err := p.expect(mel.LPAREN); err != nil {
			return nil, err
		}
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(mel.RPAREN); err != nil {
			return nil, err
		}
		return &CastExpr{Type: typ, Expr: inner}, nil
	}
	return nil, p.fmtError(tok, "unexpected %s (%q)", tok.Type, tok.Lexeme)
}

// parseVectorOrMatrix parses <<a, b, c>> or <<a, b; c, d>>.
func (p *Parser) parseVectorOrMatrix() (Expr, error) {
	p.advance() // <<
	rows := [][]Expr{nil}
	for p.peek().Type != mel.VEC_CLOSE {
		e, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], e)
		switch p.peek().Type {
		case mel.COMMA:
			p.advance()
		case mel.SEMICOLON:
			p.advance()
			rows = append(rows, nil)
		case mel.VEC_CLOSE:
		default:
			tok := p.peek()
			return nil, p.fmtError(tok, "expected ',' or '>>', got %s (%q)", tok.Type, tok.Lexeme)
		}
	}
	p.advance() // >>
	if len(rows) > 1 {
		if len(rows[len(rows)-1]) == 0 {
			rows = rows[:len(rows)-1]
		}
		return &MatrixLit{Rows: rows}, nil
	}
	return &VectorLit{Elems: rows[0]}, nil
}

// Parse parses src into a Program. Syntax errors are recorded on ctx and
// parsing resumes after each one.
func parse(tokens []mel.Token, src string, ctx *Context) *Program {
	return newParser(tokens, src, ctx).parseProgram()
}
