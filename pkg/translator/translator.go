// Package translator parses MEL and renders it as Python.
//
// Translation runs in two steps over one token stream: the parser builds a
// light AST (comments ride along on the statements they precede), then a
// typed rendering pass walks it, tracking each variable's MEL type to decide
// casts and restructuring loops and switches that have no direct Python
// form. Calls go through the command formatter, which knows the builtin
// library, the procedures of the batch and the host's flag database.
package translator

import (
	"fmt"
	pathpkg "path"
	"regexp"
	"strings"

	"mel2py/pkg/mel"
	"mel2py/pkg/scanner"
)

// Result is a translated module.
type Result struct {
	Code     string
	Imports  []string // header import lines, also present at the top of Code
	Errors   []ErrorToken
	Warnings []string
}

// Translate converts a whole MEL file. When syntax errors were recorded the
// partial Result is returned together with a *MelParseError.
func Translate(src string, opts Options, env Env) (*Result, error) {
	ctx := newContext(opts, env)
	tokens, err := ctx.lex(src)
	if err != nil {
		return nil, err
	}
	ctx.local = scanner.Scan(tokens)

	prog := parse(tokens, src, ctx)
	t := newTranslator(ctx)
	t.program(prog)

	res := &Result{
		Imports:  ctx.importLines(),
		Errors:   ctx.errors,
		Warnings: ctx.warnings,
	}
	body := t.w.String()
	if opts.Header && len(res.Imports) > 0 {
		res.Code = strings.Join(res.Imports, "\n") + "\n\n" + body
	} else {
		res.Code = body
	}
	if len(ctx.errors) > 0 {
		return res, &MelParseError{Errors: ctx.errors}
	}
	return res, nil
}

// lex tokenizes src. Skipped characters become warnings unless the options
// ask for strict lexing.
func (c *Context) lex(src string) ([]mel.Token, error) {
	if c.opts.StrictLex {
		tokens, err := mel.LexStrict(src)
		if err != nil {
			return nil, fmt.Errorf("lex: %w", err)
		}
		return tokens, nil
	}
	tokens, errs := mel.Lex(src)
	for _, e := range errs {
		c.warnings = append(c.warnings, e.Error())
	}
	return tokens, nil
}

// TranslateExpression converts src, which must be a single MEL expression or
// command, into one Python expression. Anything else yields an
// *ExpressionParseError.
func TranslateExpression(src string, opts Options, env Env) (string, error) {
	code, _, err := translateExpr(src, opts, env, nil)
	return code, err
}

// translateExpr runs a nested translation with its own Context. local, when
// set, is the procedure table of the file the expression came from.
func translateExpr(src string, opts Options, env Env, local *scanner.FileProcs) (string, *Context, error) {
	opts.ExpressionOnly = true
	opts.Header = false
	ctx := newContext(opts, env)

	tokens, lexErrs := mel.Lex(src)
	if len(lexErrs) > 0 {
		return "", ctx, expressionError(src, lexErrs[0].Line, lexErrs[0].Error())
	}
	ctx.local = scanner.Scan(tokens)
	if local != nil {
		ctx.local = local
	}

	prog := parse(tokens, src, ctx)
	if len(ctx.errors) > 0 {
		return "", ctx, &ExpressionParseError{Input: src, Err: &MelParseError{Errors: ctx.errors}}
	}
	var stmts []Stmt
	for _, s := range prog.Stmts {
		if _, empty := s.(*EmptyStmt); !empty {
			stmts = append(stmts, s)
		}
	}
	if len(stmts) != 1 {
		return "", ctx, expressionError(src, 1, fmt.Sprintf("expected one expression, found %d statements", len(stmts)))
	}
	es, ok := stmts[0].(*ExprStmt)
	if !ok {
		return "", ctx, expressionError(src, stmts[0].Meta().Line, "statement has no expression form")
	}
	switch es.Expr.(type) {
	case *AssignExpr, *IncDecExpr:
		return "", ctx, expressionError(src, es.Meta().Line, "assignment has no expression form")
	}

	t := newTranslator(ctx)
	var v Value
	switch n := es.Expr.(type) {
	case *CommandExpr:
		v = t.command(n, false)
	case *CallExpr:
		v = t.callExpr(n, false)
	default:
		v = t.expr(n)
	}
	if len(t.pre) > 0 || v.Has(PendingAssignment) || v.Has(DeferredSizeAssignment) {
		return "", ctx, expressionError(src, es.Meta().Line, "expression needs statements")
	}
	return v.Text, ctx, nil
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// ModuleName derives the Python module name of a MEL file path.
func ModuleName(path string) string {
	base := pathpkg.Base(strings.ReplaceAll(path, `\`, "/"))
	base = strings.TrimSuffix(base, pathpkg.Ext(base))
	name := nonIdent.ReplaceAllString(base, "_")
	if name == "" {
		return "_"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return pyName(name)
}
