package translator

import (
	"fmt"
	"strings"

	"mel2py/pkg/mel"
)

// ErrorToken records one syntax error: the offending token and where it was.
type ErrorToken struct {
	Type   mel.TokenType
	Value  string
	Line   int
	Msg    string
	Source string // the trimmed source line, when available
}

func (e ErrorToken) String() string {
	s := fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	if e.Source != "" {
		s += "\n  |> " + e.Source
	}
	return s
}

// MelParseError is returned, alongside the partial result, when any syntax
// error was recorded while translating a file.
type MelParseError struct {
	Errors []ErrorToken
}

func (e *MelParseError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "mel parse error"
	case 1:
		return "mel parse error: " + e.Errors[0].String()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d mel parse errors:", len(e.Errors))
	for _, et := range e.Errors {
		sb.WriteString("\n")
		sb.WriteString(et.String())
	}
	return sb.String()
}

// ExpressionParseError reports that a string could not be translated as a
// single expression.
type ExpressionParseError struct {
	Input string
	Err   *MelParseError
}

func (e *ExpressionParseError) Error() string {
	return fmt.Sprintf("not a single expression %q: %v", e.Input, e.Err)
}

func (e *ExpressionParseError) Unwrap() error { return e.Err }

func expressionError(input string, line int, msg string) *ExpressionParseError {
	return &ExpressionParseError{
		Input: input,
		Err:   &MelParseError{Errors: []ErrorToken{{Type: mel.EOF, Line: line, Msg: msg}}},
	}
}
