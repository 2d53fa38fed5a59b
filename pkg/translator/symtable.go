package translator

import "mel2py/pkg/mel"

// pyKeywords are names a MEL variable cannot keep in Python.
var pyKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
	"print": true, "exec": true,
}

// pyName maps a MEL identifier to a safe Python identifier.
func pyName(name string) string {
	if pyKeywords[name] {
		return name + "_"
	}
	return name
}

// VarInfo is what the translator knows about one variable.
type VarInfo struct {
	Type   mel.Type
	Global bool
	PyName string
}

// TypeEnv maps variable names to their static types. The file scope holds
// variables declared outside any procedure; each procedure gets a fresh
// stack of block scopes.
type TypeEnv struct {
	file   map[string]VarInfo
	locals []map[string]VarInfo
}

func NewTypeEnv() *TypeEnv {
	return &TypeEnv{file: make(map[string]VarInfo)}
}

func (e *TypeEnv) EnterProc() {
	e.locals = []map[string]VarInfo{make(map[string]VarInfo)}
}

func (e *TypeEnv) ExitProc() {
	e.locals = nil
}

func (e *TypeEnv) EnterScope() {
	if len(e.locals) > 0 {
		e.locals = append(e.locals, make(map[string]VarInfo))
	}
}

func (e *TypeEnv) ExitScope() {
	if len(e.locals) > 1 {
		e.locals = e.locals[:len(e.locals)-1]
	}
}

// Declare binds name in the innermost scope and returns its info.
func (e *TypeEnv) Declare(name string, typ mel.Type, global bool) VarInfo {
	info := VarInfo{Type: typ, Global: global, PyName: pyName(name)}
	if len(e.locals) > 0 {
		e.locals[len(e.locals)-1][name] = info
	} else {
		e.file[name] = info
	}
	return info
}

// Lookup searches the block scopes innermost first, then the file scope.
// Inside a procedure only globals are visible from the file scope.
func (e *TypeEnv) Lookup(name string) (VarInfo, bool) {
	for i := len(e.locals) - 1; i >= 0; i-- {
		if info, ok := e.locals[i][name]; ok {
			return info, true
		}
	}
	info, ok := e.file[name]
	if ok && len(e.locals) > 0 && !info.Global {
		return VarInfo{}, false
	}
	return info, ok
}
