package mel

import "strings"

// Type is the static MEL type the translator tracks for a value.
// The Array bit can be combined with any element type.
type Type uint8

const (
	None Type = iota
	Int
	Float
	String
	Vector
	Matrix
	Bool
	Flag
)

// Array marks a type as a one-dimensional array of its element type.
const Array Type = 0x80

var typeNames = [...]string{
	None:   "none",
	Int:    "int",
	Float:  "float",
	String: "string",
	Vector: "vector",
	Matrix: "matrix",
	Bool:   "bool",
	Flag:   "flag",
}

// Elem strips the array bit.
func (t Type) Elem() Type { return t &^ Array }

func (t Type) IsArray() bool { return t&Array != 0 }

// AsArray returns the array type whose elements are t.
func (t Type) AsArray() Type {
	if t == None {
		return None
	}
	return t | Array
}

// IsNumeric reports whether t is an int, float or bool scalar.
func (t Type) IsNumeric() bool {
	switch t {
	case Int, Float, Bool:
		return true
	}
	return false
}

func (t Type) String() string {
	e := t.Elem()
	name := "none"
	if int(e) < len(typeNames) {
		name = typeNames[e]
	}
	if t.IsArray() {
		return name + "[]"
	}
	return name
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, bool) {
	arr := false
	if strings.HasSuffix(s, "[]") {
		arr = true
		s = strings.TrimSuffix(s, "[]")
	}
	for i, n := range typeNames {
		if n == s {
			t := Type(i)
			if arr {
				t = t.AsArray()
			}
			return t, true
		}
	}
	return None, false
}

// TypeOfKeyword maps a type keyword token to its Type.
func TypeOfKeyword(tt TokenType) (Type, bool) {
	switch tt {
	case INT:
		return Int, true
	case FLOAT:
		return Float, true
	case STRING:
		return String, true
	case VECTOR:
		return Vector, true
	case MATRIX:
		return Matrix, true
	}
	return None, false
}
