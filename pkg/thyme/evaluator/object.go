package evaluator

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	"github.com/sambeau/thyme/pkg/thyme/ast"
)

type ObjectType string

const (
	STRING_OBJ  = "STRING"
	INTEGER_OBJ = "INTEGER"
	BOOLEAN_OBJ = "BOOLEAN"
	ARRAY_OBJ   = "ARRAY"
	MAP_OBJ     = "MAP"
	NULL_OBJ    = "NULL"
	INNER_OBJ   = "INNER"
)

// Object represents all values in the template language
type Object interface {
	Type() ObjectType
	Inspect() string
}

var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

// String represents string objects
type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }

// Integer represents integer objects
type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }

// Boolean represents boolean objects
type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }

// Null represents null objects
type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }

// Array is an ordered sequence of values
type Array struct {
	Elements []Object
}

func (a *Array) Type() ObjectType { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	var out bytes.Buffer
	out.WriteString("[")
	for i, e := range a.Elements {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(inspectNested(e))
	}
	out.WriteString("]")
	return out.String()
}

// Map is a string-keyed collection. Key order is not significant.
type Map struct {
	Pairs map[string]Object
}

func (m *Map) Type() ObjectType { return MAP_OBJ }
func (m *Map) Inspect() string {
	var out bytes.Buffer
	out.WriteString("{")
	for i, k := range m.Keys() {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(k)
		out.WriteString(": ")
		out.WriteString(inspectNested(m.Pairs[k]))
	}
	out.WriteString("}")
	return out.String()
}

// Keys returns the map keys in sorted order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.Pairs))
	for k := range m.Pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value stored under key, or NULL.
func (m *Map) Get(key string) Object {
	if v, ok := m.Pairs[key]; ok {
		return v
	}
	return NULL
}

// With returns a shallow copy of m with key set to val.
func (m *Map) With(key string, val Object) *Map {
	pairs := make(map[string]Object, len(m.Pairs)+1)
	for k, v := range m.Pairs {
		pairs[k] = v
	}
	pairs[key] = val
	return &Map{Pairs: pairs}
}

// NewMap builds a Map from its pairs.
func NewMap(pairs map[string]Object) *Map {
	if pairs == nil {
		pairs = map[string]Object{}
	}
	return &Map{Pairs: pairs}
}

// Inner is the body of a block shortcode. It is rendered lazily, against the
// scope of the template that invoked the shortcode.
type Inner struct {
	Body  *ast.Template
	frame int
	depth int // include chain length at the call site
}

func (in *Inner) Type() ObjectType { return INNER_OBJ }
func (in *Inner) Inspect() string  { return in.Body.String() }

func inspectNested(o Object) string {
	if s, ok := o.(*String); ok {
		return ast.Quote(s.Value)
	}
	return o.Inspect()
}

func nativeBoolToBoolean(b bool) *Boolean {
	if b {
		return TRUE
	}
	return FALSE
}

// typeName is the lower-case type name used in error messages.
func typeName(o Object) string {
	return strings.ToLower(string(o.Type()))
}

// isTruthy reports whether o selects an if branch. Only false and null are falsy.
func isTruthy(o Object) bool {
	switch v := o.(type) {
	case *Null:
		return false
	case *Boolean:
		return v.Value
	}
	return true
}

// objectsEqual compares values structurally. Values of different types are never equal.
func objectsEqual(a, b Object) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case *String:
		return av.Value == b.(*String).Value
	case *Integer:
		return av.Value == b.(*Integer).Value
	case *Boolean:
		return av.Value == b.(*Boolean).Value
	case *Null:
		return true
	case *Array:
		bv := b.(*Array)
		if len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !objectsEqual(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv := b.(*Map)
		if len(av.Pairs) != len(bv.Pairs) {
			return false
		}
		for k, v := range av.Pairs {
			w, ok := bv.Pairs[k]
			if !ok || !objectsEqual(v, w) {
				return false
			}
		}
		return true
	case *Inner:
		return av == b.(*Inner)
	}
	return false
}
