package stage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// capsLexer tokenizes caps strings such as
// `video/x-raw, format=(string){ I420, NV12 }, width=(int)320; foo/x-bar`.
var capsLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Float", Pattern: `[-+]?\d+\.\d+`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_\-./+]*`},
	{Name: "Punct", Pattern: `[;,=(){}]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type capsAST struct {
	Any        bool            `  @"ANY"`
	Empty      bool            `| @"EMPTY"`
	Structures []*structureAST `| @@ ( ";" @@ )* ";"?`
}

type structureAST struct {
	Name   string      `@Ident`
	Fields []*fieldAST `( "," @@ )*`
}

type fieldAST struct {
	Name  string    `@Ident "="`
	Value *valueAST `@@`
}

type valueAST struct {
	Type   string       `( "(" @Ident ")" )?`
	List   []*scalarAST `( "{" @@ ( "," @@ )* "}"`
	Scalar *scalarAST   `| @@ )`
}

type scalarAST struct {
	Type   string   `( "(" @Ident ")" )?`
	Float  *float64 `( @Float`
	Int    *int64   `| @Int`
	String *string  `| @String`
	Ident  *string  `| @Ident )`
}

var capsParser = participle.MustBuild[capsAST](
	participle.Lexer(capsLexer),
	participle.Unquote("String"),
	participle.Elide("Whitespace"),
)

// ParseCaps parses a caps string. "ANY" and "EMPTY" are recognized, and a
// blank string yields EMPTY caps.
func ParseCaps(s string) (*Caps, error) {
	if strings.TrimSpace(s) == "" {
		return NewEmptyCaps(), nil
	}
	ast, err := capsParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("parse caps %q: %w", s, err)
	}
	if ast.Any {
		return NewAnyCaps(), nil
	}
	if ast.Empty {
		return NewEmptyCaps(), nil
	}
	caps := &Caps{}
	for _, st := range ast.Structures {
		structure, err := st.build()
		if err != nil {
			return nil, fmt.Errorf("parse caps %q: %w", s, err)
		}
		caps.append(structure)
	}
	return caps, nil
}

// MustParseCaps is like ParseCaps but panics on error.
// Use it for template caps declared at package level.
func MustParseCaps(s string) *Caps {
	caps, err := ParseCaps(s)
	if err != nil {
		panic(err)
	}
	return caps
}

func (st *structureAST) build() (*Structure, error) {
	s := &Structure{name: st.Name}
	for _, f := range st.Fields {
		v, err := f.Value.build()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		s.set(f.Name, v)
	}
	return s, nil
}

func (v *valueAST) build() (any, error) {
	if v.Scalar != nil {
		return v.Scalar.build(v.Type)
	}
	list := make(ValueList, 0, len(v.List))
	for _, item := range v.List {
		val, err := item.build(v.Type)
		if err != nil {
			return nil, err
		}
		list = append(list, val)
	}
	if len(list) == 1 {
		return list[0], nil
	}
	return list, nil
}

// build converts a scalar token to its Go value. An inner type annotation
// overrides the one written before a list.
func (s *scalarAST) build(outerType string) (any, error) {
	typ := outerType
	if s.Type != "" {
		typ = s.Type
	}

	raw := s.raw()
	switch strings.ToLower(typ) {
	case "":
		return s.untyped(), nil
	case "int", "i", "gint":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid int %q", raw)
		}
		return n, nil
	case "float", "double", "f", "d", "gdouble":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid double %q", raw)
		}
		return f, nil
	case "string", "str", "s", "gchararray":
		return raw, nil
	case "boolean", "bool", "b", "gboolean":
		b, ok := parseBool(raw)
		if !ok {
			return nil, fmt.Errorf("invalid boolean %q", raw)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported type %q", typ)
	}
}

func (s *scalarAST) raw() string {
	switch {
	case s.Float != nil:
		return strconv.FormatFloat(*s.Float, 'f', -1, 64)
	case s.Int != nil:
		return strconv.FormatInt(*s.Int, 10)
	case s.String != nil:
		return *s.String
	case s.Ident != nil:
		return *s.Ident
	}
	return ""
}

func (s *scalarAST) untyped() any {
	switch {
	case s.Float != nil:
		return *s.Float
	case s.Int != nil:
		return int(*s.Int)
	case s.String != nil:
		return *s.String
	case s.Ident != nil:
		if isReservedWord(*s.Ident) {
			b, _ := parseBool(*s.Ident)
			return b
		}
		return *s.Ident
	}
	return nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes", "t", "1":
		return true, true
	case "false", "no", "f", "0":
		return false, true
	}
	return false, false
}
