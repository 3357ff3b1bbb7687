// Package stage provides the pad, caps and element primitives used to drive a
// single transform stage synchronously.
package stage

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

const (
	capsAny   = "ANY"
	capsEmpty = "EMPTY"
)

// ValueList is a field value that accepts any one of its members.
// Members are int, float64, string or bool.
type ValueList []any

// Field is a single named value inside a Structure.
type Field struct {
	Name  string
	Value any
}

// Structure is a media type name plus an ordered set of typed fields,
// e.g. "video/x-raw, width=(int)320".
//
// Structures are treated as immutable once they are part of a Caps.
type Structure struct {
	name   string
	fields []Field
}

// NewStructure creates a structure from alternating field name / value pairs.
// Values of unsupported types panic, since structures are built from literals.
func NewStructure(name string, kv ...any) *Structure {
	if len(kv)%2 != 0 {
		panic("stage: NewStructure needs name/value pairs")
	}
	s := &Structure{name: name}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("stage: field name must be a string, got %T", kv[i]))
		}
		s.set(key, normalizeValue(kv[i+1]))
	}
	return s
}

// Name returns the media type name.
func (s *Structure) Name() string {
	return s.name
}

// Get returns the value of a field.
func (s *Structure) Get(field string) (any, bool) {
	for _, f := range s.fields {
		if f.Name == field {
			return f.Value, true
		}
	}
	return nil, false
}

// Fields returns a copy of the structure's fields in order.
func (s *Structure) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// With returns a copy of the structure with the field set to value.
func (s *Structure) With(field string, value any) *Structure {
	out := s.Copy()
	out.set(field, normalizeValue(value))
	return out
}

// Copy returns a deep copy.
func (s *Structure) Copy() *Structure {
	out := &Structure{name: s.name, fields: make([]Field, len(s.fields))}
	for i, f := range s.fields {
		if list, ok := f.Value.(ValueList); ok {
			f.Value = append(ValueList(nil), list...)
		}
		out.fields[i] = f
	}
	return out
}

// IsFixed reports whether no field holds a list of alternatives.
func (s *Structure) IsFixed() bool {
	for _, f := range s.fields {
		if _, ok := f.Value.(ValueList); ok {
			return false
		}
	}
	return true
}

func (s *Structure) set(field string, value any) {
	for i := range s.fields {
		if s.fields[i].Name == field {
			s.fields[i].Value = value
			return
		}
	}
	s.fields = append(s.fields, Field{Name: field, Value: value})
}

func (s *Structure) fieldNames() mapset.Set[string] {
	names := mapset.NewThreadUnsafeSet[string]()
	for _, f := range s.fields {
		names.Add(f.Name)
	}
	return names
}

// String formats the structure the way caps strings are written.
func (s *Structure) String() string {
	var b strings.Builder
	b.WriteString(s.name)
	for _, f := range s.fields {
		b.WriteString(", ")
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(formatValue(f.Value))
	}
	return b.String()
}

// intersect returns the common subset of two structures. Fields present in
// only one side are kept as-is.
func (s *Structure) intersect(other *Structure) (*Structure, bool) {
	if s.name != other.name {
		return nil, false
	}
	out := &Structure{name: s.name}
	for _, f := range s.fields {
		v, ok := other.Get(f.Name)
		if !ok {
			out.fields = append(out.fields, f)
			continue
		}
		common, ok := intersectValue(f.Value, v)
		if !ok {
			return nil, false
		}
		out.fields = append(out.fields, Field{Name: f.Name, Value: common})
	}
	mine := s.fieldNames()
	for _, f := range other.fields {
		if !mine.Contains(f.Name) {
			out.fields = append(out.fields, f)
		}
	}
	return out, true
}

// isSubset reports whether every value s allows is also allowed by super.
// A field super constrains must be present in s.
func (s *Structure) isSubset(super *Structure) bool {
	if s.name != super.name {
		return false
	}
	if !super.fieldNames().IsSubset(s.fieldNames()) {
		return false
	}
	for _, f := range super.fields {
		v, _ := s.Get(f.Name)
		if !valueIsSubset(v, f.Value) {
			return false
		}
	}
	return true
}

func (s *Structure) fixate() *Structure {
	out := s.Copy()
	for i, f := range out.fields {
		if list, ok := f.Value.(ValueList); ok && len(list) > 0 {
			out.fields[i].Value = list[0]
		}
	}
	return out
}

// Caps describes the set of media types a pad can handle.
// The zero value and NewEmptyCaps are EMPTY; NewAnyCaps accepts everything.
type Caps struct {
	any        bool
	structures []*Structure
}

// NewCaps creates caps from the given structures.
func NewCaps(structures ...*Structure) *Caps {
	c := &Caps{}
	for _, s := range structures {
		c.append(s.Copy())
	}
	return c
}

// NewSimpleCaps creates caps holding a single structure.
func NewSimpleCaps(name string, kv ...any) *Caps {
	return &Caps{structures: []*Structure{NewStructure(name, kv...)}}
}

// NewAnyCaps creates caps compatible with everything.
func NewAnyCaps() *Caps {
	return &Caps{any: true}
}

// NewEmptyCaps creates caps compatible with nothing.
func NewEmptyCaps() *Caps {
	return &Caps{}
}

// IsAny reports whether the caps accept any media type.
func (c *Caps) IsAny() bool {
	return c != nil && c.any
}

// IsEmpty reports whether the caps accept nothing.
func (c *Caps) IsEmpty() bool {
	return c == nil || (!c.any && len(c.structures) == 0)
}

// IsFixed reports whether the caps describe exactly one concrete format.
func (c *Caps) IsFixed() bool {
	return c != nil && !c.any && len(c.structures) == 1 && c.structures[0].IsFixed()
}

// Size returns the number of structures.
func (c *Caps) Size() int {
	if c == nil {
		return 0
	}
	return len(c.structures)
}

// Structure returns the i-th structure, or nil when out of range.
func (c *Caps) Structure(i int) *Structure {
	if c == nil || i < 0 || i >= len(c.structures) {
		return nil
	}
	return c.structures[i]
}

// Copy returns a deep copy.
func (c *Caps) Copy() *Caps {
	if c == nil {
		return NewEmptyCaps()
	}
	out := &Caps{any: c.any}
	for _, s := range c.structures {
		out.structures = append(out.structures, s.Copy())
	}
	return out
}

// Intersect returns the caps allowed by both c and other, preserving c's order.
// A nil argument is treated as ANY so it can be used as an absent filter.
func (c *Caps) Intersect(other *Caps) *Caps {
	switch {
	case other == nil || other.any:
		if c == nil {
			return NewAnyCaps()
		}
		return c.Copy()
	case c == nil || c.any:
		return other.Copy()
	}
	out := &Caps{}
	for _, a := range c.structures {
		for _, b := range other.structures {
			if s, ok := a.intersect(b); ok {
				out.append(s)
			}
		}
	}
	return out
}

// CanIntersect reports whether c and other share at least one format.
func (c *Caps) CanIntersect(other *Caps) bool {
	return !c.Intersect(other).IsEmpty()
}

// IsSubset reports whether everything c accepts is also accepted by super.
func (c *Caps) IsSubset(super *Caps) bool {
	if super.IsAny() {
		return true
	}
	if c.IsAny() {
		return false
	}
	for _, s := range c.structuresOrNil() {
		found := false
		for _, sup := range super.structuresOrNil() {
			if s.isSubset(sup) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// IsEqual reports whether both caps accept exactly the same formats.
func (c *Caps) IsEqual(other *Caps) bool {
	if c.IsAny() || other.IsAny() {
		return c.IsAny() && other.IsAny()
	}
	return c.IsSubset(other) && other.IsSubset(c)
}

// Fixate picks a single concrete format: the first structure with the first
// alternative of every list. ANY and EMPTY caps are returned unchanged.
func (c *Caps) Fixate() *Caps {
	if c.IsEmpty() || c.IsAny() {
		return c.Copy()
	}
	return &Caps{structures: []*Structure{c.structures[0].fixate()}}
}

// String formats the caps in the usual textual form, structures separated by "; ".
func (c *Caps) String() string {
	if c.IsAny() {
		return capsAny
	}
	if c.IsEmpty() {
		return capsEmpty
	}
	parts := make([]string, len(c.structures))
	for i, s := range c.structures {
		parts[i] = s.String()
	}
	return strings.Join(parts, "; ")
}

func (c *Caps) structuresOrNil() []*Structure {
	if c == nil {
		return nil
	}
	return c.structures
}

// append adds s unless an equal structure is already present.
func (c *Caps) append(s *Structure) {
	for _, existing := range c.structures {
		if existing.isSubset(s) && s.isSubset(existing) {
			return
		}
	}
	c.structures = append(c.structures, s)
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case int:
		return val
	case int32:
		return int(val)
	case int64:
		return int(val)
	case uint:
		return int(val)
	case uint32:
		return int(val)
	case float32:
		return float64(val)
	case float64, string, bool:
		return val
	case ValueList:
		out := make(ValueList, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case []any:
		return normalizeValue(ValueList(val))
	case []int:
		out := make(ValueList, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case []string:
		out := make(ValueList, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	default:
		panic(fmt.Sprintf("stage: unsupported caps value type %T", v))
	}
}

func valuesEqual(a, b any) bool {
	af, aFloat := a.(float64)
	bf, bFloat := b.(float64)
	if aFloat && bFloat {
		return math.Abs(af-bf) < 1e-9
	}
	return a == b
}

func intersectValue(a, b any) (any, bool) {
	la, aList := a.(ValueList)
	lb, bList := b.(ValueList)
	switch {
	case aList && bList:
		var common ValueList
		for _, x := range la {
			if listContains(lb, x) {
				common = append(common, x)
			}
		}
		switch len(common) {
		case 0:
			return nil, false
		case 1:
			return common[0], true
		default:
			return common, true
		}
	case aList:
		return b, listContains(la, b)
	case bList:
		return a, listContains(lb, a)
	default:
		return a, valuesEqual(a, b)
	}
}

func valueIsSubset(v, super any) bool {
	superList, superIsList := super.(ValueList)
	if list, ok := v.(ValueList); ok {
		for _, item := range list {
			if !valueIsSubset(item, super) {
				return false
			}
		}
		return true
	}
	if superIsList {
		return listContains(superList, v)
	}
	return valuesEqual(v, super)
}

func listContains(list ValueList, v any) bool {
	for _, item := range list {
		if valuesEqual(item, v) {
			return true
		}
	}
	return false
}

var bareString = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_\-./+]*$`)

func formatValue(v any) string {
	switch val := v.(type) {
	case ValueList:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case int:
		return "(int)" + strconv.Itoa(val)
	case float64:
		return "(double)" + strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return "(boolean)" + strconv.FormatBool(val)
	case string:
		if bareString.MatchString(val) && !isReservedWord(val) {
			return "(string)" + val
		}
		return "(string)" + strconv.Quote(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func isReservedWord(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no":
		return true
	}
	return false
}
