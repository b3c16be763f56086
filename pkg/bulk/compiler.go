package bulk

import (
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// ShapeField is one mappable field of a record shape.
// Column is the declared column name and may be empty.
type ShapeField[T any] struct {
	Name   string
	Column string
	Value  func(T) any
}

// Shape is the ordered set of mappable fields of a record type.
// Table is the declared table name and may be empty.
type Shape[T any] struct {
	Name   string
	Table  string
	Fields []ShapeField[T]
}

// Overrides are the declarative settings applied on top of a shape.
// Empty strings and a zero BatchSize mean "not set".
type Overrides struct {
	Table     string
	Columns   map[string]string // field name -> column name
	BatchSize int
}

// Compile produces the write configuration of shape.
//
// Table resolution: ov.Table, shape.Table, shape.Name. Column resolution:
// ov.Columns[field], the field's declared column, the field name. The batch
// size has no default and must be at least 1.
func Compile[T any](shape Shape[T], ov Overrides) (*WriteConfig[T], error) {
	const op = "compile"

	if len(shape.Fields) == 0 {
		return nil, invalidConfig(op, "record shape %q has no mappable fields", shape.Name).WithDetail("shape", shape.Name)
	}
	if ov.BatchSize < 1 {
		return nil, invalidConfig(op, "batch size must be a positive integer, got %d", ov.BatchSize).WithDetail("shape", shape.Name)
	}

	table := firstNonEmpty(ov.Table, shape.Table, shape.Name)
	if table == "" {
		return nil, invalidConfig(op, "anonymous record shape requires a table name")
	}

	known := make(map[string]struct{}, len(shape.Fields))
	for _, f := range shape.Fields {
		known[f.Name] = struct{}{}
	}
	for name := range ov.Columns {
		if _, ok := known[name]; !ok {
			return nil, invalidConfig(op, "column override for unknown field %q", name).WithDetail("shape", shape.Name)
		}
	}

	mapping := make(FieldMapping[T], len(shape.Fields))
	columns := make(map[string]string, len(shape.Fields))
	for i, f := range shape.Fields {
		if f.Value == nil {
			return nil, invalidConfig(op, "field %q has no accessor", f.Name).WithDetail("shape", shape.Name)
		}
		col := firstNonEmpty(ov.Columns[f.Name], f.Column, f.Name)
		if col == "" {
			return nil, invalidConfig(op, "field at position %d has no name", i).WithDetail("shape", shape.Name)
		}
		key := strings.ToLower(col)
		if prev, dup := columns[key]; dup {
			return nil, invalidConfig(op, "fields %q and %q both map to column %q", prev, f.Name, col).
				WithDetail("shape", shape.Name)
		}
		columns[key] = f.Name
		mapping[i] = Mapping[T]{Index: i, Field: f.Name, Column: col, Value: f.Value}
	}

	return &WriteConfig[T]{Table: table, BatchSize: ov.BatchSize, Mapping: mapping}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// TableNamer lets a struct declare its destination table.
type TableNamer interface {
	TableName() string
}

const tagName = "bulk"

// ShapeOf derives the record shape of struct type T (or pointer to struct).
//
// Exported fields are mapped. Fields promoted from embedded structs come
// first, in embedding order, followed by the struct's own fields in
// declaration order. An own field hides a promoted field of the same name.
// `bulk:"-"` skips a field, `bulk:"name"` declares its column.
func ShapeOf[T any]() (Shape[T], error) {
	rt := reflect.TypeFor[T]()
	base := rt
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct {
		return Shape[T]{}, invalidConfig("shape", "%s is not a struct type", rt)
	}

	shape := Shape[T]{Name: base.Name()}
	if tn, ok := reflect.New(base).Interface().(TableNamer); ok {
		shape.Table = tn.TableName()
	}

	for _, fp := range structFields(base) {
		path := fp.path
		shape.Fields = append(shape.Fields, ShapeField[T]{
			Name:   fp.name,
			Column: fp.column,
			Value: func(rec T) any {
				return valueByPath(reflect.ValueOf(rec), path)
			},
		})
	}
	return shape, nil
}

type fieldPath struct {
	name   string
	column string
	path   []int
}

func structFields(rt reflect.Type) []fieldPath {
	var out []fieldPath
	active := map[reflect.Type]bool{}

	var walk func(t reflect.Type, base []int)
	walk = func(t reflect.Type, base []int) {
		if active[t] {
			return
		}
		active[t] = true
		defer delete(active, t)

		var own []int
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			column, omit := parseTag(sf.Tag.Get(tagName))
			if omit {
				continue
			}
			if embedded := embeddedStruct(sf); embedded != nil && column == "" {
				walk(embedded, appendPath(base, i))
				continue
			}
			if sf.IsExported() {
				own = append(own, i)
			}
		}
		for _, i := range own {
			sf := t.Field(i)
			column, _ := parseTag(sf.Tag.Get(tagName))
			out = append(out, fieldPath{name: sf.Name, column: column, path: appendPath(base, i)})
		}
	}
	walk(rt, nil)
	return dominant(out)
}

// dominant applies Go's promotion rules: of fields sharing a name the
// shallowest wins, and names ambiguous at that depth are dropped. Order of
// the surviving fields is unchanged.
func dominant(fields []fieldPath) []fieldPath {
	depth := map[string]int{}
	count := map[string]int{}
	for _, f := range fields {
		d, seen := depth[f.name]
		switch {
		case !seen || len(f.path) < d:
			depth[f.name], count[f.name] = len(f.path), 1
		case len(f.path) == d:
			count[f.name]++
		}
	}
	out := fields[:0:0]
	for _, f := range fields {
		if len(f.path) == depth[f.name] && count[f.name] == 1 {
			out = append(out, f)
		}
	}
	return out
}

func embeddedStruct(sf reflect.StructField) reflect.Type {
	if !sf.Anonymous {
		return nil
	}
	t := sf.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

func appendPath(base []int, i int) []int {
	return append(slices.Clip(base), i)
}

// parseTag supports "-", "name" and "name,<ignored options>".
func parseTag(tag string) (column string, omit bool) {
	if tag == "-" {
		return "", true
	}
	column, _, _ = strings.Cut(tag, ",")
	return column, false
}

// valueByPath reads the field at path. A nil pointer on the way yields nil.
func valueByPath(v reflect.Value, path []int) any {
	for _, i := range path {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v.Interface()
}

// Compiler memoizes struct compilations so each (type, overrides) pair is
// reflected once. The zero value is ready to use.
type Compiler struct {
	cache sync.Map // compileKey -> any (*WriteConfig[T])
}

// NewCompiler returns an empty Compiler.
func NewCompiler() *Compiler { return &Compiler{} }

type compileKey struct {
	rt        reflect.Type
	overrides string
}

// CompileStruct returns the write configuration of struct type T,
// compiling it on first use.
func CompileStruct[T any](c *Compiler, ov Overrides) (*WriteConfig[T], error) {
	key := compileKey{rt: reflect.TypeFor[T](), overrides: ov.fingerprint()}
	if v, ok := c.cache.Load(key); ok {
		return v.(*WriteConfig[T]), nil
	}

	shape, err := ShapeOf[T]()
	if err != nil {
		return nil, err
	}
	cfg, err := Compile(shape, ov)
	if err != nil {
		return nil, err
	}
	v, _ := c.cache.LoadOrStore(key, cfg)
	return v.(*WriteConfig[T]), nil
}

func (ov Overrides) fingerprint() string {
	var b strings.Builder
	b.WriteString(ov.Table)
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(ov.BatchSize))
	names := make([]string, 0, len(ov.Columns))
	for name := range ov.Columns {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		b.WriteByte(0)
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(ov.Columns[name])
	}
	return b.String()
}
