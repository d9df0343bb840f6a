package parser

// Span is the source position of an AST node, used for error rendering.
type Span struct {
	Line   int
	Column int
}

// Schema is the root of the parsed datamodel AST.
type Schema struct {
	Models []*Model
	Enums  []*Enum
	// Datasource and generator blocks are retained verbatim; the core
	// pipeline ignores them.
	Sources []*ConfigBlock
}

// FindModel returns the model with the given name, or nil.
func (s *Schema) FindModel(name string) *Model {
	for _, m := range s.Models {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// FindField returns the named field of the named model, or nil.
func (s *Schema) FindField(model, field string) *Field {
	m := s.FindModel(model)
	if m == nil {
		return nil
	}
	for _, f := range m.Fields {
		if f.Name == field {
			return f
		}
	}
	return nil
}

// FindEnum returns the enum with the given name, or nil.
func (s *Schema) FindEnum(name string) *Enum {
	for _, e := range s.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Model is a `model` block.
type Model struct {
	Name          string
	Span          Span
	Fields        []*Field
	Attributes    []*Attribute // block attributes (@@id, @@index, ...)
	Documentation string
}

// Attribute returns the first block attribute with the given name, or nil.
func (m *Model) Attribute(name string) *Attribute {
	for _, a := range m.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Field is a single field declaration inside a model block.
type Field struct {
	Name          string
	Span          Span
	Type          TypeRef
	Attributes    []*Attribute
	Documentation string
}

// Attribute returns the first field attribute with the given name, or nil.
func (f *Field) Attribute(name string) *Attribute {
	for _, a := range f.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// TypeRef is a reference to a field's declared type.
type TypeRef struct {
	Name     string
	Optional bool
	List     bool
}

// Attribute is a `@name(...)` or `@@name(...)` annotation.
type Attribute struct {
	Name string
	Span Span
	Args []Arg
}

// Arg is a positional or named attribute argument.
type Arg struct {
	Name  string // empty for positional arguments
	Value Value
}

// Positional returns the i-th positional argument, or nil.
func (a *Attribute) Positional(i int) Value {
	n := 0
	for _, arg := range a.Args {
		if arg.Name != "" {
			continue
		}
		if n == i {
			return arg.Value
		}
		n++
	}
	return nil
}

// Named returns the value of the named argument, or nil.
func (a *Attribute) Named(name string) Value {
	for _, arg := range a.Args {
		if arg.Name == name {
			return arg.Value
		}
	}
	return nil
}

// Value is an attribute argument value. The concrete types below form a
// closed set; consumers switch exhaustively.
type Value interface {
	valueNode()
}

// StringValue is a quoted string literal.
type StringValue struct {
	Value string
}

// NumberValue is an integer or float literal, kept verbatim.
type NumberValue struct {
	Raw string
}

// BoolValue is a `true` or `false` literal.
type BoolValue struct {
	Value bool
}

// ConstantValue is a bare identifier, e.g. an enum value or `Cascade`.
type ConstantValue struct {
	Name string
}

// FunctionValue is a call expression, e.g. `cuid()` or `now()`.
type FunctionValue struct {
	Name string
	Args []Value
}

// ListValue is a bracketed list, e.g. `[email, name]`.
type ListValue struct {
	Elements []Value
}

func (*StringValue) valueNode()   {}
func (*NumberValue) valueNode()   {}
func (*BoolValue) valueNode()     {}
func (*ConstantValue) valueNode() {}
func (*FunctionValue) valueNode() {}
func (*ListValue) valueNode()     {}

// Enum is an `enum` block.
type Enum struct {
	Name          string
	Span          Span
	Values        []string
	Documentation string
}

// ConfigBlock is a datasource or generator block, kept for completeness.
type ConfigBlock struct {
	Kind       string // "datasource" or "generator"
	Name       string
	Span       Span
	Properties map[string]Value
}
