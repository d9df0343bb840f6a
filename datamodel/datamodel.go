package datamodel

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Datamodel is the validated in-memory representation of a user schema. It
// maps model names to models and enum names to enums; iteration order is
// insertion order so that derived SQL is emitted deterministically.
type Datamodel struct {
	models *orderedmap.OrderedMap[string, *Model]
	enums  *orderedmap.OrderedMap[string, *Enum]

	relations *relationCache
}

// New creates an empty datamodel.
func New() *Datamodel {
	dm := &Datamodel{
		models: orderedmap.New[string, *Model](),
		enums:  orderedmap.New[string, *Enum](),
	}
	dm.relations = newRelationCache(dm)
	return dm
}

// AddModel appends a model. Duplicate names overwrite in place.
func (dm *Datamodel) AddModel(m *Model) {
	dm.models.Set(m.Name, m)
}

// AddEnum appends an enum. Duplicate names overwrite in place.
func (dm *Datamodel) AddEnum(e *Enum) {
	dm.enums.Set(e.Name, e)
}

// Models returns all models in insertion order.
func (dm *Datamodel) Models() []*Model {
	out := make([]*Model, 0, dm.models.Len())
	for pair := dm.models.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Enums returns all enums in insertion order.
func (dm *Datamodel) Enums() []*Enum {
	out := make([]*Enum, 0, dm.enums.Len())
	for pair := dm.enums.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// FindModel looks up a model by name.
func (dm *Datamodel) FindModel(name string) (*Model, bool) {
	return dm.models.Get(name)
}

// FindEnum looks up an enum by name.
func (dm *Datamodel) FindEnum(name string) (*Enum, bool) {
	return dm.enums.Get(name)
}

// Model is a single model declaration.
type Model struct {
	Name         string
	DatabaseName string // @@map override; empty means use Name

	IsEmbedded      bool
	IsRelationTable bool

	Fields []*Field

	// IDFields is the composite id criterion (@@id). Empty unless set.
	IDFields []string

	Indexes []IndexDefinition

	Documentation string
}

// DBName returns the table name for the model.
func (m *Model) DBName() string {
	if m.DatabaseName != "" {
		return m.DatabaseName
	}
	return m.Name
}

// FindField returns the named field, or nil.
func (m *Model) FindField(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// SingularIDFields returns every field carrying the id marker. A valid model
// has at most one; the validator enforces this.
func (m *Model) SingularIDFields() []*Field {
	var out []*Field
	for _, f := range m.Fields {
		if f.IsID() {
			out = append(out, f)
		}
	}
	return out
}

// IDField returns the model's single id field.
func (m *Model) IDField() (*Field, error) {
	for _, f := range m.Fields {
		if f.IsID() {
			return f, nil
		}
	}
	return nil, fmt.Errorf("model %s does not have an id field", m.Name)
}

// ScalarListFields returns all list-arity scalar and enum fields.
func (m *Model) ScalarListFields() []*Field {
	var out []*Field
	for _, f := range m.Fields {
		if f.Arity == List && f.IsScalar() {
			out = append(out, f)
		}
	}
	return out
}

// RelationFields returns all relation-typed fields.
func (m *Model) RelationFields() []*Field {
	var out []*Field
	for _, f := range m.Fields {
		if _, ok := f.Type.(RelationType); ok {
			out = append(out, f)
		}
	}
	return out
}

// RelatedField finds the counterpart of a relation field on this model:
// the field pointing back at fromModel under the same relation name,
// excluding the field itself for self-relations.
func (m *Model) RelatedField(fromModel, relationName, excludeField string) *Field {
	for _, f := range m.Fields {
		rel, ok := f.Type.(RelationType)
		if !ok {
			continue
		}
		if rel.Info.To != fromModel || rel.Info.Name != relationName {
			continue
		}
		if m.Name == fromModel && f.Name == excludeField {
			continue
		}
		return f
	}
	return nil
}

// FieldArity describes cardinality of a field.
type FieldArity int

const (
	Required FieldArity = iota
	Optional
	List
)

func (a FieldArity) String() string {
	switch a {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case List:
		return "list"
	default:
		return fmt.Sprintf("FieldArity(%d)", int(a))
	}
}

// IDStrategy controls how id values are produced.
type IDStrategy int

const (
	IDStrategyAuto IDStrategy = iota
	IDStrategyNone
)

// Sequence backs an id strategy on connectors that use sequences.
type Sequence struct {
	Name         string
	InitialValue int
	Allocation   int
}

// IDInfo marks a field as the model's id.
type IDInfo struct {
	Strategy IDStrategy
	Sequence *Sequence
}

// Field is a single field of a model.
type Field struct {
	Name         string
	DatabaseName string // @map override; empty means use Name

	Type  FieldType
	Arity FieldArity

	DefaultValue ScalarValue // nil when no default is set
	IDInfo       *IDInfo     // nil unless the field is the id

	IsUnique    bool
	IsUpdatedAt bool
	IsGenerated bool

	Documentation string
}

// DBName returns the column name for the field.
func (f *Field) DBName() string {
	if f.DatabaseName != "" {
		return f.DatabaseName
	}
	return f.Name
}

// IsID reports whether the field carries the id marker.
func (f *Field) IsID() bool {
	return f.IDInfo != nil
}

// IsList reports whether the field has list arity.
func (f *Field) IsList() bool {
	return f.Arity == List
}

// IsRequired reports whether the field has required arity.
func (f *Field) IsRequired() bool {
	return f.Arity == Required
}

// IsScalar reports whether the field holds a base scalar or enum value.
func (f *Field) IsScalar() bool {
	switch f.Type.(type) {
	case BaseType, EnumType:
		return true
	case RelationType:
		return false
	default:
		return false
	}
}

// RelationInfo returns the field's relation info, or nil for scalars.
func (f *Field) RelationInfo() *RelationInfo {
	if rel, ok := f.Type.(RelationType); ok {
		return rel.Info
	}
	return nil
}

// FieldType is the closed set of field type variants: base scalar, enum
// reference, or relation. Consumers must switch exhaustively.
type FieldType interface {
	isFieldType()
}

// BaseType is a plain scalar type.
type BaseType struct {
	Scalar ScalarType
}

// EnumType references an enum by name.
type EnumType struct {
	Name string
}

// RelationType references another model.
type RelationType struct {
	Info *RelationInfo
}

func (BaseType) isFieldType()     {}
func (EnumType) isFieldType()     {}
func (RelationType) isFieldType() {}

// OnDelete is the referential action to take when the related record is
// deleted.
type OnDelete int

const (
	SetNull OnDelete = iota
	Cascade
)

// IsCascade reports whether the action cascades the delete.
func (o OnDelete) IsCascade() bool { return o == Cascade }

// IsSetNull reports whether the action nulls the reference.
func (o OnDelete) IsSetNull() bool { return o == SetNull }

func (o OnDelete) String() string {
	switch o {
	case SetNull:
		return "SET_NULL"
	case Cascade:
		return "CASCADE"
	default:
		return fmt.Sprintf("OnDelete(%d)", int(o))
	}
}

// RelationInfo is the declared (unresolved) side of a relation.
type RelationInfo struct {
	// To is the target model name.
	To string
	// Name is the relation name; empty picks the canonical name.
	Name string
	// ToFields are referenced fields on the target model.
	ToFields []string
	// OnDelete strategy for this side.
	OnDelete OnDelete
}

// IndexDefinition is a multi-field index declared on a model.
type IndexDefinition struct {
	Name   string // empty means derive from table and column names
	Fields []string
	Unique bool
}

// Enum is an enum declaration.
type Enum struct {
	Name         string
	DatabaseName string
	Values       []string

	Documentation string
}

// DBName returns the database-side name for the enum.
func (e *Enum) DBName() string {
	if e.DatabaseName != "" {
		return e.DatabaseName
	}
	return e.Name
}
