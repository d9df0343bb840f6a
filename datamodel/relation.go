package datamodel

import (
	"fmt"
	"sync"
)

// RelationSide distinguishes the two ends of a relation.
type RelationSide int

const (
	SideA RelationSide = iota
	SideB
)

// Opposite returns the other side.
func (s RelationSide) Opposite() RelationSide {
	if s == SideA {
		return SideB
	}
	return SideA
}

func (s RelationSide) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// Manifestation is how a relation is realized in SQL: either a foreign-key
// column inline in one of the participant tables, or a separate join table.
type Manifestation interface {
	isManifestation()
}

// Inline is a relation realized by a column in one participant's table.
type Inline struct {
	InTableOfModel    string
	ReferencingColumn string
}

// RelationTable is a relation realized by a separate join table.
type RelationTable struct {
	Table    string
	ColumnA  string
	ColumnB  string
	IDColumn string // empty unless the table carries its own id
}

func (Inline) isManifestation()        {}
func (RelationTable) isManifestation() {}

// Relation is one resolved, undirected relation between two models. Models
// are referenced by name and resolved lazily against the owning datamodel;
// a Relation must not outlive the datamodel it was derived from.
type Relation struct {
	Name string

	ModelAName string
	ModelBName string

	AOnDelete OnDelete
	BOnDelete OnDelete

	Manifestation Manifestation

	dm *Datamodel

	fieldAName string
	fieldBName string

	// side of the model holding the inline column; meaningless for tables
	inlineSide RelationSide

	resolveOnce sync.Once
	modelA      *Model
	modelB      *Model
	fieldA      *Field
	fieldB      *Field
}

func (r *Relation) resolve() {
	r.resolveOnce.Do(func() {
		r.modelA, _ = r.dm.FindModel(r.ModelAName)
		r.modelB, _ = r.dm.FindModel(r.ModelBName)
		if r.modelA != nil {
			r.fieldA = r.modelA.FindField(r.fieldAName)
		}
		if r.modelB != nil {
			r.fieldB = r.modelB.FindField(r.fieldBName)
		}
	})
}

// ModelA returns the model on side A.
func (r *Relation) ModelA() *Model { r.resolve(); return r.modelA }

// ModelB returns the model on side B.
func (r *Relation) ModelB() *Model { r.resolve(); return r.modelB }

// FieldA returns side A's relation field.
func (r *Relation) FieldA() *Field { r.resolve(); return r.fieldA }

// FieldB returns side B's relation field.
func (r *Relation) FieldB() *Field { r.resolve(); return r.fieldB }

// ModelForSide returns the model on the given side.
func (r *Relation) ModelForSide(side RelationSide) *Model {
	if side == SideA {
		return r.ModelA()
	}
	return r.ModelB()
}

// FieldForSide returns the relation field on the given side.
func (r *Relation) FieldForSide(side RelationSide) *Field {
	if side == SideA {
		return r.FieldA()
	}
	return r.FieldB()
}

// OnDeleteForSide returns the on-delete strategy of the given side.
func (r *Relation) OnDeleteForSide(side RelationSide) OnDelete {
	if side == SideA {
		return r.AOnDelete
	}
	return r.BOnDelete
}

// IsSelfRelation reports whether both sides are the same model.
func (r *Relation) IsSelfRelation() bool {
	return r.ModelAName == r.ModelBName
}

// IsManyToMany reports whether both sides have list arity.
func (r *Relation) IsManyToMany() bool {
	return r.FieldA().IsList() && r.FieldB().IsList()
}

// IsOneToOne reports whether neither side has list arity.
func (r *Relation) IsOneToOne() bool {
	return !r.FieldA().IsList() && !r.FieldB().IsList()
}

// IsInline reports whether the relation is realized by an inline column.
func (r *Relation) IsInline() bool {
	_, ok := r.Manifestation.(Inline)
	return ok
}

// TableName returns the table that realizes the relation: the join table,
// or the participant table carrying the inline column.
func (r *Relation) TableName() string {
	switch m := r.Manifestation.(type) {
	case Inline:
		model, _ := r.dm.FindModel(m.InTableOfModel)
		return model.DBName()
	case RelationTable:
		return m.Table
	default:
		return ""
	}
}

// ColumnForSide returns the column of the realizing table that holds ids of
// the model on the given side.
func (r *Relation) ColumnForSide(side RelationSide) string {
	switch m := r.Manifestation.(type) {
	case Inline:
		if side == r.inlineSide {
			// The holding table identifies its own side by primary key.
			id, err := r.ModelForSide(side).IDField()
			if err != nil {
				return ""
			}
			return id.DBName()
		}
		return m.ReferencingColumn
	case RelationTable:
		if side == SideA {
			return m.ColumnA
		}
		return m.ColumnB
	default:
		return ""
	}
}

// InlineHolderSide returns the side whose table carries the inline column.
func (r *Relation) InlineHolderSide() RelationSide {
	return r.inlineSide
}

// RelationField is one directed end of a resolved relation: the field on
// Model traversing towards the related model.
type RelationField struct {
	Model    *Model
	Field    *Field
	Relation *Relation
	Side     RelationSide
}

// RelatedModel returns the model on the opposite side.
func (rf *RelationField) RelatedModel() *Model {
	return rf.Relation.ModelForSide(rf.Side.Opposite())
}

// RelatedField returns the relation field on the opposite side.
func (rf *RelationField) RelatedField() *Field {
	return rf.Relation.FieldForSide(rf.Side.Opposite())
}

// RelationColumn returns the realizing-table column holding ids of this
// side's model.
func (rf *RelationField) RelationColumn() string {
	return rf.Relation.ColumnForSide(rf.Side)
}

// OppositeColumn returns the realizing-table column holding ids of the
// related model.
func (rf *RelationField) OppositeColumn() string {
	return rf.Relation.ColumnForSide(rf.Side.Opposite())
}

// relationCache lazily derives the relation list once per datamodel.
// Concurrent initializers converge on the same value.
type relationCache struct {
	dm        *Datamodel
	once      sync.Once
	relations []*Relation
}

func newRelationCache(dm *Datamodel) *relationCache {
	return &relationCache{dm: dm}
}

func (c *relationCache) get() []*Relation {
	c.once.Do(func() {
		c.relations = calculateRelations(c.dm)
	})
	return c.relations
}

// Relations returns all resolved relations of the datamodel. The list is
// derived on first use and cached.
func (dm *Datamodel) Relations() []*Relation {
	return dm.relations.get()
}

// RelationFieldFor resolves the directed relation end for a model's field.
func (dm *Datamodel) RelationFieldFor(modelName, fieldName string) (*RelationField, error) {
	model, ok := dm.FindModel(modelName)
	if !ok {
		return nil, fmt.Errorf("model %s not found", modelName)
	}
	field := model.FindField(fieldName)
	if field == nil {
		return nil, fmt.Errorf("field %s not found on model %s", fieldName, modelName)
	}
	if field.RelationInfo() == nil {
		return nil, fmt.Errorf("field %s.%s is not a relation field", modelName, fieldName)
	}

	for _, rel := range dm.Relations() {
		if rel.ModelAName == modelName && rel.fieldAName == fieldName {
			return &RelationField{Model: model, Field: field, Relation: rel, Side: SideA}, nil
		}
		if rel.ModelBName == modelName && rel.fieldBName == fieldName {
			return &RelationField{Model: model, Field: field, Relation: rel, Side: SideB}, nil
		}
	}

	return nil, fmt.Errorf("no resolved relation for field %s.%s", modelName, fieldName)
}

// calculateRelations derives one Relation per undirected pair of mutually
// referencing relation fields.
func calculateRelations(dm *Datamodel) []*Relation {
	var relations []*Relation
	seen := make(map[string]bool)

	for _, model := range dm.Models() {
		for _, field := range model.RelationFields() {
			info := field.RelationInfo()
			target, ok := dm.FindModel(info.To)
			if !ok {
				continue
			}
			counterpart := target.RelatedField(model.Name, info.Name, field.Name)
			if counterpart == nil {
				continue
			}

			var modelA, modelB *Model
			var fieldA, fieldB *Field
			switch {
			case model.Name == target.Name:
				modelA, modelB = model, model
				fieldA, fieldB = field, counterpart
				if fieldA.Name > fieldB.Name {
					fieldA, fieldB = fieldB, fieldA
				}
			case model.Name < target.Name:
				modelA, modelB = model, target
				fieldA, fieldB = field, counterpart
			default:
				modelA, modelB = target, model
				fieldA, fieldB = counterpart, field
			}

			key := fmt.Sprintf("%s/%s/%s/%s/%s", modelA.Name, modelB.Name, info.Name, fieldA.Name, fieldB.Name)
			if seen[key] {
				continue
			}
			seen[key] = true

			name := info.Name
			if name == "" {
				name = canonicalRelationName(modelA.Name, modelB.Name)
			}

			rel := &Relation{
				Name:       name,
				ModelAName: modelA.Name,
				ModelBName: modelB.Name,
				AOnDelete:  relationOnDelete(fieldA),
				BOnDelete:  relationOnDelete(fieldB),
				dm:         dm,
				fieldAName: fieldA.Name,
				fieldBName: fieldB.Name,
			}
			rel.Manifestation, rel.inlineSide = chooseManifestation(name, modelA, modelB, fieldA, fieldB)
			relations = append(relations, rel)
		}
	}

	return relations
}

func relationOnDelete(f *Field) OnDelete {
	return f.RelationInfo().OnDelete
}

// chooseManifestation picks inline vs join-table per the relation shape.
func chooseManifestation(name string, modelA, modelB *Model, fieldA, fieldB *Field) (Manifestation, RelationSide) {
	inline := func(side RelationSide) (Manifestation, RelationSide) {
		model, field := modelA, fieldA
		if side == SideB {
			model, field = modelB, fieldB
		}
		return Inline{InTableOfModel: model.Name, ReferencingColumn: field.DBName()}, side
	}

	// Fields that reference concrete target fields always hold the column.
	if len(fieldA.RelationInfo().ToFields) > 0 {
		return inline(SideA)
	}
	if len(fieldB.RelationInfo().ToFields) > 0 {
		return inline(SideB)
	}

	switch {
	case fieldA.IsList() && fieldB.IsList():
		return RelationTable{Table: "_" + name, ColumnA: "A", ColumnB: "B"}, SideA
	case fieldA.IsList():
		return inline(SideB)
	case fieldB.IsList():
		return inline(SideA)
	case fieldA.IsRequired() && !fieldB.IsRequired():
		return inline(SideA)
	case fieldB.IsRequired() && !fieldA.IsRequired():
		return inline(SideB)
	default:
		// Tie-break: model A is the lexicographically smaller name.
		return inline(SideA)
	}
}

func canonicalRelationName(modelA, modelB string) string {
	return modelA + "To" + modelB
}
