// Package graphql turns a GraphQL query document into the executor's query
// trees. Serving the protocol over HTTP is out of scope; this is the
// translation layer only.
package graphql

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"

	"github.com/zoosky/prisma-engine/datamodel"
	"github.com/zoosky/prisma-engine/query"
)

// Translator builds query pairs for one datamodel.
type Translator struct {
	dm *datamodel.Datamodel
}

// NewTranslator creates a translator over a validated datamodel.
func NewTranslator(dm *datamodel.Datamodel) *Translator {
	return &Translator{dm: dm}
}

// Translate parses a query document and converts every top-level field into
// a query pair. Reads serialize directly; mutations run dependent with the
// mutation's selection set re-read by id.
func (t *Translator) Translate(doc string) ([]query.QueryPair, error) {
	parsed, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{Body: []byte(doc), Name: "query"}),
	})
	if err != nil {
		return nil, fmt.Errorf("parsing query document: %w", err)
	}

	var pairs []query.QueryPair
	for _, def := range parsed.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}

		for _, sel := range op.SelectionSet.Selections {
			field, ok := sel.(*ast.Field)
			if !ok {
				return nil, fmt.Errorf("unsupported selection kind %T", sel)
			}

			var pair query.QueryPair
			switch op.Operation {
			case "query":
				pair, err = t.translateRead(field)
			case "mutation":
				pair, err = t.translateWrite(field)
			default:
				err = fmt.Errorf("unsupported operation %q", op.Operation)
			}
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, pair)
		}
	}

	return pairs, nil
}

func (t *Translator) translateRead(field *ast.Field) (query.QueryPair, error) {
	name := field.Name.Value

	if model, ok := t.modelForPluralField(name); ok {
		q, err := t.manyRecordsQuery(model, field)
		if err != nil {
			return query.QueryPair{}, err
		}
		return query.QueryPair{Query: q, Strategy: query.Serialize{OutputType: name}}, nil
	}

	if model, ok := t.modelForSingularField(name); ok {
		q, err := t.recordQuery(model, field)
		if err != nil {
			return query.QueryPair{}, err
		}
		return query.QueryPair{Query: q, Strategy: query.Serialize{OutputType: name}}, nil
	}

	return query.QueryPair{}, fmt.Errorf("unknown query field %q", name)
}

func (t *Translator) translateWrite(field *ast.Field) (query.QueryPair, error) {
	name := field.Name.Value

	for _, prefix := range []string{"create", "update", "upsert", "delete", "updateMany", "deleteMany"} {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || rest == "" {
			continue
		}

		many := prefix == "updateMany" || prefix == "deleteMany"
		modelName := rest
		if many {
			modelName = strings.TrimSuffix(rest, "s")
		}
		model, found := t.dm.FindModel(modelName)
		if !found {
			continue
		}

		wq, err := t.writeQuery(prefix, model, field)
		if err != nil {
			return query.QueryPair{}, err
		}

		if many {
			return query.QueryPair{Query: wq, Strategy: query.Serialize{OutputType: name}}, nil
		}

		inner, err := t.followUpRead(model, field)
		if err != nil {
			return query.QueryPair{}, err
		}
		return query.QueryPair{Query: wq, Strategy: query.Dependent{Inner: inner}}, nil
	}

	return query.QueryPair{}, fmt.Errorf("unknown mutation field %q", name)
}

func (t *Translator) writeQuery(prefix string, model *datamodel.Model, field *ast.Field) (query.WriteQuery, error) {
	args := argumentMap(field)

	switch prefix {
	case "create":
		return t.createQuery(model, args["data"], true)

	case "update":
		finder, err := t.finderFromWhere(model, args["where"])
		if err != nil {
			return nil, err
		}
		recordArgs, listArgs, nested, err := t.writeData(model, args["data"])
		if err != nil {
			return nil, err
		}
		return &query.UpdateRecord{Finder: finder, Args: recordArgs, ListArgs: listArgs, Nested: nested}, nil

	case "upsert":
		finder, err := t.finderFromWhere(model, args["where"])
		if err != nil {
			return nil, err
		}
		create, err := t.createQuery(model, args["create"], true)
		if err != nil {
			return nil, err
		}
		updateArgs, updateLists, updateNested, err := t.writeData(model, args["update"])
		if err != nil {
			return nil, err
		}
		return &query.UpsertRecord{
			Finder: finder,
			Create: create.(*query.CreateRecord),
			Update: &query.UpdateRecord{Finder: finder, Args: updateArgs, ListArgs: updateLists, Nested: updateNested},
		}, nil

	case "delete":
		finder, err := t.finderFromWhere(model, args["where"])
		if err != nil {
			return nil, err
		}
		return &query.DeleteRecord{Finder: finder}, nil

	case "updateMany":
		filter, err := t.filterFromWhere(model, args["where"])
		if err != nil {
			return nil, err
		}
		recordArgs, listArgs, _, err := t.writeData(model, args["data"])
		if err != nil {
			return nil, err
		}
		return &query.UpdateManyRecords{Model: model, Filter: filter, Args: recordArgs, ListArgs: listArgs}, nil

	case "deleteMany":
		filter, err := t.filterFromWhere(model, args["where"])
		if err != nil {
			return nil, err
		}
		return &query.DeleteManyRecords{Model: model, Filter: filter}, nil

	default:
		return nil, fmt.Errorf("unknown write prefix %q", prefix)
	}
}

func (t *Translator) createQuery(model *datamodel.Model, data ast.Value, root bool) (query.WriteQuery, error) {
	args, listArgs, nested, err := t.writeData(model, data)
	if err != nil {
		return nil, err
	}
	if root {
		markTopIsCreate(&nested)
	}
	return &query.CreateRecord{Model: model, Args: args, ListArgs: listArgs, Nested: nested}, nil
}

// writeData splits a data object into scalar assignments, scalar-list
// replacements, and nested relation writes.
func (t *Translator) writeData(model *datamodel.Model, data ast.Value) (query.RecordArgs, []query.ListArg, query.NestedWrites, error) {
	var recordArgs query.RecordArgs
	var listArgs []query.ListArg
	var nested query.NestedWrites

	object, ok := data.(*ast.ObjectValue)
	if !ok {
		if data == nil {
			return recordArgs, nil, nested, nil
		}
		return recordArgs, nil, nested, fmt.Errorf("model %s: data must be an object", model.Name)
	}

	for _, objField := range object.Fields {
		name := objField.Name.Value
		field := model.FindField(name)
		if field == nil {
			return recordArgs, nil, nested, fmt.Errorf("unknown field %s on model %s", name, model.Name)
		}

		switch {
		case field.RelationInfo() != nil:
			rf, err := t.dm.RelationFieldFor(model.Name, name)
			if err != nil {
				return recordArgs, nil, nested, err
			}
			if err := t.nestedWrites(rf, objField.Value, &nested); err != nil {
				return recordArgs, nil, nested, err
			}

		case field.IsList():
			values, err := literalList(objField.Value)
			if err != nil {
				return recordArgs, nil, nested, fmt.Errorf("field %s: %w", name, err)
			}
			listArgs = append(listArgs, query.ListArg{Field: name, Values: values})

		default:
			recordArgs.Set(name, literalValue(objField.Value))
		}
	}

	return recordArgs, listArgs, nested, nil
}

// nestedWrites reads the operation bag of one relation field: create,
// connect, set, disconnect, delete, update, upsert, updateMany, deleteMany.
func (t *Translator) nestedWrites(rf *datamodel.RelationField, value ast.Value, out *query.NestedWrites) error {
	object, ok := value.(*ast.ObjectValue)
	if !ok {
		return fmt.Errorf("relation field %s: expected an operation object", rf.Field.Name)
	}

	related := rf.RelatedModel()

	for _, op := range object.Fields {
		switch op.Name.Value {
		case "create":
			for _, item := range asList(op.Value) {
				args, listArgs, nested, err := t.writeData(related, item)
				if err != nil {
					return err
				}
				out.Creates = append(out.Creates, &query.NestedCreate{
					RelationField: rf, Args: args, ListArgs: listArgs, Nested: nested,
				})
			}

		case "connect":
			for _, item := range asList(op.Value) {
				finder, err := t.finderFromWhere(related, item)
				if err != nil {
					return err
				}
				out.Connects = append(out.Connects, &query.NestedConnect{RelationField: rf, Finder: finder})
			}

		case "set":
			set := &query.NestedSet{RelationField: rf}
			for _, item := range asList(op.Value) {
				finder, err := t.finderFromWhere(related, item)
				if err != nil {
					return err
				}
				set.Finders = append(set.Finders, finder)
			}
			out.Sets = append(out.Sets, set)

		case "disconnect":
			for _, item := range asList(op.Value) {
				finder, err := t.optionalFinder(related, item)
				if err != nil {
					return err
				}
				out.Disconnects = append(out.Disconnects, &query.NestedDisconnect{RelationField: rf, Finder: finder})
			}

		case "delete":
			for _, item := range asList(op.Value) {
				finder, err := t.optionalFinder(related, item)
				if err != nil {
					return err
				}
				out.Deletes = append(out.Deletes, &query.NestedDelete{RelationField: rf, Finder: finder})
			}

		case "update":
			for _, item := range asList(op.Value) {
				where, data := whereAndData(item)
				finder, err := t.optionalFinder(related, where)
				if err != nil {
					return err
				}
				args, listArgs, nested, err := t.writeData(related, data)
				if err != nil {
					return err
				}
				out.Updates = append(out.Updates, &query.NestedUpdate{
					RelationField: rf, Finder: finder, Args: args, ListArgs: listArgs, Nested: nested,
				})
			}

		case "upsert":
			for _, item := range asList(op.Value) {
				object, ok := item.(*ast.ObjectValue)
				if !ok {
					return fmt.Errorf("upsert on %s: expected an object", rf.Field.Name)
				}
				parts := objectFields(object)

				finder, err := t.optionalFinder(related, parts["where"])
				if err != nil {
					return err
				}
				createArgs, createLists, createNested, err := t.writeData(related, parts["create"])
				if err != nil {
					return err
				}
				updateArgs, updateLists, updateNested, err := t.writeData(related, parts["update"])
				if err != nil {
					return err
				}
				out.Upserts = append(out.Upserts, &query.NestedUpsert{
					RelationField: rf,
					Finder:        finder,
					Create:        &query.NestedCreate{RelationField: rf, Args: createArgs, ListArgs: createLists, Nested: createNested},
					Update:        &query.NestedUpdate{RelationField: rf, Finder: finder, Args: updateArgs, ListArgs: updateLists, Nested: updateNested},
				})
			}

		case "updateMany":
			for _, item := range asList(op.Value) {
				where, data := whereAndData(item)
				filter, err := t.filterFromWhere(related, where)
				if err != nil {
					return err
				}
				args, listArgs, _, err := t.writeData(related, data)
				if err != nil {
					return err
				}
				out.UpdateManys = append(out.UpdateManys, &query.NestedUpdateMany{
					RelationField: rf, Filter: filter, Args: args, ListArgs: listArgs,
				})
			}

		case "deleteMany":
			for _, item := range asList(op.Value) {
				filter, err := t.filterFromWhere(related, item)
				if err != nil {
					return err
				}
				out.DeleteManys = append(out.DeleteManys, &query.NestedDeleteMany{RelationField: rf, Filter: filter})
			}

		default:
			return fmt.Errorf("unknown nested operation %q on %s", op.Name.Value, rf.Field.Name)
		}
	}

	return nil
}

// markTopIsCreate relaxes connection checks for writes nested directly under
// a root create.
func markTopIsCreate(nested *query.NestedWrites) {
	for _, c := range nested.Creates {
		c.TopIsCreate = true
	}
	for _, c := range nested.Connects {
		c.TopIsCreate = true
	}
}
