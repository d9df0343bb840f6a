package datamodel

import (
	"fmt"
	"strings"

	"github.com/zoosky/prisma-engine/parser"
)

// ValidationKind distinguishes validation failures without string matching.
type ValidationKind int

const (
	KindMultipleIDFields ValidationKind = iota
	KindMissingIDCriterion
	KindInvalidIDField
	KindAmbiguousRelation
	KindEmbeddedBackRelation
)

func (k ValidationKind) String() string {
	switch k {
	case KindMultipleIDFields:
		return "multiple-id-fields"
	case KindMissingIDCriterion:
		return "missing-id-criterion"
	case KindInvalidIDField:
		return "invalid-id-field"
	case KindAmbiguousRelation:
		return "ambiguous-relation"
	case KindEmbeddedBackRelation:
		return "embedded-back-relation"
	default:
		return fmt.Sprintf("ValidationKind(%d)", int(k))
	}
}

// ValidationError is a single datamodel violation, with the source span of
// the offending declaration so callers can render it with context.
type ValidationError struct {
	Kind    ValidationKind
	Message string
	Model   string
	Field   string // empty for model-level errors
	Span    parser.Span
}

func (e *ValidationError) Error() string {
	loc := fmt.Sprintf("line %d", e.Span.Line)
	if e.Field != "" {
		return fmt.Sprintf("%s (model %s, field %s, %s)", e.Message, e.Model, e.Field, loc)
	}
	return fmt.Sprintf("%s (model %s, %s)", e.Message, e.Model, loc)
}

// ErrorList accumulates validation errors. Validation never stops at the
// first violation.
type ErrorList struct {
	Errors []*ValidationError
}

func (l *ErrorList) Error() string {
	msgs := make([]string, len(l.Errors))
	for i, e := range l.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

func (l *ErrorList) push(e *ValidationError) {
	l.Errors = append(l.Errors, e)
}

// HasErrors reports whether any violation was recorded.
func (l *ErrorList) HasErrors() bool {
	return len(l.Errors) > 0
}

// InvariantError signals that the IR and the AST disagree. It is a bug in
// the construction pipeline, never a user error.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return "internal invariant violated: " + e.Message
}

const stateError = "failed lookup of model or field during validation; the internal representation was mutated incorrectly"

// Validate checks the datamodel against the AST it was built from. It
// returns an *ErrorList carrying every violation found, an *InvariantError
// on internal lookup failures, or nil on success.
func Validate(ast *parser.Schema, dm *Datamodel) error {
	errs := &ErrorList{}

	for _, model := range dm.Models() {
		astModel := ast.FindModel(model.Name)
		if astModel == nil {
			return &InvariantError{Message: stateError}
		}

		if err := validateModelHasID(astModel, model); err != nil {
			errs.push(err)
		}
		if err, fatal := validateIDFieldsValid(ast, model); fatal != nil {
			return fatal
		} else if err != nil {
			errs.push(err)
		}
		if err, fatal := validateRelationsNotAmbiguous(ast, model); fatal != nil {
			return fatal
		} else if err != nil {
			errs.push(err)
		}
		if err, fatal := validateEmbeddedHasNoBackRelation(ast, dm, model); fatal != nil {
			return fatal
		} else if err != nil {
			errs.push(err)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateModelHasID(astModel *parser.Model, model *Model) *ValidationError {
	if model.IsRelationTable {
		// Relation tables are exempt from the id rule.
		return nil
	}

	singular := len(model.SingularIDFields())
	composite := len(model.IDFields) > 0

	switch {
	case singular > 1:
		return &ValidationError{
			Kind:    KindMultipleIDFields,
			Message: "At most one field must be marked as the id field with the `@id` directive.",
			Model:   model.Name,
			Span:    astModel.Span,
		}
	case singular == 1 && composite, singular == 0 && !composite:
		return &ValidationError{
			Kind:    KindMissingIDCriterion,
			Message: "Each model must have exactly one id criteria. Either mark a single field with `@id` or add a multi field id criterion with `@@id([])` to the model.",
			Model:   model.Name,
			Span:    astModel.Span,
		}
	default:
		return nil
	}
}

func validateIDFieldsValid(ast *parser.Schema, model *Model) (*ValidationError, error) {
	for _, idField := range model.SingularIDFields() {
		valid := false

		base, isBase := idField.Type.(BaseType)
		if isBase && idField.Arity == Required {
			switch base.Scalar {
			case TypeInt:
				valid = idField.DefaultValue == nil
			case TypeString:
				if expr, ok := idField.DefaultValue.(Expression); ok {
					valid = (expr.Name == "cuid" || expr.Name == "uuid") &&
						expr.ReturnType == TypeString && len(expr.Args) == 0
				}
			}
		}

		if !valid {
			astField := ast.FindField(model.Name, idField.Name)
			if astField == nil {
				return nil, &InvariantError{Message: stateError}
			}
			return &ValidationError{
				Kind:    KindInvalidIDField,
				Message: "Invalid ID field. ID field must be one of: Int @id, String @id @default(cuid()), String @id @default(uuid()).",
				Model:   model.Name,
				Field:   idField.Name,
				Span:    astField.Span,
			}, nil
		}
	}

	return nil, nil
}

func validateRelationsNotAmbiguous(ast *parser.Schema, model *Model) (*ValidationError, error) {
	ambiguous := func(field *Field, message string) (*ValidationError, error) {
		astField := ast.FindField(model.Name, field.Name)
		if astField == nil {
			return nil, &InvariantError{Message: stateError}
		}
		return &ValidationError{
			Kind:    KindAmbiguousRelation,
			Message: message,
			Model:   model.Name,
			Field:   field.Name,
			Span:    astField.Span,
		}, nil
	}

	for _, fieldA := range model.Fields {
		relA := fieldA.RelationInfo()
		if relA == nil {
			continue
		}
		for _, fieldB := range model.Fields {
			if fieldA == fieldB {
				continue
			}
			relB := fieldB.RelationInfo()
			if relB == nil {
				continue
			}

			if relA.To != model.Name && relB.To != model.Name {
				// Two fields pointing at the same foreign model under the
				// same (possibly empty) relation name cannot be told apart.
				if relA.To == relB.To && relA.Name == relB.Name {
					return ambiguous(fieldA, "Ambiguous relation detected.")
				}
			} else if relA.To == model.Name && relB.To == model.Name {
				// Self relations: three same-named fields are ambiguous.
				for _, fieldC := range model.Fields {
					if fieldC == fieldA || fieldC == fieldB {
						continue
					}
					relC := fieldC.RelationInfo()
					if relC == nil {
						continue
					}
					if relC.To == model.Name && relA.Name == relB.Name && relA.Name == relC.Name {
						return ambiguous(fieldA, "Ambiguous self relation detected.")
					}
				}

				// Two unnamed self relation fields are ambiguous as well.
				if relA.Name == "" && relB.Name == "" {
					return ambiguous(fieldA, "Ambiguous self relation detected.")
				}
			}
		}
	}

	return nil, nil
}

// validateEmbeddedHasNoBackRelation ensures embedded models do not carry
// back-relation fields to their parents.
//
// TODO: confirm this rule matches the query engine's expectations for
// embedded documents.
func validateEmbeddedHasNoBackRelation(ast *parser.Schema, dm *Datamodel, model *Model) (*ValidationError, error) {
	if !model.IsEmbedded {
		return nil, nil
	}

	for _, field := range model.Fields {
		if field.IsGenerated {
			continue
		}
		rel := field.RelationInfo()
		if rel == nil {
			continue
		}

		related, ok := dm.FindModel(rel.To)
		if !ok {
			return nil, &InvariantError{Message: stateError}
		}
		relatedField := related.RelatedField(model.Name, rel.Name, field.Name)
		if relatedField == nil {
			continue
		}

		if len(rel.ToFields) == 0 && !relatedField.IsGenerated {
			astField := ast.FindField(model.Name, field.Name)
			if astField == nil {
				return nil, &InvariantError{Message: stateError}
			}
			return &ValidationError{
				Kind:    KindEmbeddedBackRelation,
				Message: "Embedded models cannot have back relation fields.",
				Model:   model.Name,
				Field:   field.Name,
				Span:    astField.Span,
			}, nil
		}
	}

	return nil, nil
}
