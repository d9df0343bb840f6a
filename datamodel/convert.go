package datamodel

import (
	"fmt"
	"strings"
	"time"

	"github.com/zoosky/prisma-engine/parser"
)

// Convert builds the IR from a parsed AST. The result is unvalidated; run
// Validate before deriving schemas or executing queries against it.
func Convert(ast *parser.Schema) (*Datamodel, error) {
	dm := New()

	for _, e := range ast.Enums {
		enum := &Enum{
			Name:          e.Name,
			Values:        append([]string(nil), e.Values...),
			Documentation: e.Documentation,
		}
		dm.AddEnum(enum)
	}

	for _, astModel := range ast.Models {
		model, err := convertModel(ast, astModel)
		if err != nil {
			return nil, err
		}
		dm.AddModel(model)
	}

	addMissingBackRelations(dm)

	return dm, nil
}

func convertModel(ast *parser.Schema, astModel *parser.Model) (*Model, error) {
	model := &Model{
		Name:          astModel.Name,
		Documentation: astModel.Documentation,
	}

	for _, astField := range astModel.Fields {
		field, err := convertField(ast, astModel, astField)
		if err != nil {
			return nil, err
		}
		model.Fields = append(model.Fields, field)
	}

	for _, attr := range astModel.Attributes {
		switch attr.Name {
		case "id":
			names, err := fieldNameList(attr.Positional(0))
			if err != nil {
				return nil, fmt.Errorf("model %s: @@id: %w", model.Name, err)
			}
			model.IDFields = names
		case "index", "unique":
			names, err := fieldNameList(attr.Positional(0))
			if err != nil {
				return nil, fmt.Errorf("model %s: @@%s: %w", model.Name, attr.Name, err)
			}
			index := IndexDefinition{Fields: names, Unique: attr.Name == "unique"}
			if v, ok := attr.Named("name").(*parser.StringValue); ok {
				index.Name = v.Value
			}
			model.Indexes = append(model.Indexes, index)
		case "map":
			if v, ok := attr.Positional(0).(*parser.StringValue); ok {
				model.DatabaseName = strings.ToLower(v.Value)
			}
		case "embedded":
			model.IsEmbedded = true
		case "relationTable":
			model.IsRelationTable = true
		}
	}

	return model, nil
}

func convertField(ast *parser.Schema, astModel *parser.Model, astField *parser.Field) (*Field, error) {
	field := &Field{
		Name:          astField.Name,
		Documentation: astField.Documentation,
	}

	switch {
	case astField.Type.List:
		field.Arity = List
	case astField.Type.Optional:
		field.Arity = Optional
	default:
		field.Arity = Required
	}

	typeName := astField.Type.Name
	if scalar, ok := ScalarTypeFromName(typeName); ok {
		field.Type = BaseType{Scalar: scalar}
	} else if ast.FindEnum(typeName) != nil {
		field.Type = EnumType{Name: typeName}
	} else if ast.FindModel(typeName) != nil {
		field.Type = RelationType{Info: &RelationInfo{To: typeName}}
	} else {
		return nil, fmt.Errorf("model %s, field %s: unknown type %q",
			astModel.Name, astField.Name, typeName)
	}

	for _, attr := range astField.Attributes {
		switch attr.Name {
		case "id":
			field.IDInfo = &IDInfo{Strategy: IDStrategyAuto}
		case "unique":
			field.IsUnique = true
		case "updatedAt":
			field.IsUpdatedAt = true
		case "map":
			if v, ok := attr.Positional(0).(*parser.StringValue); ok {
				field.DatabaseName = strings.ToLower(v.Value)
			}
		case "default":
			value, err := convertDefault(field, attr.Positional(0))
			if err != nil {
				return nil, fmt.Errorf("model %s, field %s: %w", astModel.Name, astField.Name, err)
			}
			field.DefaultValue = value
		case "relation":
			info := field.RelationInfo()
			if info == nil {
				return nil, fmt.Errorf("model %s, field %s: @relation on a non-relation field",
					astModel.Name, astField.Name)
			}
			applyRelationAttribute(info, attr)
		}
	}

	return field, nil
}

func applyRelationAttribute(info *RelationInfo, attr *parser.Attribute) {
	if v, ok := attr.Positional(0).(*parser.StringValue); ok {
		info.Name = v.Value
	}
	if v, ok := attr.Named("name").(*parser.StringValue); ok {
		info.Name = v.Value
	}
	if names, err := fieldNameList(attr.Named("references")); err == nil {
		info.ToFields = names
	}
	if v, ok := attr.Named("onDelete").(*parser.ConstantValue); ok {
		if v.Name == "Cascade" {
			info.OnDelete = Cascade
		}
	}
}

func convertDefault(field *Field, v parser.Value) (ScalarValue, error) {
	if v == nil {
		return nil, fmt.Errorf("@default requires an argument")
	}

	switch value := v.(type) {
	case *parser.FunctionValue:
		return convertExpression(value)
	case *parser.StringValue:
		return StringValue(value.Value), nil
	case *parser.NumberValue:
		return ParseNumber(value.Raw)
	case *parser.BoolValue:
		return BooleanValue(value.Value), nil
	case *parser.ConstantValue:
		if _, ok := field.Type.(EnumType); ok {
			return ConstantLiteral(value.Name), nil
		}
		return nil, fmt.Errorf("constant default %q on a non-enum field", value.Name)
	case *parser.ListValue:
		return nil, fmt.Errorf("list defaults are not supported")
	default:
		return nil, fmt.Errorf("unsupported default value")
	}
}

func convertExpression(fn *parser.FunctionValue) (ScalarValue, error) {
	switch fn.Name {
	case "cuid", "uuid":
		return Expression{Name: fn.Name, ReturnType: TypeString}, nil
	case "now":
		return Expression{Name: fn.Name, ReturnType: TypeDateTime}, nil
	case "autoincrement":
		return Expression{Name: fn.Name, ReturnType: TypeInt}, nil
	case "env":
		return nil, fmt.Errorf("env() is not a valid field default")
	default:
		return nil, fmt.Errorf("unknown default function %s()", fn.Name)
	}
}

func fieldNameList(v parser.Value) ([]string, error) {
	list, ok := v.(*parser.ListValue)
	if !ok {
		return nil, fmt.Errorf("expected a field list")
	}
	names := make([]string, 0, len(list.Elements))
	for _, el := range list.Elements {
		c, ok := el.(*parser.ConstantValue)
		if !ok {
			return nil, fmt.Errorf("expected a field name")
		}
		names = append(names, c.Name)
	}
	return names, nil
}

// addMissingBackRelations generates a counterpart list field for every
// relation field whose target model does not declare one, so that every
// relation has two sides. Generated fields are marked IsGenerated; reads and
// writes resolve them like declared relation fields.
func addMissingBackRelations(dm *Datamodel) {
	for _, model := range dm.Models() {
		for _, field := range model.RelationFields() {
			info := field.RelationInfo()
			target, ok := dm.FindModel(info.To)
			if !ok {
				continue
			}
			if target.RelatedField(model.Name, info.Name, field.Name) != nil {
				continue
			}

			name := backRelationFieldName(target, model.Name)
			target.Fields = append(target.Fields, &Field{
				Name:        name,
				Type:        RelationType{Info: &RelationInfo{To: model.Name, Name: info.Name}},
				Arity:       List,
				IsGenerated: true,
			})
		}
	}
}

func backRelationFieldName(target *Model, sourceModel string) string {
	base := strings.ToLower(sourceModel[:1]) + sourceModel[1:] + "s"
	name := base
	for i := 2; target.FindField(name) != nil; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	return name
}

// UpdatedAtNow returns the value written into @updatedAt columns.
func UpdatedAtNow() DateTimeValue {
	return DateTimeValue(time.Now().UTC())
}
