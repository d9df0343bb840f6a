package sqlschema

import (
	"github.com/zoosky/prisma-engine/datamodel"
)

// migrationValue lowers a field's default to the literal written into the
// SQL column definition. Expression defaults (cuid(), uuid(), now()) have no
// SQL literal form; they fall back to the type's zero value for migration
// purposes. Id fields never receive a default.
func migrationValue(dm *datamodel.Datamodel, f *datamodel.Field) (string, bool) {
	if f.IsID() {
		return "", false
	}

	value := f.DefaultValue
	if _, isExpr := value.(datamodel.Expression); isExpr || value == nil {
		value = defaultMigrationValue(dm, f)
	}
	if value == nil {
		return "", false
	}

	return datamodel.Render(value), true
}

func defaultMigrationValue(dm *datamodel.Datamodel, f *datamodel.Field) datamodel.ScalarValue {
	switch t := f.Type.(type) {
	case datamodel.BaseType:
		return datamodel.ZeroValue(t.Scalar)
	case datamodel.EnumType:
		enum, ok := dm.FindEnum(t.Name)
		if !ok || len(enum.Values) == 0 {
			return nil
		}
		return datamodel.StringValue(enum.Values[0])
	case datamodel.RelationType:
		return nil
	default:
		return nil
	}
}
