package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/zoosky/prisma-engine/connector"
	"github.com/zoosky/prisma-engine/datamodel"
)

// replaceExistingChild enforces the single-child invariant of a non-list
// parent side before a nested create: an existing child whose own side
// requires the relation cannot be orphaned; an optional one is detached.
func (w writeExecutor) replaceExistingChild(ctx context.Context, rf *datamodel.RelationField, parentID connector.RecordID, topIsCreate bool) error {
	if topIsCreate {
		// A parent created in this transaction has no links yet.
		return nil
	}

	ids, err := w.tx.FilterIDsByParents(ctx, rf, []connector.RecordID{parentID}, nil)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if related := rf.RelatedField(); related != nil && !related.IsList() && related.IsRequired() {
		return &connector.RelationViolationError{Relation: rf.Relation.Name}
	}

	_, err = w.tx.Execute(ctx, w.builder().RemoveRelationByParent(rf, parentID))
	return err
}

// connectRequiredCheck guards connect and set: in a one-to-one relation
// where both sides are required, linking a new child would orphan the
// currently linked one.
func (w writeExecutor) connectRequiredCheck(ctx context.Context, rf *datamodel.RelationField, parentID connector.RecordID, topIsCreate bool) error {
	related := rf.RelatedField()
	if rf.Field.IsList() || related == nil || related.IsList() {
		return nil
	}
	if !rf.Field.IsRequired() || !related.IsRequired() {
		return nil
	}
	if topIsCreate {
		return nil
	}

	ids, err := w.tx.FilterIDsByParents(ctx, rf, []connector.RecordID{parentID}, nil)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		return &connector.RelationViolationError{Relation: rf.Relation.Name}
	}
	return nil
}

// detachForNewLink removes links a new connect would conflict with: the
// parent's previous child when the parent side is singular, and the child's
// previous parent when the child side is singular.
func (w writeExecutor) detachForNewLink(ctx context.Context, rf *datamodel.RelationField, parentID, childID connector.RecordID) error {
	if !rf.Field.IsList() {
		if _, err := w.tx.Execute(ctx, w.builder().RemoveRelationByParent(rf, parentID)); err != nil {
			return err
		}
	}

	if related := rf.RelatedField(); related != nil && !related.IsList() {
		if _, err := w.tx.Execute(ctx, w.builder().RemoveRelationByChild(rf, childID)); err != nil {
			return err
		}
	}

	return nil
}

// checkRelationViolations aborts a delete when another model's required
// relation still points at any of the doomed records.
func (w writeExecutor) checkRelationViolations(ctx context.Context, model *datamodel.Model, ids []connector.RecordID) error {
	dm := w.dm
	if dm == nil {
		return nil
	}

	for _, rel := range dm.Relations() {
		for _, side := range []datamodel.RelationSide{datamodel.SideA, datamodel.SideB} {
			if rel.ModelForSide(side) != model {
				continue
			}
			requiringField := rel.FieldForSide(side.Opposite())
			if requiringField == nil || requiringField.IsList() || !requiringField.IsRequired() {
				continue
			}

			stmt := relationLinkProbe(w.tx.Dialect(), rel, side, ids)
			linked, err := w.tx.SelectIDs(ctx, stmt)
			if err != nil {
				return err
			}
			if len(linked) > 0 {
				return &connector.RelationViolationError{Relation: rel.Name}
			}
		}
	}

	return nil
}

// relationLinkProbe selects one linked row of the realizing table for the
// given side's ids.
func relationLinkProbe(d connector.Dialect, rel *datamodel.Relation, side datamodel.RelationSide, ids []connector.RecordID) connector.Statement {
	col := d.QuoteIdentifier(rel.ColumnForSide(side))

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = d.Placeholder(i + 1)
		args[i] = id
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s) LIMIT 1",
		col, d.QuoteIdentifier(rel.TableName()), col, strings.Join(placeholders, ", "))
	return connector.Statement{SQL: sql, Args: args}
}
