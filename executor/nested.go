package executor

import (
	"context"
	"errors"

	"github.com/zoosky/prisma-engine/connector"
	"github.com/zoosky/prisma-engine/datamodel"
	"github.com/zoosky/prisma-engine/query"
)

// executeNested recurses into a write's nested operations. The order across
// kinds is fixed and observable: creates, updates, upserts, deletes,
// connects, sets, disconnects, update-manys, delete-manys. The parent id
// propagates as the connecting id throughout.
func (w writeExecutor) executeNested(ctx context.Context, nested *query.NestedWrites, parentID connector.RecordID) error {
	for _, create := range nested.Creates {
		if err := w.nestedCreate(ctx, parentID, create); err != nil {
			return err
		}
	}

	for _, update := range nested.Updates {
		if err := w.nestedUpdate(ctx, parentID, update); err != nil {
			return err
		}
	}

	for _, upsert := range nested.Upserts {
		if err := w.nestedUpsert(ctx, parentID, upsert); err != nil {
			return err
		}
	}

	for _, del := range nested.Deletes {
		if err := w.nestedDelete(ctx, parentID, del); err != nil {
			return err
		}
	}

	for _, connect := range nested.Connects {
		if err := w.nestedConnect(ctx, parentID, connect); err != nil {
			return err
		}
	}

	for _, set := range nested.Sets {
		if err := w.nestedSet(ctx, parentID, set); err != nil {
			return err
		}
	}

	for _, disconnect := range nested.Disconnects {
		if err := w.nestedDisconnect(ctx, parentID, disconnect); err != nil {
			return err
		}
	}

	for _, updateMany := range nested.UpdateManys {
		if err := w.nestedUpdateMany(ctx, parentID, updateMany); err != nil {
			return err
		}
	}

	for _, deleteMany := range nested.DeleteManys {
		if err := w.nestedDeleteMany(ctx, parentID, deleteMany); err != nil {
			return err
		}
	}

	return nil
}

func (w writeExecutor) nestedCreate(ctx context.Context, parentID connector.RecordID, nc *query.NestedCreate) error {
	rf := nc.RelationField
	child := rf.RelatedModel()

	if !rf.Field.IsList() {
		if err := w.replaceExistingChild(ctx, rf, parentID, nc.TopIsCreate); err != nil {
			return err
		}
	}

	// An inline column in the child's table is filled directly by the
	// insert; every other manifestation links after the fact.
	linkedInline := false
	if _, inline := rf.Relation.Manifestation.(datamodel.Inline); inline && rf.Relation.InlineHolderSide() == rf.Side.Opposite() {
		if back := rf.RelatedField(); back != nil {
			nc.Args.Set(back.Name, parentID)
			linkedInline = true
		}
	}

	childID, err := w.createRecord(ctx, child, &nc.Args, nc.ListArgs)
	if err != nil {
		return err
	}

	if !linkedInline {
		if _, err := w.tx.Execute(ctx, w.builder().RelationTableInsert(rf, parentID, childID)); err != nil {
			return err
		}
	}

	return w.executeNested(ctx, &nc.Nested, childID)
}

func (w writeExecutor) nestedUpdate(ctx context.Context, parentID connector.RecordID, nu *query.NestedUpdate) error {
	rf := nu.RelationField

	childID, err := w.tx.FindIDByParent(ctx, rf, parentID, nu.Finder)
	if err != nil {
		return err
	}

	if err := w.updateRecord(ctx, rf.RelatedModel(), childID, &nu.Args, nu.ListArgs); err != nil {
		return err
	}

	return w.executeNested(ctx, &nu.Nested, childID)
}

// nestedUpsert dispatches to the nested update when the child is connected,
// and to the nested create when FindIDByParent reports the records as not
// connected. Any other error aborts the write.
func (w writeExecutor) nestedUpsert(ctx context.Context, parentID connector.RecordID, upsert *query.NestedUpsert) error {
	_, err := w.tx.FindIDByParent(ctx, upsert.RelationField, parentID, upsert.Finder)

	var notConnected *connector.RecordsNotConnectedError
	switch {
	case err == nil:
		return w.nestedUpdate(ctx, parentID, upsert.Update)
	case errors.As(err, &notConnected):
		return w.nestedCreate(ctx, parentID, upsert.Create)
	default:
		return err
	}
}

func (w writeExecutor) nestedDelete(ctx context.Context, parentID connector.RecordID, nd *query.NestedDelete) error {
	rf := nd.RelationField

	childID, err := w.tx.FindIDByParent(ctx, rf, parentID, nd.Finder)
	if err != nil {
		return err
	}

	return w.deleteByIDs(ctx, rf.RelatedModel(), []connector.RecordID{childID})
}

func (w writeExecutor) nestedConnect(ctx context.Context, parentID connector.RecordID, nc *query.NestedConnect) error {
	rf := nc.RelationField

	if err := w.connectRequiredCheck(ctx, rf, parentID, nc.TopIsCreate); err != nil {
		return err
	}

	childID, err := w.tx.FindID(ctx, nc.Finder)
	if err != nil {
		return err
	}

	if err := w.detachForNewLink(ctx, rf, parentID, childID); err != nil {
		return err
	}

	_, err = w.tx.Execute(ctx, w.builder().RelationTableInsert(rf, parentID, childID))
	return err
}

func (w writeExecutor) nestedSet(ctx context.Context, parentID connector.RecordID, ns *query.NestedSet) error {
	rf := ns.RelationField

	if err := w.connectRequiredCheck(ctx, rf, parentID, false); err != nil {
		return err
	}

	// Remove all current links from the parent, then connect each child.
	if _, err := w.tx.Execute(ctx, w.builder().RemoveRelationByParent(rf, parentID)); err != nil {
		return err
	}

	related := rf.RelatedField()
	for _, finder := range ns.Finders {
		childID, err := w.tx.FindID(ctx, finder)
		if err != nil {
			return err
		}

		// A non-list child side can hold one parent; drop a prior link.
		if related != nil && !related.IsList() {
			if _, err := w.tx.Execute(ctx, w.builder().RemoveRelationByChild(rf, childID)); err != nil {
				return err
			}
		}

		if _, err := w.tx.Execute(ctx, w.builder().RelationTableInsert(rf, parentID, childID)); err != nil {
			return err
		}
	}

	return nil
}

func (w writeExecutor) nestedDisconnect(ctx context.Context, parentID connector.RecordID, nd *query.NestedDisconnect) error {
	rf := nd.RelationField

	// Disconnecting is never allowed when either non-list side requires the
	// relation to hold.
	related := rf.RelatedField()
	if (!rf.Field.IsList() && rf.Field.IsRequired()) ||
		(related != nil && !related.IsList() && related.IsRequired()) {
		return &connector.RelationViolationError{Relation: rf.Relation.Name}
	}

	if nd.Finder == nil {
		// Disconnect the single child currently linked.
		if _, err := w.tx.FindIDByParent(ctx, rf, parentID, nil); err != nil {
			return err
		}
		_, err := w.tx.Execute(ctx, w.builder().RemoveRelationByParent(rf, parentID))
		return err
	}

	childID, err := w.tx.FindID(ctx, nd.Finder)
	if err != nil {
		return err
	}
	if _, err := w.tx.FindIDByParent(ctx, rf, parentID, nd.Finder); err != nil {
		return err
	}

	_, err = w.tx.Execute(ctx, w.builder().RemoveRelationByParentAndChild(rf, parentID, childID))
	return err
}

func (w writeExecutor) nestedUpdateMany(ctx context.Context, parentID connector.RecordID, num *query.NestedUpdateMany) error {
	rf := num.RelationField

	ids, err := w.tx.FilterIDsByParents(ctx, rf, []connector.RecordID{parentID}, num.Filter)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	stmts, err := w.builder().UpdateMany(rf.RelatedModel(), ids, &num.Args)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := w.tx.Execute(ctx, stmt); err != nil {
			return err
		}
	}

	return w.writeScalarLists(ctx, rf.RelatedModel(), ids, num.ListArgs)
}

func (w writeExecutor) nestedDeleteMany(ctx context.Context, parentID connector.RecordID, ndm *query.NestedDeleteMany) error {
	rf := ndm.RelationField

	ids, err := w.tx.FilterIDsByParents(ctx, rf, []connector.RecordID{parentID}, ndm.Filter)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	return w.deleteByIDs(ctx, rf.RelatedModel(), ids)
}
