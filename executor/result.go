// Package executor dispatches query pairs onto a backend: reads resolve
// recursively with parent-id propagation, writes run inside a single
// transaction with deterministic nested ordering.
package executor

import (
	"github.com/zoosky/prisma-engine/connector"
)

// Response is the outcome of one executed query pair.
type Response struct {
	Name    string
	Content any // *RecordSelection (reads, counts included) or WriteResult
}

// Record is one fetched record. ParentID carries the linking id when the
// record was fetched through a relation.
type Record struct {
	Values   map[string]any
	ParentID connector.RecordID
}

// ID returns the record's value for the given id field.
func (r Record) ID(idField string) connector.RecordID {
	return r.Values[idField]
}

// ScalarListValue holds one record's values for a scalar-list field.
type ScalarListValue struct {
	RecordID connector.RecordID
	Values   []any
}

// RecordSelection is the resolved form of one read-tree node.
type RecordSelection struct {
	Name        string
	FieldsOrder []string
	Scalars     []Record
	Nested      []*RecordSelection
	Lists       map[string][]ScalarListValue
	IDField     string
}

// IDs returns the ids of all selected records.
func (s *RecordSelection) IDs() []connector.RecordID {
	out := make([]connector.RecordID, 0, len(s.Scalars))
	for _, record := range s.Scalars {
		out = append(out, record.ID(s.IDField))
	}
	return out
}

// WriteResultKind tags what a write produced.
type WriteResultKind int

const (
	WriteResultID WriteResultKind = iota
	WriteResultCount
	WriteResultNone
)

// WriteResult is the outcome of one root write.
type WriteResult struct {
	Kind  WriteResultKind
	ID    connector.RecordID
	Count int64
}
