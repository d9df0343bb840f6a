package connector

import (
	"fmt"
)

// RecordNotFoundError reports that a finder matched nothing.
type RecordNotFoundError struct {
	Model string
	Field string
	Value any
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("no record found for %s.%s = %v", e.Model, e.Field, e.Value)
}

// RecordsNotConnectedError reports that a parent and child are not linked by
// the relation, during a nested action that requires the link.
type RecordsNotConnectedError struct {
	Relation string
	Parent   string
	Child    string
}

func (e *RecordsNotConnectedError) Error() string {
	return fmt.Sprintf("records of %s and %s are not connected by relation %s",
		e.Parent, e.Child, e.Relation)
}

// FieldCannotBeNullError reports an update setting a required column to null.
type FieldCannotBeNullError struct {
	Field string
}

func (e *FieldCannotBeNullError) Error() string {
	return fmt.Sprintf("field %s cannot be set to null", e.Field)
}

// RelationViolationError reports a connect, disconnect or delete that would
// break a required relation.
type RelationViolationError struct {
	Relation string
}

func (e *RelationViolationError) Error() string {
	return fmt.Sprintf("the change would violate the required relation %s", e.Relation)
}

// ConversionError reports a value that could not be decoded to the expected
// type identifier.
type ConversionError struct {
	From string
	To   string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("could not convert value of type %s to %s", e.From, e.To)
}

// ConnectionError wraps pool, driver and protocol failures.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// InternalError signals an unreachable-in-theory state; it indicates a bug.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Message
}
