package executor

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/zoosky/prisma-engine/connector"
	"github.com/zoosky/prisma-engine/datamodel"
	"github.com/zoosky/prisma-engine/query"
)

// Executor is the entry point into the query core. It dispatches query
// pairs onto the backend: reads run on a pooled connection, writes inside a
// single transaction each.
type Executor struct {
	backend   connector.Transactional
	datamodel *datamodel.Datamodel
	dbName    string
	log       zerolog.Logger
}

// New creates an executor over a backend.
func New(backend connector.Transactional, dm *datamodel.Datamodel, dbName string) *Executor {
	return &Executor{
		backend:   backend,
		datamodel: dm,
		dbName:    dbName,
		log:       zerolog.Nop(),
	}
}

// WithLogger attaches a logger for execution-level debug logging.
func (e *Executor) WithLogger(log zerolog.Logger) *Executor {
	e.log = log
	return e
}

// Execute runs every query pair in order and collects the responses. Pairs
// fail fast: the first error aborts the batch.
func (e *Executor) Execute(ctx context.Context, pairs []query.QueryPair) ([]Response, error) {
	responses := make([]Response, 0, len(pairs))
	for _, pair := range pairs {
		response, err := e.executePair(ctx, pair)
		if err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}
	return responses, nil
}

func (e *Executor) executePair(ctx context.Context, pair query.QueryPair) (Response, error) {
	switch q := pair.Query.(type) {
	case query.ReadQuery:
		return e.executeRead(ctx, q, pair.Strategy)
	case query.WriteQuery:
		return e.executeWrite(ctx, q, pair.Strategy)
	default:
		return Response{}, &connector.InternalError{Message: "query is neither read nor write"}
	}
}

func (e *Executor) executeRead(ctx context.Context, rq query.ReadQuery, strategy query.ResultResolutionStrategy) (Response, error) {
	if _, dependent := strategy.(query.Dependent); dependent {
		return Response{}, &connector.InternalError{Message: "dependent execution from a read is not supported"}
	}

	conn, err := e.backend.GetConnection(ctx, e.dbName)
	if err != nil {
		return Response{}, err
	}
	defer conn.Release()

	selection, err := ReadExecutor{Conn: conn}.Execute(ctx, rq, nil)
	if err != nil {
		return Response{}, err
	}
	return Response{Name: selection.Name, Content: selection}, nil
}

// executeWrite runs the root write in one transaction: commit on success,
// rollback on the first error with no partial application.
func (e *Executor) executeWrite(ctx context.Context, wq query.WriteQuery, strategy query.ResultResolutionStrategy) (Response, error) {
	result, err := e.runWriteTransaction(ctx, wq)
	if err != nil {
		return Response{}, err
	}

	switch s := strategy.(type) {
	case query.Serialize:
		return Response{Name: s.OutputType, Content: result}, nil
	case query.Dependent:
		return e.executeDependent(ctx, wq, result, s)
	default:
		return Response{Content: result}, nil
	}
}

func (e *Executor) runWriteTransaction(ctx context.Context, wq query.WriteQuery) (WriteResult, error) {
	conn, err := e.backend.GetConnection(ctx, e.dbName)
	if err != nil {
		return WriteResult{}, err
	}
	defer conn.Release()

	tx, err := conn.StartTransaction(ctx)
	if err != nil {
		return WriteResult{}, err
	}

	result, err := writeExecutor{tx: tx, dm: e.datamodel}.execute(ctx, wq)
	if err != nil {
		e.log.Debug().Err(err).Msg("write failed, rolling back")
		if rbErr := tx.Rollback(); rbErr != nil {
			e.log.Warn().Err(rbErr).Msg("rollback failed")
		}
		return WriteResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return WriteResult{}, err
	}
	return result, nil
}

// executeDependent feeds the write's resulting id into the inner read's
// record finder, then executes it.
func (e *Executor) executeDependent(ctx context.Context, wq query.WriteQuery, result WriteResult, strategy query.Dependent) (Response, error) {
	inner := strategy.Inner
	if inner == nil {
		return Response{}, &connector.InternalError{Message: "dependent strategy without inner pair"}
	}

	record, ok := inner.Query.(*query.RecordQuery)
	if !ok {
		return Response{}, &connector.InternalError{Message: "dependent execution requires a record query"}
	}
	if result.Kind != WriteResultID {
		return Response{}, &connector.InternalError{Message: "dependent execution requires an id result"}
	}

	model := query.WriteModel(wq)
	if model == nil {
		return Response{}, &connector.InternalError{Message: "model required for dependent query execution"}
	}

	finder, err := query.IDFinder(model, result.ID)
	if err != nil {
		return Response{}, &connector.InternalError{Message: err.Error()}
	}
	record.Finder = finder

	return e.executePair(ctx, *inner)
}
