package graphql

import (
	"context"

	"github.com/zoosky/prisma-engine/executor"
)

// ExecuteDocument translates a query document against the translator's
// datamodel and runs the resulting pairs on the executor.
func ExecuteDocument(ctx context.Context, t *Translator, exec *executor.Executor, doc string) ([]executor.Response, error) {
	pairs, err := t.Translate(doc)
	if err != nil {
		return nil, err
	}
	return exec.Execute(ctx, pairs)
}
