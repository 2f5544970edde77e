package engine

import (
	"context"
	"sync"

	"github.com/bruin-data/timerange-merge/pkg/query"
)

// RecordingClient keeps every query it is given instead of running it.
type RecordingClient struct {
	mu      sync.Mutex
	queries []*query.Query

	// Err, when set, is returned from every call after the query is recorded.
	Err error
}

func (r *RecordingClient) RunQueryWithoutResult(_ context.Context, q *query.Query) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queries = append(r.queries, q)
	return r.Err
}

func (r *RecordingClient) Queries() []*query.Query {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*query.Query, len(r.queries))
	copy(out, r.queries)
	return out
}

func (r *RecordingClient) Statements() []string {
	queries := r.Queries()
	out := make([]string, len(queries))
	for i, q := range queries {
		out[i] = q.ToDryRunQuery()
	}
	return out
}
