// Package engine issues merges and table bootstrap statements against a warehouse,
// rendering them for the warehouse's dialect.
package engine

import (
	"context"
	"strings"

	"github.com/bruin-data/timerange-merge/pkg/dialect"
	"github.com/bruin-data/timerange-merge/pkg/pipeline"
	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/bruin-data/timerange-merge/pkg/sqlexpr"
	"github.com/pkg/errors"
)

const (
	MergeSourceAlias = "__MERGE_SOURCE__"
	MergeTargetAlias = "__MERGE_TARGET__"
)

// MergeRequest carries everything needed to upsert one batch into the target table.
type MergeRequest struct {
	TargetTable    string
	Source         *query.Query
	ColumnsToTypes []pipeline.Column
	UniqueKey      []sqlexpr.Expr
	// MergeFilter is applied on top of the key match. Its columns must already be
	// qualified with MergeSourceAlias or MergeTargetAlias.
	MergeFilter sqlexpr.Expr
}

type Client interface {
	RunQueryWithoutResult(ctx context.Context, query *query.Query) error
}

// Merger is the single capability the materialization needs from an engine.
type Merger interface {
	Merge(ctx context.Context, req *MergeRequest) error
}

type Adapter struct {
	Dialect dialect.Dialect
	Client  Client

	schemas *SchemaCreator
}

func NewAdapter(dialectName string, client Client) (*Adapter, error) {
	d, err := dialect.Get(dialectName)
	if err != nil {
		return nil, err
	}

	return &Adapter{Dialect: d, Client: client, schemas: NewSchemaCreator(d)}, nil
}

// Merge issues one statement for the request. Errors from the client are returned as is.
func (a *Adapter) Merge(ctx context.Context, req *MergeRequest) error {
	q, err := a.BuildMergeQuery(req)
	if err != nil {
		return err
	}

	return a.Client.RunQueryWithoutResult(ctx, q)
}

func (a *Adapter) BuildMergeQuery(req *MergeRequest) (*query.Query, error) {
	if req == nil {
		return nil, errors.New("merge request cannot be nil")
	}
	if req.TargetTable == "" {
		return nil, errors.New("merge requires a target table")
	}
	if req.Source == nil || strings.TrimSpace(req.Source.Query) == "" {
		return nil, errors.New("merge requires a source query")
	}
	if len(req.UniqueKey) == 0 {
		return nil, errors.New("merge requires at least one unique key expression")
	}
	if len(req.ColumnsToTypes) == 0 {
		return nil, errors.Errorf("the columns of '%s' are not known, declare them on the asset", req.TargetTable)
	}

	var statement string
	if a.Dialect.NativeMerge {
		statement = a.nativeMerge(req)
	} else {
		statement = a.deleteInsertMerge(req)
	}

	return &query.Query{
		VariableDefinitions: req.Source.VariableDefinitions,
		Query:               statement,
	}, nil
}
