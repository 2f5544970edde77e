package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

type Client struct {
	client *bigquery.Client
	config *Config
}

func NewDB(c *Config) (*Client, error) {
	options, err := c.clientOptions()
	if err != nil {
		return nil, err
	}

	client, err := bigquery.NewClient(context.Background(), c.ProjectID, options...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create bigquery client")
	}

	if c.Location != "" {
		client.Location = c.Location
	}

	return &Client{client: client, config: c}, nil
}

// RunQueryWithoutResult submits the variable definitions and the statement as a
// single multi-statement script so that DECLARE/SET stay in scope.
func (d *Client) RunQueryWithoutResult(ctx context.Context, q *query.Query) error {
	script := q.String()
	if len(q.VariableDefinitions) > 0 {
		script = q.ToDryRunQuery()
	}

	if _, err := d.client.Query(script).Read(ctx); err != nil {
		return formatError(err)
	}

	return nil
}

func (d *Client) Select(ctx context.Context, query *query.Query) ([][]interface{}, error) {
	q := d.client.Query(query.String())
	rows, err := q.Read(ctx)
	if err != nil {
		return nil, formatError(err)
	}

	result := make([][]interface{}, 0)
	for {
		var values []bigquery.Value
		err := rows.Next(&values)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}

		result = append(result, row)
	}

	return result, nil
}

func formatError(err error) error {
	var googleError *googleapi.Error
	if !errors.As(err, &googleError) {
		return err
	}

	if googleError.Code == 404 || googleError.Code == 400 {
		return fmt.Errorf("%s", googleError.Message)
	}

	return googleError
}

func (d *Client) Ping(ctx context.Context) error {
	_, err := d.Select(ctx, &query.Query{Query: "SELECT 1"})
	if err != nil {
		return errors.Wrap(err, "failed to run test query on BigQuery connection")
	}

	return nil
}

func (d *Client) Close() error {
	return d.client.Close()
}
