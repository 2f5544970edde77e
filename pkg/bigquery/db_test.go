package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	bigquery2 "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	testProjectID = "test-project"
	testJobID     = "test-job"
)

type fakeResponse struct {
	body       any
	statusCode int
}

// fakeBigQuery answers the jobs.query call with submit and the follow-up
// getQueryResults call with results. Submitted statements are kept in order.
type fakeBigQuery struct {
	submit  fakeResponse
	results fakeResponse

	mu        sync.Mutex
	submitted []string
}

func (f *fakeBigQuery) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var resp fakeResponse
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.RequestURI, fmt.Sprintf("/projects/%s/queries/%s?", testProjectID, testJobID)):
		resp = f.results
	case r.Method == http.MethodPost && strings.HasPrefix(r.RequestURI, fmt.Sprintf("/projects/%s/queries", testProjectID)):
		var req bigquery2.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			f.mu.Lock()
			f.submitted = append(f.submitted, req.Query)
			f.mu.Unlock()
		}
		resp = f.submit
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("unexpected request: " + r.Method + " " + r.RequestURI))
		return
	}

	w.WriteHeader(resp.statusCode)
	_ = json.NewEncoder(w).Encode(resp.body)
}

func (f *fakeBigQuery) statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submitted...)
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := bigquery.NewClient(
		context.Background(),
		testProjectID,
		option.WithEndpoint(server.URL),
		option.WithCredentials(&google.Credentials{
			ProjectID: testProjectID,
			TokenSource: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: "some-token",
			}),
		}),
	)
	require.NoError(t, err)
	client.Location = "US"

	return &Client{client: client, config: &Config{ProjectID: testProjectID}}
}

func apiError(code int, message string) fakeResponse {
	return fakeResponse{
		body: map[string]interface{}{
			"error": googleapi.Error{Code: code, Message: message},
		},
		statusCode: code,
	}
}

func completedJob(q string) fakeResponse {
	return fakeResponse{
		body: &bigquery2.Job{
			Configuration: &bigquery2.JobConfiguration{
				Query: &bigquery2.JobConfigurationQuery{
					Query: q,
					DestinationTable: &bigquery2.TableReference{
						ProjectId: testProjectID,
						DatasetId: "test-dataset",
					},
				},
			},
			JobReference: &bigquery2.JobReference{
				JobId:     testJobID,
				ProjectId: testProjectID,
			},
			Status: &bigquery2.JobStatus{State: "DONE"},
		},
		statusCode: http.StatusOK,
	}
}

func TestClient_RunQueryWithoutResult(t *testing.T) {
	t.Parallel()

	mergeQuery := "MERGE INTO `project.dataset.events` AS `__MERGE_TARGET__` USING (SELECT 1 AS id) AS `__MERGE_SOURCE__` ON TRUE WHEN NOT MATCHED THEN INSERT (`id`) VALUES (`__MERGE_SOURCE__`.`id`)"

	tests := []struct {
		name          string
		query         *query.Query
		submit        fakeResponse
		wantErr       string
		wantSubmitted []string
	}{
		{
			name:    "bad request",
			query:   &query.Query{Query: "sselect 1"},
			submit:  apiError(http.StatusBadRequest, `Syntax error: Expected "(" or keyword SELECT or keyword WITH but got identifier "sselect" at [1:1]`),
			wantErr: `Syntax error: Expected "(" or keyword SELECT or keyword WITH but got identifier "sselect" at [1:1]`,
		},
		{
			name:    "missing table",
			query:   &query.Query{Query: mergeQuery},
			submit:  apiError(http.StatusNotFound, "Not found: Table test-project:dataset.events was not found in location US"),
			wantErr: "Not found: Table test-project:dataset.events was not found in location US",
		},
		{
			name:          "merge is submitted as is",
			query:         &query.Query{Query: mergeQuery},
			submit:        completedJob(mergeQuery),
			wantSubmitted: []string{mergeQuery},
		},
		{
			name: "variable definitions are sent in the same script",
			query: &query.Query{
				VariableDefinitions: []string{"DECLARE region STRING DEFAULT 'eu'"},
				Query:               mergeQuery,
			},
			submit:        completedJob(mergeQuery),
			wantSubmitted: []string{"DECLARE region STRING DEFAULT 'eu';\n" + mergeQuery + ";"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := &fakeBigQuery{
				submit: tt.submit,
				results: fakeResponse{
					body: &bigquery2.GetQueryResultsResponse{
						JobReference: &bigquery2.JobReference{JobId: testJobID},
						JobComplete:  true,
					},
					statusCode: http.StatusOK,
				},
			}
			d := newTestClient(t, fake)

			err := d.RunQueryWithoutResult(context.Background(), tt.query)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantSubmitted, fake.statements())
		})
	}
}

func TestClient_Select(t *testing.T) {
	t.Parallel()

	fake := &fakeBigQuery{
		submit: completedJob("SELECT id, event_name, count FROM dataset.events"),
		results: fakeResponse{
			body: &bigquery2.GetQueryResultsResponse{
				JobReference: &bigquery2.JobReference{JobId: testJobID},
				JobComplete:  true,
				Schema: &bigquery2.TableSchema{
					Fields: []*bigquery2.TableFieldSchema{
						{Name: "id", Type: "INTEGER"},
						{Name: "event_name", Type: "STRING"},
						{Name: "count", Type: "INTEGER"},
					},
				},
				Rows: []*bigquery2.TableRow{
					{F: []*bigquery2.TableCell{{V: "1"}, {V: "signup"}, {V: "30"}}},
					{F: []*bigquery2.TableCell{{V: "2"}, {V: "login"}, {V: "28"}}},
				},
			},
			statusCode: http.StatusOK,
		},
	}
	d := newTestClient(t, fake)

	got, err := d.Select(context.Background(), &query.Query{Query: "SELECT id, event_name, count FROM dataset.events"})
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{
		{int64(1), "signup", int64(30)},
		{int64(2), "login", int64(28)},
	}, got)
}

func TestClient_Ping(t *testing.T) {
	t.Parallel()

	d := newTestClient(t, &fakeBigQuery{
		submit: apiError(http.StatusBadRequest, "Access Denied: Project test-project"),
	})

	err := d.Ping(context.Background())
	require.EqualError(t, err, "failed to run test query on BigQuery connection: Access Denied: Project test-project")
}
