package query

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

type Query struct {
	VariableDefinitions []string
	Query               string
}

func (q Query) ToDryRunQuery() string {
	eq := ""
	if len(q.VariableDefinitions) > 0 {
		eq += strings.Join(q.VariableDefinitions, ";\n") + ";\n"
	}

	eq += q.Query
	if !strings.HasSuffix(eq, ";") {
		eq += ";"
	}

	return eq
}

func (q Query) String() string {
	return q.Query
}

var queryCommentRegex = regexp.MustCompile(`(?m)(?s)\/\*.*?\*\/|(^|\s)--.*?(\n|$)`)

type renderer interface {
	Render(string) (string, error)
}

// ExtractSourceQuery renders the model body and returns the single query that produces the
// batch rows. Leading SET/DECLARE statements are kept as variable definitions.
func ExtractSourceQuery(content string, r renderer) (*Query, error) {
	rendered := content
	if r != nil {
		var err error
		rendered, err = r.Render(content)
		if err != nil {
			return nil, errors.Wrap(err, "failed to render the query")
		}
	}

	cleaned := queryCommentRegex.ReplaceAllLiteralString(rendered, "\n")
	queries := splitQueries(cleaned)
	switch len(queries) {
	case 0:
		return nil, errors.New("the model does not contain a query")
	case 1:
		return queries[0], nil
	default:
		return nil, errors.Errorf("the model must contain a single query, found %d", len(queries))
	}
}

func splitQueries(fileContent string) []*Query {
	queries := make([]*Query, 0)
	var sqlVariablesSeenSoFar []string

	for _, query := range strings.Split(fileContent, ";") {
		query = strings.TrimSpace(query)
		if len(query) == 0 {
			continue
		}

		queryLines := strings.Split(query, "\n")
		cleanQueryRows := make([]string, 0, len(queryLines))
		for _, line := range queryLines {
			if len(strings.TrimSpace(line)) == 0 {
				continue
			}

			cleanQueryRows = append(cleanQueryRows, line)
		}

		cleanQuery := strings.TrimSpace(strings.Join(cleanQueryRows, "\n"))
		lowerCaseVersion := strings.ToLower(cleanQuery)
		if strings.HasPrefix(lowerCaseVersion, "set") || strings.HasPrefix(lowerCaseVersion, "declare") {
			sqlVariablesSeenSoFar = append(sqlVariablesSeenSoFar, cleanQuery)
			continue
		}

		queries = append(queries, &Query{
			VariableDefinitions: sqlVariablesSeenSoFar,
			Query:               cleanQuery,
		})
	}

	return queries
}
