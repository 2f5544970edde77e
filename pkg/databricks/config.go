package databricks

import (
	"fmt"
	"net/url"
	"strings"
)

type Config struct {
	// Token is the Databricks personal access token.
	Token string
	Host  string
	Port  int
	// Path selects the cluster or SQL warehouse, e.g. sql/1.0/warehouses/<id>.
	Path    string
	Catalog string
	Schema  string
}

func (c *Config) ToDBConnectionURI() string {
	query := url.Values{}

	if c.Catalog != "" {
		query.Add("catalog", c.Catalog)
	}
	if c.Schema != "" {
		query.Add("schema", c.Schema)
	}

	port := c.Port
	if port == 0 {
		port = 443
	}

	dsn := url.URL{
		User:     url.UserPassword("token", c.Token),
		Host:     fmt.Sprintf("%s:%d", c.Host, port),
		RawQuery: query.Encode(),
		Path:     c.Path,
	}

	return strings.TrimPrefix(dsn.String(), "//")
}
