package mssql

import (
	"fmt"
	"net/url"
	"strings"
)

type Config struct {
	Username string
	Password string
	Host     string
	Port     int
	Database string
	// Query replaces the default connection parameters when set.
	Query string
}

func (c *Config) ToDBConnectionURI() string {
	var rawQuery string

	if c.Query != "" {
		rawQuery = c.Query
		if c.Database != "" && !strings.Contains(c.Query, "database=") {
			rawQuery = "database=" + url.QueryEscape(c.Database) + "&" + rawQuery
		}
	} else {
		query := url.Values{}
		query.Add("app name", "trmerge")
		query.Add("TrustServerCertificate", "true")
		query.Add("encrypt", "disable")
		if c.Database != "" {
			query.Add("database", c.Database)
		}
		rawQuery = query.Encode()
	}

	port := c.Port
	if port == 0 {
		port = 1433
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, port),
		RawQuery: rawQuery,
	}

	return u.String()
}
