package trino

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

type Config struct {
	Username string
	Password string
	Host     string
	Port     int

	// Catalog and Schema are optional, the server defaults apply when empty.
	Catalog string
	Schema  string
	SSL     bool
}

func (c Config) ToDSN() string {
	hostPort := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))

	userPart := url.User(c.Username)
	if c.Password != "" {
		userPart = url.UserPassword(c.Username, c.Password)
	}

	scheme := "http"
	if c.SSL {
		scheme = "https"
	}

	baseURL := fmt.Sprintf("%s://%s@%s", scheme, userPart.String(), hostPort)
	params := url.Values{}
	if c.Catalog != "" {
		params.Set("catalog", c.Catalog)
	}
	if c.Schema != "" {
		params.Set("schema", c.Schema)
	}
	if len(params) > 0 {
		return fmt.Sprintf("%s?%s", baseURL, params.Encode())
	}
	return baseURL
}
