package bigquery

import (
	"cloud.google.com/go/bigquery"
	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

var scopes = []string{
	bigquery.Scope,
	"https://www.googleapis.com/auth/cloud-platform",
}

type Config struct {
	ProjectID           string `envconfig:"BIGQUERY_PROJECT"`
	CredentialsFilePath string `envconfig:"BIGQUERY_CREDENTIALS_FILE"`
	CredentialsJSON     string
	Credentials         *google.Credentials
	Location            string `envconfig:"BIGQUERY_LOCATION"`
	// UseApplicationDefaultCredentials lets the client library find the credentials.
	UseApplicationDefaultCredentials bool
}

func (c Config) IsValid() bool {
	if c.ProjectID == "" {
		return false
	}

	return c.UseApplicationDefaultCredentials || c.CredentialsFilePath != "" || c.CredentialsJSON != "" || c.Credentials != nil
}

func (c Config) clientOptions() ([]option.ClientOption, error) {
	options := []option.ClientOption{
		option.WithScopes(scopes...),
	}

	switch {
	case c.CredentialsJSON != "":
		options = append(options, option.WithCredentialsJSON([]byte(c.CredentialsJSON)))
	case c.CredentialsFilePath != "":
		options = append(options, option.WithCredentialsFile(c.CredentialsFilePath))
	case c.Credentials != nil:
		options = append(options, option.WithCredentials(c.Credentials))
	case c.UseApplicationDefaultCredentials:
	default:
		return nil, errors.New("no credentials provided")
	}

	return options, nil
}
