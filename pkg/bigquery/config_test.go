package bigquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2/google"
)

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config Config
		want   bool
	}{
		{
			name:   "missing project",
			config: Config{CredentialsFilePath: "/tmp/key.json"},
		},
		{
			name:   "missing credentials",
			config: Config{ProjectID: "project-id"},
		},
		{
			name:   "credentials file",
			config: Config{ProjectID: "project-id", CredentialsFilePath: "/tmp/key.json"},
			want:   true,
		},
		{
			name:   "inline json",
			config: Config{ProjectID: "project-id", CredentialsJSON: `{"type":"service_account"}`},
			want:   true,
		},
		{
			name:   "application default credentials",
			config: Config{ProjectID: "project-id", UseApplicationDefaultCredentials: true},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.config.IsValid())
		})
	}
}

func TestConfig_clientOptions(t *testing.T) {
	t.Parallel()

	_, err := Config{ProjectID: "project-id"}.clientOptions()
	require.EqualError(t, err, "no credentials provided")

	opts, err := Config{ProjectID: "project-id", Credentials: &google.Credentials{ProjectID: "project-id"}}.clientOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	opts, err = Config{ProjectID: "project-id", UseApplicationDefaultCredentials: true}.clientOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}
