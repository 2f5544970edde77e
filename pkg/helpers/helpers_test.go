package helpers

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastResultToInteger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		res     [][]interface{}
		want    int64
		wantErr bool
	}{
		{name: "int64", res: [][]interface{}{{int64(11)}}, want: 11},
		{name: "int32", res: [][]interface{}{{int32(7)}}, want: 7},
		{name: "float", res: [][]interface{}{{float64(3)}}, want: 3},
		{name: "numeric string", res: [][]interface{}{{"42"}}, want: 42},
		{name: "decimal string", res: [][]interface{}{{"42.0"}}, want: 42},
		{name: "text", res: [][]interface{}{{"many"}}, wantErr: true},
		{name: "nil", res: [][]interface{}{{nil}}, wantErr: true},
		{name: "no rows", res: [][]interface{}{}, wantErr: true},
		{name: "two columns", res: [][]interface{}{{1, 2}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := CastResultToInteger(tt.res)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteJSONToFile(t *testing.T) {
	t.Parallel()

	type testData struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	data := testData{
		Name:  "Test",
		Value: 123,
	}

	filename := "logs/runs/test_output.json"

	fs := afero.NewMemMapFs()

	err := WriteJSONToFile(fs, data, filename)
	require.NoError(t, err)

	fileContent, err := afero.ReadFile(fs, filename)
	require.NoError(t, err)

	expectedContent, err := json.MarshalIndent(data, "", "  ")
	require.NoError(t, err)

	assert.Equal(t, string(expectedContent), string(fileContent))
}
