package helpers

import (
	"encoding/json"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// CastResultToInteger reads the single value of a one-row, one-column result, e.g. a COUNT(*).
func CastResultToInteger(res [][]interface{}) (int64, error) {
	if len(res) != 1 || len(res[0]) != 1 {
		return 0, errors.Errorf("multiple results are returned from query, please make sure your query just expects one value - value: %v", res)
	}

	switch v := res[0][0].(type) {
	case nil:
		return 0, errors.Errorf("unexpected result from query, result is nil")
	case float64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint64:
		return int64(v), nil //nolint:gosec
	case string:
		if atoi, err := strconv.ParseInt(v, 10, 64); err == nil {
			return atoi, nil
		}

		if floatValue, err := strconv.ParseFloat(v, 64); err == nil {
			return int64(floatValue), nil
		}

		return 0, errors.Errorf("unexpected result from query, cannot cast result string to integer: %v", res)
	}

	return 0, errors.Errorf("unexpected result from query, cannot cast result to integer: %v", res)
}

func WriteJSONToFile(fs afero.Fs, data interface{}, filename string) error {
	file, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	if err := fs.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	return afero.WriteFile(fs, filename, file, 0o600)
}
