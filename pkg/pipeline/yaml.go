package pipeline

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bruin-data/timerange-merge/pkg/path"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

type materialization struct {
	Type                  string          `yaml:"type"`
	Strategy              string          `yaml:"strategy"`
	CustomMaterialization string          `yaml:"custom_materialization"`
	Properties            map[string]any  `yaml:"materialization_properties"`
	TimeColumn            any             `yaml:"time_column"`
	PrimaryKey            any             `yaml:"primary_key"`
	PartitionByTimeColumn DefaultTrueBool `yaml:"partition_by_time_column"`
	BatchSize             int             `yaml:"batch_size" validate:"gte=0"`
	BatchConcurrency      int             `yaml:"batch_concurrency" validate:"gte=0"`
}

type column struct {
	Name        string `yaml:"name" validate:"required"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

type taskDefinition struct {
	Name            string          `yaml:"name" validate:"required"`
	Description     string          `yaml:"description"`
	Type            string          `yaml:"type"`
	RunFile         string          `yaml:"run"`
	Connection      string          `yaml:"connection"`
	Schedule        string          `yaml:"schedule"`
	StartDate       string          `yaml:"start_date"`
	Materialization materialization `yaml:"materialization"`
	Owner           string          `yaml:"owner"`
	Columns         []column        `yaml:"columns" validate:"dive"`
	Tags            []string        `yaml:"tags"`
}

func CreateTaskFromYamlDefinition(fs afero.Fs) TaskCreator {
	return func(filePath string) (*Asset, error) {
		filePath, err := filepath.Abs(filePath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get absolute path for the definition file")
		}

		buf, err := afero.ReadFile(fs, filePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read file %s", filePath)
		}

		task, runFile, err := convertYamlToTask(buf)
		if err != nil {
			return nil, err
		}

		task.DefinitionFile = TaskDefinitionFile{
			Name: filepath.Base(filePath),
			Path: filePath,
			Type: YamlTask,
		}

		if runFile == "" {
			return nil, &ParseError{Msg: "`run` must point to the SQL file of the asset"}
		}

		absRunFile, err := filepath.Abs(filepath.Join(filepath.Dir(filePath), runFile))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to resolve the absolute run file path: %s", runFile)
		}

		content, err := afero.ReadFile(fs, absRunFile)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read the run file: %s", absRunFile)
		}

		task.ExecutableFile = ExecutableFile{
			Name:    filepath.Base(runFile),
			Path:    absRunFile,
			Content: strings.TrimSpace(string(content)),
		}

		return task, nil
	}
}

func ConvertYamlToTask(content []byte) (*Asset, error) {
	task, _, err := convertYamlToTask(content)
	return task, err
}

func convertYamlToTask(content []byte) (*Asset, string, error) {
	var definition taskDefinition
	err := path.ConvertYamlToObject(content, &definition)
	if err != nil {
		return nil, "", &ParseError{Msg: err.Error()}
	}

	mat := Materialization{
		Type:                  MaterializationType(strings.ToLower(definition.Materialization.Type)),
		Strategy:              MaterializationStrategy(strings.ToLower(definition.Materialization.Strategy)),
		CustomMaterialization: definition.Materialization.CustomMaterialization,
		Properties:            definition.Materialization.Properties,
		TimeColumn:            definition.Materialization.TimeColumn,
		PrimaryKey:            definition.Materialization.PrimaryKey,
		PartitionByTimeColumn: definition.Materialization.PartitionByTimeColumn,
		BatchSize:             definition.Materialization.BatchSize,
		BatchConcurrency:      definition.Materialization.BatchConcurrency,
	}

	if mat.Strategy == MaterializationStrategyCustom && mat.CustomMaterialization == "" {
		return nil, "", &ParseError{Msg: "`custom_materialization` must be set when the strategy is `custom`"}
	}

	columns := make([]Column, len(definition.Columns))
	for index, column := range definition.Columns {
		columns[index] = Column{
			Name:        strings.TrimSpace(column.Name),
			Type:        strings.TrimSpace(column.Type),
			Description: column.Description,
		}
	}

	task := Asset{
		ID:              hash(definition.Name),
		Name:            definition.Name,
		Description:     definition.Description,
		Type:            AssetType(definition.Type),
		Connection:      definition.Connection,
		Schedule:        definition.Schedule,
		StartDate:       definition.StartDate,
		Materialization: mat,
		Columns:         columns,
		Owner:           definition.Owner,
		Tags:            definition.Tags,
	}

	return &task, definition.RunFile, nil
}

func hash(s string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(s)))[:64]
}
