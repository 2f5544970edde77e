package pipeline

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bruin-data/timerange-merge/pkg/dialect"
	"github.com/bruin-data/timerange-merge/pkg/jinja"
	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type (
	AssetType          string
	TaskDefinitionType string
	RuntimeStage       string
)

const (
	CommentTask TaskDefinitionType = "comment"
	YamlTask    TaskDefinitionType = "yaml"

	AssetTypeSnowflakeQuery  = AssetType("sf.sql")
	AssetTypeBigqueryQuery   = AssetType("bq.sql")
	AssetTypePostgresQuery   = AssetType("pg.sql")
	AssetTypeRedshiftQuery   = AssetType("rs.sql")
	AssetTypeMsSQLQuery      = AssetType("ms.sql")
	AssetTypeDatabricksQuery = AssetType("databricks.sql")
	AssetTypeDuckDBQuery     = AssetType("duckdb.sql")
	AssetTypeTrinoQuery      = AssetType("trino.sql")

	RuntimeStageLoading    RuntimeStage = "loading"
	RuntimeStageCreating   RuntimeStage = "creating"
	RuntimeStageEvaluating RuntimeStage = "evaluating"

	DefaultSchedule = "@daily"
)

type ExecutableFile struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

type TaskDefinitionFile struct {
	Name string             `json:"name"`
	Path string             `json:"path"`
	Type TaskDefinitionType `json:"type"`
}

type DefaultTrueBool struct {
	Value *bool
}

func (b *DefaultTrueBool) UnmarshalJSON(data []byte) error {
	if data == nil {
		return nil
	}

	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	b.Value = &v
	return nil
}

func (b DefaultTrueBool) MarshalJSON() ([]byte, error) {
	if b.Value == nil {
		return []byte("true"), nil
	}

	return json.Marshal(*b.Value)
}

func (b *DefaultTrueBool) UnmarshalYAML(value *yaml.Node) error {
	var multi *bool
	err := value.Decode(&multi)
	if err != nil {
		return err
	}
	b.Value = multi

	return nil
}

func (b *DefaultTrueBool) Bool() bool {
	if b.Value == nil {
		return true
	}

	return *b.Value
}

func (b DefaultTrueBool) MarshalYAML() (interface{}, error) {
	if b.Value == nil {
		return nil, nil
	}

	return *b.Value, nil
}

type MaterializationType string

const (
	MaterializationTypeNone  MaterializationType = ""
	MaterializationTypeTable MaterializationType = "table"
)

type MaterializationStrategy string

const (
	MaterializationStrategyNone   MaterializationStrategy = ""
	MaterializationStrategyCustom MaterializationStrategy = "custom"

	// MaterializationStrategyTimeRangeMerge is the first-class form of the custom
	// materialization with the same name.
	MaterializationStrategyTimeRangeMerge MaterializationStrategy = "non_idempotent_incremental_by_time_range"
)

const (
	PropertyTimeColumn = "time_column"
	PropertyPrimaryKey = "primary_key"
)

// Materialization holds both ways of configuring the strategy. The custom form keeps the
// raw properties as written; the first-class form carries them as fields.
type Materialization struct {
	Type                  MaterializationType     `json:"type" yaml:"type,omitempty"`
	Strategy              MaterializationStrategy `json:"strategy" yaml:"strategy,omitempty"`
	CustomMaterialization string                  `json:"custom_materialization,omitempty" yaml:"custom_materialization,omitempty"`
	Properties            map[string]any          `json:"materialization_properties,omitempty" yaml:"materialization_properties,omitempty"`

	TimeColumn            any             `json:"time_column,omitempty" yaml:"time_column,omitempty"`
	PrimaryKey            any             `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	PartitionByTimeColumn DefaultTrueBool `json:"partition_by_time_column" yaml:"partition_by_time_column,omitempty"`

	BatchSize        int `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	BatchConcurrency int `json:"batch_concurrency,omitempty" yaml:"batch_concurrency,omitempty"`
}

// UsesTimeRangeMerge reports whether the asset is configured, in either form, for the
// non-idempotent incremental by time range strategy.
func (m Materialization) UsesTimeRangeMerge() bool {
	if m.Strategy == MaterializationStrategyTimeRangeMerge {
		return true
	}

	return m.Strategy == MaterializationStrategyCustom &&
		MaterializationStrategy(strings.ToLower(m.CustomMaterialization)) == MaterializationStrategyTimeRangeMerge
}

func (m Materialization) EffectiveBatchConcurrency() int {
	if m.BatchConcurrency <= 0 {
		return 1
	}
	return m.BatchConcurrency
}

type Column struct {
	Name        string `json:"name" yaml:"name,omitempty"`
	Type        string `json:"type" yaml:"type,omitempty"`
	Description string `json:"description" yaml:"description,omitempty"`
}

type Asset struct {
	ID              string             `json:"id" yaml:"-"`
	Name            string             `json:"name" yaml:"name,omitempty"`
	Description     string             `json:"description" yaml:"description,omitempty"`
	Type            AssetType          `json:"type" yaml:"type,omitempty"`
	Connection      string             `json:"connection" yaml:"connection,omitempty"`
	Schedule        string             `json:"schedule" yaml:"schedule,omitempty"`
	StartDate       string             `json:"start_date" yaml:"start_date,omitempty"`
	Materialization Materialization    `json:"materialization" yaml:"materialization,omitempty"`
	Columns         []Column           `json:"columns" yaml:"columns,omitempty"`
	Owner           string             `json:"owner" yaml:"owner,omitempty"`
	Tags            []string           `json:"tags" yaml:"tags,omitempty"`
	ExecutableFile  ExecutableFile     `json:"executable_file" yaml:"-"`
	DefinitionFile  TaskDefinitionFile `json:"definition_file" yaml:"-"`
}

func (a *Asset) GetName() string {
	return a.Name
}

func (a *Asset) GetDialect() string {
	d, err := dialect.GetDialectByAssetType(string(a.Type))
	if err != nil {
		return ""
	}
	return d
}

// ColumnsToTypes returns the declared output columns in declaration order.
func (a *Asset) ColumnsToTypes() []Column {
	return a.Columns
}

// CustomMaterializationProperties exposes the raw time_column and primary_key values,
// whichever configuration form they were written in. Missing values are left out.
func (a *Asset) CustomMaterializationProperties() map[string]any {
	m := a.Materialization
	if m.Strategy == MaterializationStrategyCustom {
		props := make(map[string]any, len(m.Properties))
		for k, v := range m.Properties {
			props[strings.ToLower(k)] = v
		}
		return props
	}

	props := map[string]any{}
	if m.TimeColumn != nil {
		props[PropertyTimeColumn] = m.TimeColumn
	}
	if m.PrimaryKey != nil {
		props[PropertyPrimaryKey] = m.PrimaryKey
	}
	return props
}

func (a *Asset) GetSchedule() string {
	if a.Schedule == "" {
		return DefaultSchedule
	}
	return a.Schedule
}

// RenderQuery renders the asset query for a batch. end is exclusive.
func (a *Asset) RenderQuery(start, end, executionTime time.Time, stage RuntimeStage, runID string) (*query.Query, error) {
	renderer := jinja.NewRendererForBatch(jinja.BatchContext{
		Start:         start,
		End:           end,
		ExecutionTime: executionTime,
		RuntimeStage:  string(stage),
		RunID:         runID,
		AssetName:     a.Name,
	})

	q, err := query.ExtractSourceQuery(a.ExecutableFile.Content, renderer)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to render the query for asset '%s'", a.Name)
	}
	return q, nil
}

type TaskCreator func(path string) (*Asset, error)

type ParseError struct {
	Msg string
}

func (e ParseError) Error() string {
	return e.Msg
}
