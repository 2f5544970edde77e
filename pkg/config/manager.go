package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bruin-data/timerange-merge/pkg/bigquery"
	"github.com/bruin-data/timerange-merge/pkg/databricks"
	duck "github.com/bruin-data/timerange-merge/pkg/duckdb"
	"github.com/bruin-data/timerange-merge/pkg/mssql"
	"github.com/bruin-data/timerange-merge/pkg/pipeline"
	"github.com/bruin-data/timerange-merge/pkg/postgres"
	"github.com/bruin-data/timerange-merge/pkg/query"
	"github.com/bruin-data/timerange-merge/pkg/snowflake"
	"github.com/bruin-data/timerange-merge/pkg/trino"
	errors2 "github.com/pkg/errors"
)

// Connection is what every engine client offers.
type Connection interface {
	RunQueryWithoutResult(ctx context.Context, q *query.Query) error
	Select(ctx context.Context, q *query.Query) ([][]interface{}, error)
	Ping(ctx context.Context) error
	Close() error
}

var defaultConnectionNames = map[pipeline.AssetType]string{
	pipeline.AssetTypePostgresQuery:   "postgres-default",
	pipeline.AssetTypeRedshiftQuery:   "redshift-default",
	pipeline.AssetTypeDuckDBQuery:     "duckdb-default",
	pipeline.AssetTypeSnowflakeQuery:  "snowflake-default",
	pipeline.AssetTypeTrinoQuery:      "trino-default",
	pipeline.AssetTypeDatabricksQuery: "databricks-default",
	pipeline.AssetTypeMsSQLQuery:      "mssql-default",
	pipeline.AssetTypeBigqueryQuery:   "gcp-default",
}

// GetConnectionNameForAsset returns the connection set on the asset, or the default
// connection name for its type.
func GetConnectionNameForAsset(asset *pipeline.Asset) (string, error) {
	if asset.Connection != "" {
		return asset.Connection, nil
	}

	name, ok := defaultConnectionNames[asset.Type]
	if !ok {
		return "", fmt.Errorf("no default connection exists for asset type '%s', set `connection` on the asset", asset.Type)
	}

	return name, nil
}

type Manager struct {
	environmentName string
	connections     *Connections
	types           map[string]string

	mu      sync.Mutex
	clients map[string]Connection
}

func NewManager(cfg *Config) *Manager {
	conns := &Connections{}
	if cfg.SelectedEnvironment != nil && cfg.SelectedEnvironment.Connections != nil {
		conns = cfg.SelectedEnvironment.Connections
	}

	types, _ := conns.ConnectionTypes()
	return &Manager{
		environmentName: cfg.SelectedEnvironmentName,
		connections:     conns,
		types:           types,
		clients:         make(map[string]Connection),
	}
}

// GetConnection returns the client of the given connection, creating it on first use.
func (m *Manager) GetConnection(ctx context.Context, name string) (Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[name]; ok {
		return c, nil
	}

	c, err := m.newConnection(ctx, name)
	if err != nil {
		return nil, err
	}

	m.clients[name] = c
	return c, nil
}

func (m *Manager) newConnection(ctx context.Context, name string) (Connection, error) {
	connType, ok := m.types[name]
	if !ok {
		if name == defaultConnectionNames[pipeline.AssetTypeSnowflakeQuery] {
			return snowflakeFromEnv(name, m.environmentName)
		}
		return nil, fmt.Errorf("connection '%s' not found in environment '%s'", name, m.environmentName)
	}

	switch connType {
	case "postgres":
		c := find(m.connections.Postgres, name)
		return postgres.NewClient(ctx, postgres.Config{
			Username:     c.Username,
			Password:     c.Password,
			Host:         c.Host,
			Port:         orDefault(c.Port, 5432),
			Database:     c.Database,
			Schema:       c.Schema,
			PoolMaxConns: orDefault(c.PoolMaxConns, 10),
			SslMode:      orDefault(c.SslMode, "disable"),
		})
	case "redshift":
		c := find(m.connections.Redshift, name)
		return postgres.NewClient(ctx, postgres.Config{
			Username:     c.Username,
			Password:     c.Password,
			Host:         c.Host,
			Port:         orDefault(c.Port, 5439),
			Database:     c.Database,
			Schema:       c.Schema,
			PoolMaxConns: orDefault(c.PoolMaxConns, 10),
			SslMode:      orDefault(c.SslMode, "require"),
		})
	case "duckdb":
		c := find(m.connections.DuckDB, name)
		return duck.NewClient(duck.Config{Path: c.Path})
	case "snowflake":
		c := find(m.connections.Snowflake, name)
		return snowflake.NewDB(&snowflake.Config{
			Account:   c.Account,
			Username:  c.Username,
			Password:  c.Password,
			Region:    c.Region,
			Role:      c.Role,
			Database:  c.Database,
			Schema:    c.Schema,
			Warehouse: c.Warehouse,
		})
	case "trino":
		c := find(m.connections.Trino, name)
		return trino.NewClient(trino.Config{
			Username: c.Username,
			Password: c.Password,
			Host:     c.Host,
			Port:     orDefault(c.Port, 8080),
			Catalog:  c.Catalog,
			Schema:   c.Schema,
			SSL:      c.SSL,
		})
	case "databricks":
		c := find(m.connections.Databricks, name)
		return databricks.NewDB(&databricks.Config{
			Token:   c.Token,
			Host:    c.Host,
			Port:    c.Port,
			Path:    c.Path,
			Catalog: c.Catalog,
			Schema:  c.Schema,
		})
	case "mssql":
		c := find(m.connections.MsSQL, name)
		return mssql.NewDB(&mssql.Config{
			Username: c.Username,
			Password: c.Password,
			Host:     c.Host,
			Port:     c.Port,
			Database: c.Database,
			Query:    c.Query,
		})
	case "google_cloud_platform":
		c := find(m.connections.GoogleCloudPlatform, name)
		return bigquery.NewDB(&bigquery.Config{
			ProjectID:                        c.ProjectID,
			CredentialsFilePath:              c.ServiceAccountFile,
			CredentialsJSON:                  c.ServiceAccountJSON,
			Location:                         c.Location,
			UseApplicationDefaultCredentials: c.UseApplicationDefaultCredentials,
		})
	}

	return nil, fmt.Errorf("unsupported connection type '%s'", connType)
}

func snowflakeFromEnv(name, env string) (Connection, error) {
	cfg, err := snowflake.LoadConfigFromEnv()
	if err != nil {
		return nil, errors2.Wrap(err, "failed to read snowflake settings from the environment")
	}

	if !cfg.IsValid() {
		return nil, fmt.Errorf("connection '%s' not found in environment '%s' and SNOWFLAKE_* variables are not set", name, env)
	}

	return snowflake.NewDB(cfg)
}

// Close closes every client created so far.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, c := range m.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, errors2.Wrapf(err, "failed to close connection '%s'", name))
		}
		delete(m.clients, name)
	}

	return errors.Join(errs...)
}

func find[T named](conns []T, name string) T {
	for _, c := range conns {
		if c.GetName() == name {
			return c
		}
	}

	var zero T
	return zero
}

func orDefault[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}
