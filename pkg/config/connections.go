package config

type PostgresConnection struct {
	Name         string `yaml:"name" json:"name" mapstructure:"name" validate:"required"`
	Username     string `yaml:"username" json:"username" mapstructure:"username" validate:"required"`
	Password     string `yaml:"password" json:"password" mapstructure:"password"`
	Host         string `yaml:"host" json:"host" mapstructure:"host" validate:"required"`
	Port         int    `yaml:"port" json:"port" mapstructure:"port" jsonschema:"default=5432"`
	Database     string `yaml:"database" json:"database" mapstructure:"database" validate:"required"`
	Schema       string `yaml:"schema,omitempty" json:"schema,omitempty" mapstructure:"schema"`
	PoolMaxConns int    `yaml:"pool_max_conns,omitempty" json:"pool_max_conns,omitempty" mapstructure:"pool_max_conns" jsonschema:"default=10"`
	SslMode      string `yaml:"ssl_mode,omitempty" json:"ssl_mode,omitempty" mapstructure:"ssl_mode" jsonschema:"default=disable"`
}

func (c PostgresConnection) GetName() string {
	return c.Name
}

// RedshiftConnection is served by the postgres client.
type RedshiftConnection struct {
	Name         string `yaml:"name" json:"name" mapstructure:"name" validate:"required"`
	Username     string `yaml:"username" json:"username" mapstructure:"username" validate:"required"`
	Password     string `yaml:"password" json:"password" mapstructure:"password"`
	Host         string `yaml:"host" json:"host" mapstructure:"host" validate:"required"`
	Port         int    `yaml:"port" json:"port" mapstructure:"port" jsonschema:"default=5439"`
	Database     string `yaml:"database" json:"database" mapstructure:"database" validate:"required"`
	Schema       string `yaml:"schema,omitempty" json:"schema,omitempty" mapstructure:"schema"`
	PoolMaxConns int    `yaml:"pool_max_conns,omitempty" json:"pool_max_conns,omitempty" mapstructure:"pool_max_conns" jsonschema:"default=10"`
	SslMode      string `yaml:"ssl_mode,omitempty" json:"ssl_mode,omitempty" mapstructure:"ssl_mode" jsonschema:"default=require"`
}

func (c RedshiftConnection) GetName() string {
	return c.Name
}

type DuckDBConnection struct {
	Name string `yaml:"name" json:"name" mapstructure:"name" validate:"required"`
	Path string `yaml:"path" json:"path" mapstructure:"path" validate:"required"`
}

func (c DuckDBConnection) GetName() string {
	return c.Name
}

type SnowflakeConnection struct {
	Name      string `yaml:"name" json:"name" mapstructure:"name" validate:"required"`
	Account   string `yaml:"account" json:"account" mapstructure:"account" validate:"required"`
	Username  string `yaml:"username" json:"username" mapstructure:"username" validate:"required"`
	Password  string `yaml:"password" json:"password" mapstructure:"password"`
	Region    string `yaml:"region,omitempty" json:"region,omitempty" mapstructure:"region"`
	Role      string `yaml:"role,omitempty" json:"role,omitempty" mapstructure:"role"`
	Database  string `yaml:"database,omitempty" json:"database,omitempty" mapstructure:"database"`
	Schema    string `yaml:"schema,omitempty" json:"schema,omitempty" mapstructure:"schema"`
	Warehouse string `yaml:"warehouse,omitempty" json:"warehouse,omitempty" mapstructure:"warehouse"`
}

func (c SnowflakeConnection) GetName() string {
	return c.Name
}

type TrinoConnection struct {
	Name     string `yaml:"name" json:"name" mapstructure:"name" validate:"required"`
	Username string `yaml:"username" json:"username" mapstructure:"username" validate:"required"`
	Password string `yaml:"password,omitempty" json:"password,omitempty" mapstructure:"password"`
	Host     string `yaml:"host" json:"host" mapstructure:"host" validate:"required"`
	Port     int    `yaml:"port" json:"port" mapstructure:"port" jsonschema:"default=8080"`
	Catalog  string `yaml:"catalog,omitempty" json:"catalog,omitempty" mapstructure:"catalog"`
	Schema   string `yaml:"schema,omitempty" json:"schema,omitempty" mapstructure:"schema"`
	SSL      bool   `yaml:"ssl,omitempty" json:"ssl,omitempty" mapstructure:"ssl"`
}

func (c TrinoConnection) GetName() string {
	return c.Name
}

type DatabricksConnection struct {
	Name    string `yaml:"name" json:"name" mapstructure:"name" validate:"required"`
	Token   string `yaml:"token" json:"token" mapstructure:"token" validate:"required"`
	Host    string `yaml:"host" json:"host" mapstructure:"host" validate:"required"`
	Path    string `yaml:"path" json:"path" mapstructure:"path" validate:"required"`
	Port    int    `yaml:"port" json:"port" mapstructure:"port" jsonschema:"default=443"`
	Catalog string `yaml:"catalog,omitempty" json:"catalog,omitempty" mapstructure:"catalog"`
	Schema  string `yaml:"schema,omitempty" json:"schema,omitempty" mapstructure:"schema"`
}

func (c DatabricksConnection) GetName() string {
	return c.Name
}

type MsSQLConnection struct {
	Name     string `yaml:"name" json:"name" mapstructure:"name" validate:"required"`
	Username string `yaml:"username" json:"username" mapstructure:"username" validate:"required"`
	Password string `yaml:"password" json:"password" mapstructure:"password"`
	Host     string `yaml:"host" json:"host" mapstructure:"host" validate:"required"`
	Port     int    `yaml:"port" json:"port" mapstructure:"port" jsonschema:"default=1433"`
	Database string `yaml:"database" json:"database" mapstructure:"database" validate:"required"`
	Query    string `yaml:"query,omitempty" json:"query,omitempty" mapstructure:"query"`
}

func (c MsSQLConnection) GetName() string {
	return c.Name
}

type GoogleCloudPlatformConnection struct {
	Name                             string `yaml:"name" json:"name" mapstructure:"name" validate:"required"`
	ProjectID                        string `yaml:"project_id" json:"project_id" mapstructure:"project_id" validate:"required"`
	ServiceAccountJSON               string `yaml:"service_account_json,omitempty" json:"service_account_json,omitempty" mapstructure:"service_account_json"`
	ServiceAccountFile               string `yaml:"service_account_file,omitempty" json:"service_account_file,omitempty" mapstructure:"service_account_file"`
	Location                         string `yaml:"location,omitempty" json:"location,omitempty" mapstructure:"location"`
	UseApplicationDefaultCredentials bool   `yaml:"use_application_default_credentials,omitempty" json:"use_application_default_credentials,omitempty" mapstructure:"use_application_default_credentials"`
}

func (c GoogleCloudPlatformConnection) GetName() string {
	return c.Name
}

type Connections struct {
	Postgres            []PostgresConnection            `yaml:"postgres,omitempty" json:"postgres,omitempty" mapstructure:"postgres" validate:"dive"`
	Redshift            []RedshiftConnection            `yaml:"redshift,omitempty" json:"redshift,omitempty" mapstructure:"redshift" validate:"dive"`
	DuckDB              []DuckDBConnection              `yaml:"duckdb,omitempty" json:"duckdb,omitempty" mapstructure:"duckdb" validate:"dive"`
	Snowflake           []SnowflakeConnection           `yaml:"snowflake,omitempty" json:"snowflake,omitempty" mapstructure:"snowflake" validate:"dive"`
	Trino               []TrinoConnection               `yaml:"trino,omitempty" json:"trino,omitempty" mapstructure:"trino" validate:"dive"`
	Databricks          []DatabricksConnection          `yaml:"databricks,omitempty" json:"databricks,omitempty" mapstructure:"databricks" validate:"dive"`
	MsSQL               []MsSQLConnection               `yaml:"mssql,omitempty" json:"mssql,omitempty" mapstructure:"mssql" validate:"dive"`
	GoogleCloudPlatform []GoogleCloudPlatformConnection `yaml:"google_cloud_platform,omitempty" json:"google_cloud_platform,omitempty" mapstructure:"google_cloud_platform" validate:"dive"`
}

type named interface {
	GetName() string
}

func collectNames[T named](typeName string, conns []T, into map[string]string) []string {
	var duplicates []string
	for _, c := range conns {
		if _, ok := into[c.GetName()]; ok {
			duplicates = append(duplicates, c.GetName())
			continue
		}
		into[c.GetName()] = typeName
	}
	return duplicates
}

// ConnectionTypes maps every connection name to its type key, e.g. "postgres".
func (c *Connections) ConnectionTypes() (map[string]string, []string) {
	types := make(map[string]string)
	var duplicates []string

	duplicates = append(duplicates, collectNames("postgres", c.Postgres, types)...)
	duplicates = append(duplicates, collectNames("redshift", c.Redshift, types)...)
	duplicates = append(duplicates, collectNames("duckdb", c.DuckDB, types)...)
	duplicates = append(duplicates, collectNames("snowflake", c.Snowflake, types)...)
	duplicates = append(duplicates, collectNames("trino", c.Trino, types)...)
	duplicates = append(duplicates, collectNames("databricks", c.Databricks, types)...)
	duplicates = append(duplicates, collectNames("mssql", c.MsSQL, types)...)
	duplicates = append(duplicates, collectNames("google_cloud_platform", c.GoogleCloudPlatform, types)...)

	return types, duplicates
}
