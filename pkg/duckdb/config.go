package duck

type Config struct {
	Path string
}

// ToDBConnectionURI returns the DSN used with the go-duckdb driver.
func (c Config) ToDBConnectionURI() string {
	return c.Path
}
