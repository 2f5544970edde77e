package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	fs2 "io/fs"
	"os"
	"path"
	"sort"
	"strings"

	path2 "github.com/bruin-data/timerange-merge/pkg/path"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	errors2 "github.com/pkg/errors"
	"github.com/spf13/afero"
)

const DefaultEnvironmentName = "default"

type Environment struct {
	Connections *Connections `yaml:"connections" json:"connections" mapstructure:"connections"`
}

type Config struct {
	fs   afero.Fs
	path string

	DefaultEnvironmentName  string                 `yaml:"default_environment" json:"default_environment_name"`
	SelectedEnvironmentName string                 `yaml:"-" json:"selected_environment_name"`
	SelectedEnvironment     *Environment           `yaml:"-" json:"selected_environment"`
	Environments            map[string]Environment `yaml:"environments" json:"environments"`
}

type rawConfig struct {
	DefaultEnvironmentName string                    `yaml:"default_environment"`
	Environments           map[string]rawEnvironment `yaml:"environments"`
}

type rawEnvironment struct {
	Connections map[string]any `yaml:"connections"`
}

func (c *Config) Persist() error {
	return path2.WriteYaml(c.fs, c.path, c)
}

func (c *Config) SelectEnvironment(name string) error {
	e, ok := c.Environments[name]
	if !ok {
		return fmt.Errorf("environment '%s' not found in the configuration file", name)
	}

	c.SelectedEnvironment = &e
	c.SelectedEnvironmentName = name
	return nil
}

func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadDotEnv exports the variables of the .env file next to the config file. Variables that
// are already set in the process environment win.
func LoadDotEnv(fs afero.Fs, configPath string) error {
	envPath := path.Join(path.Dir(configPath), ".env")
	file, err := fs.Open(envPath)
	if err != nil {
		if errors.Is(err, fs2.ErrNotExist) {
			return nil
		}
		return err
	}
	defer file.Close()

	values, err := godotenv.Parse(file)
	if err != nil {
		return errors2.Wrapf(err, "failed to parse '%s'", envPath)
	}

	for key, value := range values {
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}

	return nil
}

func LoadFromFile(fs afero.Fs, filePath string) (*Config, error) {
	buf, err := afero.ReadFile(fs, filePath)
	if err != nil {
		return nil, err
	}

	var raw rawConfig
	if err := path2.ConvertYamlToObject([]byte(os.ExpandEnv(string(buf))), &raw); err != nil {
		return nil, err
	}

	config := Config{
		fs:                     fs,
		path:                   filePath,
		DefaultEnvironmentName: raw.DefaultEnvironmentName,
		Environments:           make(map[string]Environment, len(raw.Environments)),
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	for name, env := range raw.Environments {
		conns, err := decodeConnections(env.Connections)
		if err != nil {
			return nil, errors2.Wrapf(err, "failed to read the connections of environment '%s'", name)
		}

		if err := validate.Struct(conns); err != nil {
			return nil, errors2.Wrapf(err, "invalid connections in environment '%s'", name)
		}

		if _, duplicates := conns.ConnectionTypes(); len(duplicates) > 0 {
			return nil, fmt.Errorf("duplicate connection names in environment '%s': %s", name, strings.Join(duplicates, ", "))
		}

		config.Environments[name] = Environment{Connections: conns}
	}

	if config.DefaultEnvironmentName == "" {
		config.DefaultEnvironmentName = DefaultEnvironmentName
	}

	e, ok := config.Environments[config.DefaultEnvironmentName]
	if !ok {
		e = Environment{Connections: &Connections{}}
	}

	config.SelectedEnvironment = &e
	config.SelectedEnvironmentName = config.DefaultEnvironmentName
	return &config, nil
}

func decodeConnections(raw map[string]any) (*Connections, error) {
	conns := &Connections{}
	if len(raw) == 0 {
		return conns, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           conns,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}

	return conns, nil
}

func LoadOrCreate(fs afero.Fs, filePath string) (*Config, error) {
	config, err := LoadFromFile(fs, filePath)
	if err != nil && !errors.Is(err, fs2.ErrNotExist) {
		return nil, err
	}

	if err == nil {
		return config, ensureConfigIsInGitignore(fs, filePath)
	}

	defaultEnv := Environment{
		Connections: &Connections{},
	}
	config = &Config{
		fs:   fs,
		path: filePath,

		DefaultEnvironmentName:  DefaultEnvironmentName,
		SelectedEnvironment:     &defaultEnv,
		SelectedEnvironmentName: DefaultEnvironmentName,
		Environments: map[string]Environment{
			DefaultEnvironmentName: defaultEnv,
		},
	}

	if err := config.Persist(); err != nil {
		return nil, fmt.Errorf("failed to persist config: %w", err)
	}

	return config, ensureConfigIsInGitignore(fs, filePath)
}

// ensureConfigIsInGitignore keeps the config file, which holds credentials, out of git.
func ensureConfigIsInGitignore(fs afero.Fs, filePath string) (err error) {
	gitignorePath := path.Join(path.Dir(filePath), ".gitignore")
	exists, err := afero.Exists(fs, gitignorePath)
	if err != nil {
		return err
	}

	fileNameToIgnore := path.Base(filePath)
	if !exists {
		return afero.WriteFile(fs, gitignorePath, []byte(fileNameToIgnore), 0o644)
	}

	content, err := afero.ReadFile(fs, gitignorePath)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == fileNameToIgnore {
			return nil
		}
	}

	file, err := fs.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func(open afero.File) {
		tempErr := open.Close()
		if tempErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close file: %w", tempErr))
		}
	}(file)

	_, err = file.Write([]byte("\n" + fileNameToIgnore))
	return err
}
