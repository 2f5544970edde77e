package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/bruin-data/timerange-merge/pkg/config"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func Internal() *cli.Command {
	return &cli.Command{
		Name:   "internal",
		Hidden: true,
		Subcommands: []*cli.Command{
			ConnectionSchema(),
		},
	}
}

func ConnectionSchema() *cli.Command {
	return &cli.Command{
		Name:  "connection-schema",
		Usage: "print the JSON schema of the connections of an environment",
		Action: func(c *cli.Context) error {
			js, err := connectionSchemaJSON()
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, string(js))
			return nil
		},
	}
}

func connectionSchemaJSON() ([]byte, error) {
	r := &jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&config.Connections{})

	js, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal the connection schema")
	}
	return js, nil
}
