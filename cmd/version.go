package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

func VersionCmd(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Flags: []cli.Flag{outputFlag},
		Action: func(c *cli.Context) error {
			version := c.App.Version

			if c.String("output") == "json" {
				outputString, err := json.Marshal(VersionInfo{version, commit})
				if err != nil {
					return errors.Wrap(err, "failed to marshal the output")
				}
				fmt.Fprintln(c.App.Writer, string(outputString))

				return nil
			}

			fmt.Fprintf(c.App.Writer, "Current: %s (%s)\n", version, commit)
			return nil
		},
	}
}
