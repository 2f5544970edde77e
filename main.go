package main

import (
	"os"
	"time"

	"github.com/bruin-data/timerange-merge/cmd"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = ""
)

func main() {
	isDebug := false
	color.NoColor = false

	versionCommand := cmd.VersionCmd(commit)

	cli.VersionPrinter = func(cCtx *cli.Context) {
		err := versionCommand.Action(cCtx)
		if err != nil {
			panic(err)
		}
	}

	app := &cli.App{
		Name:     "trmerge",
		Version:  version,
		Usage:    "Merge time range batches of SQL assets into their tables",
		Compiled: time.Now(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "debug",
				Value:       false,
				Usage:       "show debug information",
				Destination: &isDebug,
			},
		},
		Commands: []*cli.Command{
			cmd.Validate(),
			cmd.Render(),
			cmd.Run(&isDebug),
			cmd.Internal(),
			versionCommand,
		},
	}

	_ = app.Run(os.Args)
}
