package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	appLog "icalfeed/internal/log"
)

const (
	appName    = "icalfeed"
	appVersion = "0.1.0"
)

func main() {
	app := cli.App{
		Name:    appName,
		Usage:   "Poll an iCalendar feed and publish the events around now",
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to config file",
				Value: "/etc/icalfeed/config.yaml",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Output debug messages",
			},
		},
		Before: func(c *cli.Context) error {
			if c.GlobalBool("debug") {
				appLog.SetLevel(appLog.LevelDebug)
			}
			return nil
		},
		Commands: []cli.Command{
			serveCmd,
			parseCmd,
			eventsCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
