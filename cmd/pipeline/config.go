package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/fxnlabs/pipeline-node/fixtures"
)

func configCommands() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the config file",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a default config file",
				Action: func(c *cli.Context) error {
					path := c.App.Metadata["configPath"].(string)
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("%s already exists", path)
					}
					if err := os.WriteFile(path, fixtures.ConfigTemplate, 0644); err != nil {
						return err
					}
					fmt.Printf("wrote %s\n", path)
					return nil
				},
			},
		},
	}
}
