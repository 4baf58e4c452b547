package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/fxnlabs/pipeline-node/internal/config"
	"github.com/fxnlabs/pipeline-node/internal/logger"
)

func main() {
	var cfgPath string

	app := &cli.App{
		Name:     "pipeline",
		Usage:    "N-way buffered streaming pipeline for throughput-oriented devices",
		Metadata: map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Value:       "config.yaml",
				Usage:       "Path to the config file",
				EnvVars:     []string{"PIPELINE_CONFIG"},
				Destination: &cfgPath,
			},
		},
		Before: func(c *cli.Context) error {
			c.App.Metadata["configPath"] = cfgPath
			if c.Args().First() == "config" {
				// config init must work before a config file exists
				return nil
			}
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			zapLogger, err := logger.New(cfg.Logger.Verbosity)
			if err != nil {
				return err
			}
			c.App.Metadata["config"] = cfg
			c.App.Metadata["logger"] = zapLogger.Named("pipeline")
			return nil
		},
		Commands: []*cli.Command{
			runCommand(),
			devicesCommand(),
			configCommands(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		if log, ok := app.Metadata["logger"].(*zap.Logger); ok && log != nil {
			log.Error("command failed", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
