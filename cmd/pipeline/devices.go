package main

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/fxnlabs/pipeline-node/internal/config"
	"github.com/fxnlabs/pipeline-node/internal/device"
)

func devicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "Show the available device backends",
		Action: func(c *cli.Context) error {
			cfg := c.App.Metadata["config"].(*config.Config)
			log := c.App.Metadata["logger"].(*zap.Logger)

			for _, backend := range []string{"cpu", "sim"} {
				opts := deviceOptions(cfg)
				opts.Backend = backend
				manager, err := device.NewManager(opts, zap.NewNop())
				if err != nil {
					log.Warn("backend unavailable", zap.String("backend", backend), zap.Error(err))
					continue
				}
				info := manager.GetDeviceInfo()
				log.Info("backend available",
					zap.String("backend", backend),
					zap.String("device", info.Name),
					zap.Bool("unified_memory", info.UnifiedMemory),
					zap.Int64("link_bandwidth_bytes_per_sec", info.LinkBandwidth))
				manager.Cleanup()
			}
			return nil
		},
	}
}
