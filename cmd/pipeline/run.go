package main

import (
	"fmt"
	"net/http"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/fxnlabs/pipeline-node/internal/config"
	"github.com/fxnlabs/pipeline-node/internal/device"
	"github.com/fxnlabs/pipeline-node/internal/workload"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Stream the configured workload through the pipeline",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "slots",
				Usage: "Override the configured overlap factor N",
			},
			&cli.BoolFlag{
				Name:  "compare",
				Usage: "Also run the sequential N=1 baseline and report the speedup",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := c.App.Metadata["config"].(*config.Config)
			log := c.App.Metadata["logger"].(*zap.Logger)

			banner := figure.NewFigure("Pipeline", "", true)
			banner.Print()

			slots := cfg.Pipeline.Slots
			if c.Int("slots") > 0 {
				slots = c.Int("slots")
			}

			if cfg.Metrics.ListenAddress != "" {
				http.Handle("/metrics", promhttp.Handler())
				go func() {
					log.Info("serving metrics", zap.String("address", cfg.Metrics.ListenAddress))
					if err := http.ListenAndServe(cfg.Metrics.ListenAddress, nil); err != nil {
						log.Error("metrics endpoint failed", zap.Error(err))
					}
				}()
			}

			manager, err := device.NewManager(deviceOptions(cfg), log)
			if err != nil {
				return err
			}
			defer manager.Cleanup()

			ctx := c.Context

			var sequential *workloadResult
			if c.Bool("compare") && slots > 1 {
				report, err := workload.Run(ctx, cfg, 1, manager, log.Named("baseline"))
				if err != nil {
					return err
				}
				sequential = &workloadResult{report.Elapsed.Seconds(), report.Throughput()}
			}

			report, err := workload.Run(ctx, cfg, slots, manager, log.Named("run"))
			if err != nil {
				return err
			}

			if sequential != nil {
				log.Info("overlap comparison",
					zap.Float64("sequential_seconds", sequential.seconds),
					zap.Float64("sequential_throughput", sequential.throughput),
					zap.Float64("overlapped_seconds", report.Elapsed.Seconds()),
					zap.Float64("overlapped_throughput", report.Throughput()),
					zap.Float64("speedup", sequential.seconds/report.Elapsed.Seconds()))
			}

			if !report.Passed() {
				return fmt.Errorf("validation failed for %d of %d requests",
					len(report.Failures), report.Requests+len(report.Failures))
			}
			log.Info("verdict",
				zap.String("result", "PASS"),
				zap.Int("slots", slots),
				zap.Int("requests", report.Requests),
				zap.Float64("throughput_elements_per_sec", report.Throughput()))
			return nil
		},
	}
}

type workloadResult struct {
	seconds    float64
	throughput float64
}

func deviceOptions(cfg *config.Config) device.Options {
	return device.Options{
		Backend: cfg.Device.Backend,
		Sim: device.SimOptions{
			LinkBandwidth:   cfg.Device.Sim.LinkBandwidth,
			TransferLatency: cfg.Device.Sim.TransferLatency,
			ComputeRate:     cfg.Device.Sim.ComputeRate,
		},
	}
}
