//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/batch"
	"github.com/fogfish/logger/v3"
	"github.com/fogfish/suitestarter/internal/config"
	"github.com/fogfish/suitestarter/internal/esr"
	"github.com/fogfish/suitestarter/internal/events"
	"github.com/fogfish/suitestarter/internal/gateway"
	"github.com/fogfish/suitestarter/internal/keepalive"
	"github.com/fogfish/suitestarter/internal/metrics"
	"github.com/fogfish/suitestarter/internal/scheduler"
	"github.com/fogfish/suitestarter/internal/starter"
	"github.com/fogfish/suitestarter/internal/telemetry"
	"github.com/fogfish/swarm"
	"github.com/fogfish/swarm/broker/sqs"
	"github.com/fogfish/swarm/queue"
	"github.com/spf13/cobra"
)

const service = "etos-suite-starter"

// Version of suite starter, injected at build time
var Version = "v0.0.0"

var (
	templatePath string
	verbosity    int
	veryVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:           "suite-starter",
	Short:         "ETOS Suite Starter",
	Long:          "Suite starter launches ETOS suite runner job for each TERCC event.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&templatePath, "template", "", "path to suite runner job template (local file or s3://bucket/key)")
	rootCmd.Flags().CountVarP(&verbosity, "verbose", "v", "set log level to INFO, -vv to DEBUG")
	rootCmd.Flags().BoolVar(&veryVerbose, "very-verbose", false, "set log level to DEBUG")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("suite starter failed", "err", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	setupLogger(logLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	if templatePath != "" {
		settings.TemplatePath = templatePath
	}

	cfg := config.FromEnv()

	shutdown, err := telemetry.Setup(ctx, service, Version, tracingEndpoint(settings, cfg))
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "err", err)
		}
	}()

	tmpl, err := esr.Load(settings.TemplatePath, cfg)
	if err != nil {
		return err
	}

	sched, err := newScheduler(ctx, settings)
	if err != nil {
		return err
	}

	if settings.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(settings.MetricsAddr); err != nil {
				slog.Error("metrics listener failed", "err", err)
			}
		}()
	}

	suiteStarter := starter.New(cfg, tmpl, sched)

	closer, err := subscribe(settings, suiteStarter.SuiteRunnerCallback)
	if err != nil {
		return err
	}
	defer closer()

	body := fmt.Sprintf(
		"Suite starter is running and listening to events in the Eiffel context.\nETOS Suite Runner: %s",
		cfg.SuiteRunnerImage,
	)
	keepalive.Run(ctx, settings.KeepAlive, body)

	return nil
}

func newScheduler(ctx context.Context, settings *config.Settings) (scheduler.Submitter, error) {
	switch settings.Backend {
	case config.BackendBatch:
		aws, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to configure batch client: %w", err)
		}

		return scheduler.NewBatch(
			batch.NewFromConfig(aws),
			settings.BatchQueue,
			settings.BatchDefinition,
		), nil
	default:
		api, err := scheduler.NewClientset(settings.InCluster, settings.Kubeconfig)
		if err != nil {
			return nil, err
		}

		return scheduler.NewKubernetes(api, settings.Namespace), nil
	}
}

func subscribe(settings *config.Settings, callback gateway.Callback) (func(), error) {
	switch settings.Broker {
	case config.BrokerSwarm:
		q, err := sqs.New(settings.SwarmQueue, swarm.WithLogStdErr())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to queue %s: %w", settings.SwarmQueue, err)
		}

		// events enqueued by swarm carry category, raw Eiffel events do not
		gw := gateway.NewSwarm(callback)
		for _, category := range []string{events.EVENT_TERCC, ""} {
			go gw.Run(queue.Dequeue[*events.TERCC](q, category))
		}
		go q.Await()

		return q.Close, nil
	default:
		conn, err := gateway.ConnectNATS(settings.NATS.URL, service)
		if err != nil {
			return nil, err
		}

		js, err := conn.JetStream()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to open JetStream: %w", err)
		}

		if err := gateway.EnsureStream(js, settings.NATS.Stream, settings.NATS.Subject); err != nil {
			conn.Close()
			return nil, err
		}

		gw := gateway.NewNATS(js, settings.NATS.Subject, settings.NATS.Queue, callback,
			gateway.WithRedelivery(settings.NATS.RedeliveryDelay, settings.NATS.MaxDeliver),
		)
		if err := gw.Subscribe(); err != nil {
			conn.Close()
			return nil, err
		}

		return func() {
			if err := gw.Close(); err != nil {
				slog.Warn("unsubscribe failed", "err", err)
			}
			if err := conn.Drain(); err != nil {
				slog.Warn("nats drain failed", "err", err)
			}
		}, nil
	}
}

//------------------------------------------------------------------------------

// endpoint of OTLP collector, empty if tracing is disabled
func tracingEndpoint(settings *config.Settings, cfg config.Config) string {
	if config.IsSet(cfg.OTelEndpoint) {
		return cfg.OTelEndpoint
	}
	if config.IsSet(settings.OTelEndpoint) {
		return settings.OTelEndpoint
	}
	return ""
}

func logLevel() slog.Level {
	switch {
	case veryVerbose || verbosity > 1:
		return slog.LevelDebug
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

func setupLogger(level slog.Level) {
	slog.SetDefault(
		logger.New(
			logger.WithLogLevel(level),
			logger.WithLogLevel7(),
			logger.WithSourceShorten(),
			logger.WithoutTimestamp(),
		),
	)
}
