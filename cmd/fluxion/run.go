package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/fluxion/pkg/events"
	"github.com/cuemby/fluxion/pkg/log"
	"github.com/cuemby/fluxion/pkg/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the fluxion pipeline",
	Long: `Run wires a Pulsar source through the ddparser, tailsample,
aggregate, and reduce transforms into a logging sink, and serves it
until interrupted.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().String("pulsar-endpoint", "pulsar://localhost:6650", "Pulsar broker endpoint")
	runCmd.Flags().StringSlice("pulsar-topic", nil, "Pulsar topic to consume (repeatable)")
	runCmd.Flags().String("data-dir", "./data", "Directory for persisted transform state")
	runCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address to serve /metrics on")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	endpoint, _ := cmd.Flags().GetString("pulsar-endpoint")
	topics, _ := cmd.Flags().GetStringSlice("pulsar-topic")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	if len(topics) == 0 {
		return fmt.Errorf("at least one --pulsar-topic is required")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	logger := log.WithPipeline("fluxion")
	diagnostics := broker.Subscribe()
	go func() {
		for ev := range diagnostics {
			logger.Warn().
				Str("kind", string(ev.Kind)).
				Str("component", ev.Component).
				Str("severity", string(ev.Severity)).
				Msg(ev.Message)
		}
	}()
	defer broker.Unsubscribe(diagnostics)

	metrics.SetVersion(Version)
	metrics.SetCriticalComponents("pulsar_source", "statestore")

	graph, store, err := buildPipeline(pipelineConfig{
		pulsarEndpoint: endpoint,
		pulsarTopics:   topics,
		dataDir:        dataDir,
	}, broker)
	if err != nil {
		metrics.RegisterComponent("pulsar_source", false, err.Error())
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer store.Close()

	metrics.RegisterComponent("pulsar_source", true, "consuming")
	metrics.RegisterComponent("statestore", true, "open")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())
	go func() {
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error().Err(err).Msg("metrics server exited")
		}
	}()
	logger.Info().Str("addr", metricsAddr).Msg("metrics endpoint listening")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- graph.Run(ctx) }()

	select {
	case <-sigCh:
		logger.Info().Msg("shutting down")
		cancel()
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}
