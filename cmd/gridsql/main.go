package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leengari/gridsql/internal/catalog"
	"github.com/leengari/gridsql/internal/config"
	"github.com/leengari/gridsql/internal/domain/data"
	"github.com/leengari/gridsql/internal/engine"
	"github.com/leengari/gridsql/internal/executor"
	"github.com/leengari/gridsql/internal/logging"
	"github.com/leengari/gridsql/internal/network"
	"github.com/leengari/gridsql/internal/repl"
)

func main() {
	serverMode := flag.Bool("server", false, "Run in server mode")
	configPath := flag.String("config", "", "Directory containing gridsql.yaml")
	metricsPort := flag.Int("metrics-port", 0, "Prometheus metrics port (0 disables)")
	demo := flag.Bool("demo", false, "Seed demo types and data")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, closeFn := logging.SetupLogger(cfg.SeqURL)
	defer closeFn()
	slog.SetDefault(logger)

	slog.Info("Starting GridSQL...", "partitions", cfg.Partitions)

	eng := engine.New(cfg, logger)
	eng.AddObserver(engine.NewLoggingObserver(logger))

	if *demo {
		if err := seedDemo(eng); err != nil {
			slog.Error("failed to seed demo data", "error", err)
			closeFn()
			os.Exit(1)
		}
		slog.Info("Demo data seeded")
	}

	if *metricsPort > 0 {
		go func() {
			addr := fmt.Sprintf(":%d", *metricsPort)
			slog.Info("Serving metrics", "addr", addr)
			if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	if cfg.Network.ClusterPort > 0 {
		go func() {
			local := executor.NewLocal(eng.Store(), eng.Indexes())
			if err := network.ServeCluster(cfg.Network.ClusterPort, cfg.Network.MaxConnections, local, logger); err != nil {
				slog.Error("cluster server failed", "error", err)
			}
		}()
	}

	if *serverMode {
		slog.Info("Starting Server mode...")
		if err := network.Start(cfg.Network.Port, cfg.Network.MaxConnections, eng, logger); err != nil {
			slog.Error("server failed", "error", err)
			closeFn()
			os.Exit(1)
		}
	} else {
		slog.Info("Starting REPL mode...")
		repl.Start(eng)
	}
}

// seedDemo registers the sample types and loads a small co-located
// data set so the REPL has something to query out of the box.
func seedDemo(eng *engine.Engine) error {
	if err := eng.RegisterType("Organization", "partitioned", []catalog.FieldSpec{
		{Name: "id", Type: catalog.IntType, Indexed: true},
		{Name: "name", Type: catalog.StringType, Indexed: true},
	}); err != nil {
		return err
	}
	if err := eng.RegisterType("Person", "partitioned", []catalog.FieldSpec{
		{Name: "id", Type: catalog.IntType, Indexed: true},
		{Name: "firstName", Type: catalog.StringType},
		{Name: "lastName", Type: catalog.StringType},
		{Name: "salary", Type: catalog.FloatType, Indexed: true},
		{Name: "orgId", Type: catalog.IntType, Indexed: true, Affinity: true},
	}); err != nil {
		return err
	}

	for i := 0; i < 3; i++ {
		err := eng.Put("Organization", int64(i), data.Row{"id": int64(i), "name": fmt.Sprintf("Org%d", i)})
		if err != nil {
			return err
		}
	}
	for i := 0; i < 5; i++ {
		id := int64(i + 3)
		err := eng.Put("Person", id, data.Row{
			"id":        id,
			"firstName": fmt.Sprintf("First%d", i),
			"lastName":  fmt.Sprintf("Last%d", i),
			"salary":    float64(id * 100),
			"orgId":     int64(i % 3),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
