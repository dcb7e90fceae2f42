package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/armadillo-fleet/armadillo-core/internal/api"
	"github.com/armadillo-fleet/armadillo-core/internal/fleet"
	"github.com/armadillo-fleet/armadillo-core/internal/hierarchy"
	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/config"
	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/database"
	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/influxdb"
	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/logging"
	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/mqtt"
	"github.com/armadillo-fleet/armadillo-core/internal/ingest"
	"github.com/armadillo-fleet/armadillo-core/internal/telemetry"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the registry and telemetry API",
		Long: `Run the HTTP API, the live telemetry stream and, when enabled, MQTT
ingestion and the InfluxDB mirror. Stops cleanly on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
}

// run is the serve logic, separated from the command for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Armadillo Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if path == "" {
		log.Info("no config file found, using defaults")
	} else {
		log.Info("configuration loaded", "path", path)
	}

	log = logging.New(cfg.Logging, version)
	health := make(map[string]api.HealthChecker)

	// Registry and telemetry storage
	var (
		registry *fleet.Registry
		base     telemetry.Store
	)
	switch cfg.Telemetry.Storage {
	case config.StorageMemory:
		registry = fleet.NewMemoryRegistry()
		base = telemetry.NewMemoryStore()
		log.Warn("using in-memory storage, data is lost on shutdown")
	default:
		db, dbErr := openDatabase(ctx, cfg)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database ready", "path", cfg.Database.Path)

		registry = fleet.NewSQLiteRegistry(db.DB)
		base = telemetry.NewSQLiteStore(db.DB)
		health["database"] = db
	}

	// Observers: live stream always, InfluxDB mirror when enabled
	hub := api.NewHub(cfg.WebSocket, log)
	observers := []telemetry.Observer{hub}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		observers = append(observers, influxClient)
		health["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	store := telemetry.NewObserved(base, observers...)
	store.SetLogger(log)

	assembler := hierarchy.NewAssembler(registry, cfg.Hierarchy.MaxConcurrency)
	assembler.SetLogger(log)

	// MQTT ingestion
	if cfg.MQTT.Enabled {
		mqttClient, stopIngest, mqttErr := startIngest(ctx, cfg, store, log)
		if mqttErr != nil {
			return mqttErr
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		defer stopIngest()
		health["mqtt"] = mqttClient
	} else {
		log.Info("MQTT ingestion disabled")
	}

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Limits:    cfg.Telemetry,
		Logger:    log,
		Fleet:     registry,
		Assembler: assembler,
		Telemetry: store,
		Hub:       hub,
		Health:    health,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// API server, ingester, MQTT, InfluxDB, database.
	return nil
}

// openDatabase opens the SQLite database named in cfg.
func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// startIngest connects to the broker and subscribes the ingester to device
// telemetry. The returned func stops the ingester; the caller closes the client.
func startIngest(ctx context.Context, cfg *config.Config, store telemetry.Store, log *logging.Logger) (*mqtt.Client, func(), error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// #nosec G115 -- qos validated to 0..2 by config
	ingester, err := ingest.New(ingest.Options{
		Store:      store,
		Subscriber: client,
		QoS:        byte(cfg.MQTT.QoS),
		Logger:     log,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("creating ingester: %w", err)
	}
	if err := ingester.Start(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("starting ingester: %w", err)
	}
	log.Info("telemetry ingestion started", "topic", mqtt.Topics{}.AllTelemetry())

	return client, func() {
		stats := ingester.Stats()
		ingester.Stop()
		log.Info("telemetry ingestion stopped",
			"accepted", stats.Accepted,
			"rejected", stats.Rejected,
			"failed", stats.Failed,
		)
	}, nil
}
