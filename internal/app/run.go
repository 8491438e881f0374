package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"analogfinder/internal/config"
	"analogfinder/internal/db"
	"analogfinder/internal/httpapi"
	"analogfinder/internal/metrics"
	"analogfinder/internal/migrate"
	"analogfinder/internal/modules/climate"
	"analogfinder/internal/modules/climate/repository"
	"analogfinder/internal/modules/climate/service"
	"analogfinder/internal/modules/climate/sources"
	"analogfinder/internal/modules/climate/views"
	"analogfinder/internal/mqtt"
)

// Version is set at build time with -ldflags "-X analogfinder/internal/app.Version=...".
var Version = "dev"

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// Run loads the index dataset, then serves HTTP until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"dataDir", cfg.DataDir,
		"dataMode", cfg.DataMode,
		"dataFromYear", cfg.DataFromYear,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if _, err := migrate.Run(ctx, dbConn, logger); err != nil {
		return err
	}
	logger.Info("database ready")

	opts := []service.Option{
		service.WithMetrics(metrics.NewMetrics()),
		service.WithLogger(logger),
	}

	// The publisher connects before the load so the first summary goes out
	// right away; a broker that is down only costs the startup timeout.
	var publisher *mqtt.Publisher
	var broker httpapi.ConnectionStatus
	if cfg.MQTTEnabled() {
		publisher = mqtt.NewPublisher(cfg, logger)
		connectCtx, connectCancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err = publisher.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing, summary is sent on reconnect)", "error", err)
		}
		opts = append(opts, service.WithPublisher(publisher))
		broker = publisher
		defer publisher.Disconnect()
	}

	repo := repository.NewRepository(dbConn)
	svc := service.NewService(repo, opts...)

	summary, err := svc.Load(ctx, NewLoader(cfg, logger))
	if err != nil {
		return err
	}
	logger.Info("climate dataset ready", "records", summary.Records, "indices", len(summary.Indices))

	mux := httpapi.NewMux(svc, cfg.StaticDir, broker)
	climate.RegisterFeature(mux, svc, logger)

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// NewLoader builds the dataset loader for cfg.DataMode.
func NewLoader(cfg config.Config, logger *slog.Logger) *sources.Loader {
	var opener sources.Opener
	switch cfg.DataMode {
	case config.DataModeRemote:
		opener = sources.NewHTTPOpener(cfg.FetchTimeout, "analogfinder/"+Version)
	default:
		opener = sources.DirOpener{Dir: cfg.DataDir}
	}
	return sources.NewLoader(opener,
		sources.WithFromYear(cfg.DataFromYear),
		sources.WithLogger(logger),
	)
}
