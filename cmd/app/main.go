package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dispatch/cmd"
	"dispatch/internal/adapters/out/postgres/orderrepo"
	"dispatch/internal/adapters/out/postgres/storerepo"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"go.uber.org/multierr"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	configs, err := cmd.LoadConfig()
	if err != nil {
		log.Fatalf("Error reading config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	gormDB, err := openDatabase(configs)
	if err != nil {
		log.Fatalf("Error connecting to postgres: %v", err)
	}

	app, err := cmd.NewCompositionRoot(configs, gormDB, logger)
	if err != nil {
		log.Fatalf("Error building application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Ping(ctx); err != nil {
		logger.Warn("redis not reachable at startup", "error", err)
	}

	jobManager := app.CreateJobManager()
	if err := jobManager.StartAll(); err != nil {
		log.Fatalf("Error starting jobs: %v", err)
	}

	e, err := startWebServer(ctx, app, configs.HTTPPort)
	if err != nil {
		log.Fatalf("Error building http server: %v", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), configs.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	shutdownErr = multierr.Append(shutdownErr, e.Shutdown(shutdownCtx))
	shutdownErr = multierr.Append(shutdownErr, jobManager.StopAll(shutdownCtx))
	shutdownErr = multierr.Append(shutdownErr, app.Close())
	if shutdownErr != nil {
		log.Fatalf("Error during shutdown: %v", shutdownErr)
	}
}

func openDatabase(configs cmd.Config) (*gorm.DB, error) {
	gormDB, err := gorm.Open(pgdriver.Open(configs.DSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := gormDB.AutoMigrate(&storerepo.StoreDTO{}, &orderrepo.OrderDTO{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return gormDB, nil
}

func startWebServer(ctx context.Context, app *cmd.CompositionRoot, port string) (*echo.Echo, error) {
	server, err := app.CreateHTTPServer(ctx)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	server.RegisterRoutes(e)

	go func() {
		if err := e.Start(fmt.Sprintf("0.0.0.0:%s", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()
	return e, nil
}
