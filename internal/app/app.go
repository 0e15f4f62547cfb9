package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"wastedetect/internal/config"
	"wastedetect/internal/logger"
	"wastedetect/internal/routes"
	"wastedetect/internal/service"
	"wastedetect/internal/service/ai"
	"wastedetect/internal/service/imaging"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   *logger.Logger
	model    *ai.Model
	pipeline *service.Pipeline
}

// NewApp loads configuration and the detection model. A model that fails to
// load leaves the app running in degraded mode; it is never retried.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, logger: log}

	// Keep the interface nil when loading fails so the pipeline sees no model.
	var detector service.Detector
	if model, err := ai.Load(cfg, log); err != nil {
		log.Error("Error loading detection model: %v", err)
	} else {
		a.model = model
		detector = model
	}

	annotator := imaging.NewAnnotator(cfg.Annotate.FontPath, cfg.Annotate.FontSize, log)
	a.pipeline = service.NewPipeline(detector, annotator, cfg.Upload.MaxPixels, log)

	return a, nil
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	defer a.logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              a.config.Addr(),
		Handler:           routes.SetupRoutes(a.pipeline, a.config, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("Starting waste detection API on http://%s", a.config.Addr())
	a.logger.Info("Model: %s (loaded: %t)", a.config.Model.Path, a.pipeline.ModelLoaded())
	a.logger.Info("Try: curl -X POST -F 'image=@test.jpg' http://localhost:%d/detect", a.config.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		a.closeModel()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		a.logger.Warning("Shutdown timed out with requests still running")
		return err
	}
	a.closeModel()
	return err
}

func (a *App) closeModel() {
	if a.model == nil {
		return
	}
	if err := a.model.Close(); err != nil {
		a.logger.Error("Error releasing detection model: %v", err)
	}
}
