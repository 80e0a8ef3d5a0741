package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-transcript/config"
	"github.com/nijaru/yt-transcript/db"
	"github.com/nijaru/yt-transcript/handlers"
	"github.com/nijaru/yt-transcript/logger"
	"github.com/nijaru/yt-transcript/storage"
	"github.com/nijaru/yt-transcript/transcript"
	"github.com/nijaru/yt-transcript/transcription"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := config.ValidateConfig(cfg); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	logCloser, err := logger.Setup(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to set up logging")
	}
	defer logCloser.Close()

	if err := db.InitializeDB(cfg.DBPath); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer func() {
		if err := db.DB.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close database")
		}
	}()

	proxy, err := cfg.TranscriptProxy()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid proxy configuration")
	}
	api := transcript.New(
		transcript.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		transcript.WithProxyConfig(proxy),
		transcript.WithClientVersion(cfg.ClientVersion),
		transcript.WithLogger(logrus.StandardLogger()),
	)

	service := transcription.NewTranscriptionService(api, nil)
	if cfg.Storage.Bucket != "" {
		spaces, err := storage.NewSpacesClient(context.Background(), storage.SpacesConfig{
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			Bucket:    cfg.Storage.Bucket,
		})
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize storage")
		}
		service.Exporter = spaces
		logrus.WithField("bucket", cfg.Storage.Bucket).Info("Exporting transcripts to object storage")
	}

	handlers.InitHandlers(cfg, service)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handlers.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logrus.WithField("port", cfg.ServerPort).Info("Listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatalf("Could not listen on :%s", cfg.ServerPort)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop

	logrus.Info("Shutting down the server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}
}
