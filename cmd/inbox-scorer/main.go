package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"inbox-scorer-go/internal/classifier"
	"inbox-scorer-go/internal/config"
	"inbox-scorer-go/internal/database"
	"inbox-scorer-go/internal/mailbox"
	"inbox-scorer-go/internal/metrics"
	"inbox-scorer-go/internal/pipeline"
	"inbox-scorer-go/internal/scheduler"
	"inbox-scorer-go/internal/server"
	"inbox-scorer-go/internal/store"
)

func main() {
	// Configure logging
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Inbox Scorer Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	// Initialize database
	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize metrics
	m := metrics.NewMetrics()

	// Initialize mailbox source
	var source mailbox.Source
	if cfg.Mailbox.UseIMAP {
		source, err = mailbox.NewIMAPSource(&cfg.Mailbox)
		if err != nil {
			logrus.Fatalf("Failed to create IMAP source: %v", err)
		}
		logrus.Info("Using IMAP for mailbox access")
	} else {
		source, err = mailbox.NewGmailSource(&cfg.Mailbox)
		if err != nil {
			logrus.Fatalf("Failed to create Gmail API source: %v", err)
		}
		logrus.Info("Using Gmail API for mailbox access")
	}

	// Initialize record store and classifier client
	recordStore := store.New(db)
	gptZero := classifier.NewGPTZeroClient(cfg.Classifier.APIURL, cfg.Classifier.APIKey, cfg.Classifier.Timeout)

	// Initialize the ingestion pipeline
	pipe := pipeline.New(source, recordStore, gptZero, m, &cfg.Scan)

	// Initialize scheduler
	sched := scheduler.NewScheduler(&cfg.Scheduler, pipe)

	// Initialize HTTP server
	handlers := server.NewHandlers(db, recordStore, sched)
	router := server.NewRouter(handlers)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start scheduler
	if err := sched.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop scheduler
	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}

	// Wait for in-flight runs to finish
	sched.Wait()

	// Shutdown HTTP server
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	// Close mailbox source
	if err := source.Close(); err != nil {
		logrus.Errorf("Failed to close mailbox source: %v", err)
	}

	logrus.Info("Server stopped gracefully")
}
