// main package for the tts-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/audio"
	"github.com/book-expert/unit-tts/internal/composer"
	"github.com/book-expert/unit-tts/internal/config"
	"github.com/book-expert/unit-tts/internal/library"
	"github.com/book-expert/unit-tts/internal/objectstore"
	"github.com/book-expert/unit-tts/internal/worker"
	"github.com/nats-io/nats.go"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "tts-service-bootstrap.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	// 4. Build the synthesizer from the dataset
	processor, err := newProcessor(cfg, finalLog)
	if err != nil {
		finalLog.Error("Failed to build synthesizer: %v", err)

		return err
	}

	// 5. Connect to NATS and bind the object stores
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		finalLog.Error("Failed to connect to NATS at %s: %v", cfg.NATS.URL, err)

		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer natsConnection.Close()

	stores, err := newStores(natsConnection, cfg, finalLog)
	if err != nil {
		finalLog.Error("Failed to bind object stores: %v", err)

		return err
	}

	natsWorker, err := worker.NewNatsWorker(
		natsConnection,
		worker.Subjects{
			TextProcessed:     cfg.NATS.TextProcessedSubject,
			AudioChunkCreated: cfg.NATS.AudioChunkCreatedSubject,
		},
		stores,
		processor,
		finalLog,
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	// 6. Serve until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	finalLog.System("TTS-Service successfully initialized from dataset %s.", cfg.Paths.DatasetDir)

	runErr := natsWorker.Run(ctx)
	if runErr != nil {
		finalLog.Error("Worker stopped with error: %v", runErr)

		return fmt.Errorf("worker failed: %w", runErr)
	}

	finalLog.System("TTS-Service shut down.")

	return nil
}

func newProcessor(cfg *config.Config, log *logger.Logger) (*composer.Processor, error) {
	codec := audio.NewWAVCodec()

	unitLibrary, err := library.New(
		cfg.Paths.DatasetDir,
		codec,
		log,
		library.WithCacheSize(cfg.Composer.CacheSize),
		library.WithCrossfade(cfg.Composer.SyllableCrossfade),
		library.WithManifestFile(cfg.Paths.ManifestFile),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load unit library: %w", err)
	}

	wordComposer, err := composer.New(unitLibrary, cfg.ComposerSettings(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create composer: %w", err)
	}

	processor, err := composer.NewProcessor(wordComposer, codec, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}

	return processor, nil
}

func newStores(natsConnection *nats.Conn, cfg *config.Config, log *logger.Logger) (worker.Stores, error) {
	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return worker.Stores{}, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	textStore, err := objectstore.New(jetstreamContext, cfg.NATS.TextObjectStoreBucket)
	if err != nil {
		return worker.Stores{}, err
	}

	audioStore, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return worker.Stores{}, err
	}

	log.Info("Bound object stores %s (text) and %s (audio)", textStore.Bucket(), audioStore.Bucket())

	return worker.Stores{Text: textStore, Audio: audioStore}, nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
