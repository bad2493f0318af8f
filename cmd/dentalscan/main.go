package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ironsheep/dentalscan/internal/config"
	"github.com/ironsheep/dentalscan/internal/httpapi"
	"github.com/ironsheep/dentalscan/internal/logging"
	"github.com/ironsheep/dentalscan/internal/model"
	"github.com/ironsheep/dentalscan/internal/model/onnx"
	"github.com/ironsheep/dentalscan/internal/model/remote"
	"github.com/ironsheep/dentalscan/internal/ocr"
	"github.com/ironsheep/dentalscan/internal/pipeline"
	"github.com/ironsheep/dentalscan/internal/server"
	"github.com/ironsheep/dentalscan/internal/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const shutdownTimeout = 10 * time.Second

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "dentalscan - dental radiograph analysis over MCP or HTTP")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage: dentalscan [options]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Options:")
	flag.PrintDefaults()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Environment variables override the config file, e.g.:")
	fmt.Fprintln(out, "  DENTALSCAN_LOG_LEVEL=debug       Enable debug logging")
	fmt.Fprintln(out, "  DENTALSCAN_BACKEND=remote        Use the HTTP inference service")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "In MCP mode the server speaks JSON-RPC on stdin/stdout and logs to stderr.")
}

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	httpMode := flag.Bool("http", false, "serve HTTP instead of MCP over stdio")
	showVersion := flag.Bool("version", false, "print version information")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("dentalscan %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dentalscan: %v\n", err)
		os.Exit(2)
	}
	if *httpMode {
		cfg.Server.Mode = config.ModeHTTP
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dentalscan: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("dentalscan stopped")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	log.WithFields(logrus.Fields{
		"version": Version,
		"commit":  GitCommit,
		"mode":    cfg.Server.Mode,
		"backend": cfg.Models.Backend,
	}).Info("starting dentalscan")

	backend, health, err := newBackend(cfg.Models)
	if err != nil {
		return err
	}
	defer backend.Close()

	store, err := storage.NewFS(cfg.Storage.UploadDir, cfg.Storage.PermanentDir)
	if err != nil {
		return err
	}

	deps := pipeline.Deps{
		Candidates: model.NewCandidateSource(backend, cfg.Pipeline.CandidateOptions()),
		Filter:     model.NewToothFilter(backend, cfg.Pipeline.ToothThreshold),
		Classifier: model.NewClassifier(backend, cfg.Pipeline.Contrast),
		Storage:    store,
		Log:        log,
	}
	if cfg.OCR.Enabled {
		deps.OCR = ocr.NewReader(cfg.OCR.Language, cfg.OCR.TessdataPrefix, cfg.OCR.MinConfidence)
	}

	pipe, err := pipeline.New(deps, pipeline.Options{
		Dedup:        cfg.Pipeline.DedupOptions(),
		StageTimeout: cfg.Pipeline.StageTimeout.Duration,
		SaveCrops:    cfg.Pipeline.SaveCrops,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Mode == config.ModeHTTP {
		return serveHTTP(ctx, cfg.Server, httpapi.NewHandler(pipe, httpapi.Options{
			Health:         health,
			Log:            log,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			Version:        Version,
		}), log)
	}
	return server.New(pipe, log, Version).Run(ctx, os.Stdin, os.Stdout)
}

// newBackend builds the configured inference backend. The health checker is
// nil for in-process backends.
func newBackend(cfg config.ModelsConfig) (model.Backend, httpapi.HealthChecker, error) {
	switch cfg.Backend {
	case config.BackendRemote:
		c := remote.NewClient(cfg.InferenceURL, cfg.Timeout.Duration)
		return c, c, nil
	case config.BackendONNX:
		detector := onnx.DefaultDetectorConfig(cfg.DetectorPath)
		detector.Size = cfg.DetectorSize
		detector.Anchors = cfg.Anchors

		tooth := onnx.DefaultToothScorerConfig(cfg.ToothPath)
		tooth.Size = cfg.ClassifySize
		disease := onnx.DefaultDiseaseConfig(cfg.DiseasePath)
		disease.Size = cfg.ClassifySize

		b, err := onnx.NewBackend(onnx.Config{
			LibraryPath: cfg.LibraryPath,
			Detector:    detector,
			Tooth:       tooth,
			Disease:     disease,
			Slots:       cfg.Slots,
			Threads:     cfg.Threads,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, nil, nil
	}
	return nil, nil, errors.Errorf("unknown model backend %q", cfg.Backend)
}

func serveHTTP(ctx context.Context, cfg config.ServerConfig, h *httpapi.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}
