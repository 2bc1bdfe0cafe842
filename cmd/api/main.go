package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dhruvpathak/finimport/internal/api/handlers"
	"github.com/dhruvpathak/finimport/internal/api/middleware"
	"github.com/dhruvpathak/finimport/internal/classify"
	"github.com/dhruvpathak/finimport/internal/domain"
	"github.com/dhruvpathak/finimport/internal/extract"
	"github.com/dhruvpathak/finimport/internal/fetch"
	"github.com/dhruvpathak/finimport/internal/jobs"
	"github.com/dhruvpathak/finimport/internal/jobs/inmemory"
	"github.com/dhruvpathak/finimport/internal/logger"
	"github.com/dhruvpathak/finimport/internal/pipeline"
	sinkbq "github.com/dhruvpathak/finimport/internal/sink/bigquery"
)

func main() {
	var (
		port      = flag.String("port", "8080", "HTTP server port")
		aiModel   = flag.String("ai-model", classify.DefaultModel, "Gemini model for categorization")
		aiTimeout = flag.Duration("ai-timeout", classify.DefaultTimeout, "timeout for the AI categorization call")
		noAI      = flag.Bool("no-ai", false, "disable the AI classification strategy entirely")
		workers   = flag.Int("workers", 5, "number of concurrent import workers")
		bqProject = flag.String("bq-project", os.Getenv("BQ_PROJECT"), "BigQuery project for the transactions sink (empty disables the sink)")
		bqDataset = flag.String("bq-dataset", os.Getenv("BQ_DATASET"), "BigQuery dataset for the transactions sink")
	)
	flag.Parse()

	log := logger.New()

	var ai classify.Strategy
	if !*noAI {
		ai = classify.NewGeminiClassifier(classify.AIConfig{Model: *aiModel, Timeout: *aiTimeout})
	} else {
		log.Warn().Msg("AI classification disabled - all imports use keyword rules")
	}

	parser := pipeline.New(pipeline.Config{AI: ai, Logger: log})

	var sink *sinkbq.Sink
	if *bqProject != "" && *bqDataset != "" {
		sink = sinkbq.New(sinkbq.Config{ProjectID: *bqProject, DatasetID: *bqDataset})
		log.Info().Str("project", *bqProject).Str("dataset", *bqDataset).Msg("BigQuery transactions sink enabled")
	} else {
		log.Warn().Msg("No BigQuery sink configured - parsed transactions are only returned to the caller")
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job *jobs.ImportJob) error {
		log.Info().
			Str("job_id", job.JobID).
			Str("filename", job.Filename).
			Msg("Processing import job")

		result, err := runImport(ctx, parser, job)
		job.Result = result
		if err != nil {
			return err
		}

		if sink != nil && result.Success {
			if err := sink.Insert(ctx, job.JobID, result.Transactions); err != nil {
				log.Error().Err(err).Str("job_id", job.JobID).Msg("BigQuery insert failed")
				return err
			}
		}

		log.Info().
			Str("job_id", job.JobID).
			Int("transactions", len(result.Transactions)).
			Bool("ai_used", result.AIUsed).
			Msg("Import job completed")
		return nil
	}

	go func() {
		log.Info().Int("workers", *workers).Msg("Starting import workers")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Import workers stopped with error")
		}
	}()

	parseHandler := handlers.NewParseHandler(parser, log)
	importsHandler := handlers.NewImportsHandler(jobQueue, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/parse", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			parseHandler.Parse(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/imports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			importsHandler.Create(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.Get(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", handlers.Health)

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting import API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing job queue")
	}

	log.Info().Msg("Server exited")
}

// runImport resolves the job's statement source and runs the pipeline.
// XLSX and PDF inputs are recognized by filename extension; everything else
// is treated as statement text.
func runImport(ctx context.Context, parser *pipeline.Parser, job *jobs.ImportJob) (*domain.ParseResult, error) {
	name := job.Filename
	if name == "" && job.GCSURI != "" {
		name = fetch.Filename(job.GCSURI)
	}
	ext := strings.ToLower(filepath.Ext(name))

	data := []byte(job.Content)
	if job.GCSURI != "" {
		fetched, err := fetch.FromGCS(ctx, job.GCSURI)
		if err != nil {
			return nil, err
		}
		data = fetched
	}

	switch ext {
	case ".xlsx":
		return parser.ParseXLSX(ctx, data, job.Options)
	case ".pdf":
		tmp, err := os.CreateTemp("", "statement-*.pdf")
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return nil, err
		}
		tmp.Close()

		text, err := extract.PDFText(tmp.Name())
		if err != nil {
			return nil, err
		}
		return parser.Parse(ctx, text, job.Options)
	default:
		return parser.Parse(ctx, string(data), job.Options)
	}
}
