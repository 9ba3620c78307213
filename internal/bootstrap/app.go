package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docproc-backend/internal/contact"
	"docproc-backend/internal/conversions"
	"docproc-backend/internal/documents"
	"docproc-backend/internal/extract"
	"docproc-backend/internal/extract/ocr"
	"docproc-backend/internal/llm"
	openai "docproc-backend/internal/llm/openai"
	"docproc-backend/internal/queue"
	"docproc-backend/internal/services/health"
	"docproc-backend/internal/shared/config"
	"docproc-backend/internal/shared/server"
	"docproc-backend/internal/shared/storage/db"
	"docproc-backend/internal/shared/storage/object"
	localstore "docproc-backend/internal/shared/storage/object/local"
	s3store "docproc-backend/internal/shared/storage/object/s3"
	"docproc-backend/internal/shared/telemetry"
	"docproc-backend/internal/store"
	"docproc-backend/internal/users"
)

const (
	defaultRegion     = "us-east-1"
	memoryQueueSize   = 256
	ocrMaxConcurrency = 2
)

// App holds shared dependencies.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	DB          *sql.DB
	Files       object.ObjectStore
	Store       store.Store
	Queue       queue.Client
	Dispatcher  *extract.Dispatcher
	Documents   *documents.Service
	Conversions *conversions.Service
	Users       *users.Service
	// Worker drains the in-process conversion queue. It is nil when jobs go
	// to SQS and are handled by cmd/worker or cmd/lambda-worker.
	Worker *conversions.Worker
}

// Build prepares shared dependencies and wires routes. The conversion
// worker is built but not started.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.AWSRegion) == "" {
		cfg.AWSRegion = defaultRegion
	}
	telemetry.SetLevel(cfg.LogLevel)
	ctx := context.Background()

	// Lambda freezes between invocations, so nothing would drain an
	// in-process queue there.
	lambda := db.IsLambdaRuntime()
	if lambda && strings.TrimSpace(cfg.ConversionSQSQueueURL) == "" {
		return nil, fmt.Errorf("lambda runtime requires CONVERSION_SQS_QUEUE_URL")
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	files, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	st := store.NewMemory()
	if sqlDB != nil {
		st = store.NewPostgres(sqlDB)
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	var (
		recognizer extract.Recognizer
		ocrVersion string
	)
	if len(cfg.OCRLanguages) > 0 {
		tess := ocr.NewTesseract(cfg.OCRLanguages, ocrMaxConcurrency)
		recognizer = tess
		ocrVersion = tess.Version()
	}
	dispatcher := extract.NewDispatcher(files, extract.NewDefaultRegistry(extract.Options{Recognizer: recognizer}))

	app := &App{
		Config:     cfg,
		DB:         sqlDB,
		Files:      files,
		Store:      st,
		Dispatcher: dispatcher,
	}

	app.Documents = &documents.Service{
		Repo:              st.Documents,
		Files:             files,
		Extractor:         dispatcher,
		LLM:               llmClient,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		ExtractionTimeout: cfg.ExtractionTimeout,
		Synchronous:       lambda,
	}

	q, memQueue, err := buildQueue(ctx, cfg, st.Durable)
	if err != nil {
		return nil, err
	}
	app.Queue = q
	app.Conversions = conversions.NewService(st.Conversions, app.Documents, files, q)
	if memQueue != nil {
		app.Worker = &conversions.Worker{Svc: app.Conversions, Queue: memQueue, Size: cfg.ConversionWorkers}
	}
	app.Users = users.NewService(st.Users)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		Health:            health.NewService(sqlDB, cfg.ObjectStoreType, cfg.LLMProvider, ocrVersion),
		DocumentHandler:   documents.NewHandler(app.Documents),
		ConversionHandler: conversions.NewHandler(app.Conversions),
		UserHandler:       users.NewHandler(app.Users),
		ContactHandler:    contact.NewHandler(),
	})

	return app, nil
}

// Start launches background workers.
func (a *App) Start(ctx context.Context) {
	if a.Worker != nil {
		a.Worker.Start(ctx)
	}
}

// Shutdown drains background work and closes the database.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Worker != nil {
		if err := a.Worker.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("conversion worker: %w", err))
		}
	}
	done := make(chan struct{})
	go func() {
		a.Documents.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("background extraction: %w", ctx.Err()))
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
		return nil, nil
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if !db.IsLambdaRuntime() {
		migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := db.RunMigrations(migrateCtx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildObjectStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider != "openai" {
		return llm.PlaceholderClient{}, nil
	}
	client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
	if err != nil {
		return nil, err
	}
	return llm.WithRetry(client), nil
}

// buildQueue picks SQS when configured with a durable store, otherwise an
// in-process queue. SQS with a memory store would leave the worker process
// unable to see the conversions.
func buildQueue(ctx context.Context, cfg config.Config, durable bool) (queue.Client, *queue.MemoryQueue, error) {
	if url := strings.TrimSpace(cfg.ConversionSQSQueueURL); url != "" {
		if durable {
			client, err := queue.NewSQSClient(ctx, cfg.AWSRegion, url)
			if err != nil {
				return nil, nil, err
			}
			return client, nil, nil
		}
		if !isDevLike(cfg.Env) || db.IsLambdaRuntime() {
			return nil, nil, fmt.Errorf("CONVERSION_SQS_QUEUE_URL requires DATABASE_URL")
		}
		log.Printf("bootstrap: CONVERSION_SQS_QUEUE_URL ignored without a database; using in-process queue")
	}
	mem := queue.NewMemoryQueue(memoryQueueSize)
	return mem, mem, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
