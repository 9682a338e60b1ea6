package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/membox/pkg/adapter"
	"github.com/m-mizutani/membox/pkg/repository"
	"github.com/m-mizutani/membox/pkg/service/classifier"
	"github.com/m-mizutani/membox/pkg/service/substore"
	"github.com/m-mizutani/membox/pkg/usecase/memory"
	"github.com/m-mizutani/membox/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	logLevel string

	// Repository
	project    string
	database   string
	localStore bool
	partitions string

	// Adapters
	anthropicAPIKey string
	geminiProject   string
	geminiLocation  string
	classifyLLM     string
	bucket          string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("MEMBOX_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.BoolFlag{
			Name:        "local-store",
			Usage:       "Use the embedded in-memory store instead of Firestore",
			Sources:     cli.EnvVars("MEMBOX_LOCAL_STORE"),
			Destination: &cfg.localStore,
		},
		&cli.StringFlag{
			Name:        "partitions",
			Usage:       "Path to YAML file defining the sub-store partition layout",
			Sources:     cli.EnvVars("MEMBOX_PARTITIONS"),
			Destination: &cfg.partitions,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
			Destination: &cfg.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "classify-llm",
			Usage:       "Completion backend for memory classification (gemini or claude)",
			Value:       "gemini",
			Sources:     cli.EnvVars("MEMBOX_CLASSIFY_LLM"),
			Destination: &cfg.classifyLLM,
		},
	}
}

// setupLogger installs the default logger and attaches it to the context
func (cfg *config) setupLogger(ctx context.Context, w io.Writer) (context.Context, *slog.Logger) {
	logger := logging.New(cfg.logLevel, w)
	logging.SetDefault(logger)
	return logging.With(ctx, logger), logger
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation)
}

// newCompleter picks the completion backend for classification and profiles
func (cfg *config) newCompleter(gemini adapter.Gemini) (adapter.Completer, error) {
	switch cfg.classifyLLM {
	case "claude":
		if cfg.anthropicAPIKey == "" {
			return nil, goerr.New("anthropic-api-key is required for classify-llm=claude")
		}
		return adapter.NewClaude(cfg.anthropicAPIKey), nil
	case "gemini":
		return gemini, nil
	default:
		return nil, goerr.New("unknown classify-llm", goerr.V("value", cfg.classifyLLM))
	}
}

// newStore creates the embedding/similarity store
func (cfg *config) newStore(ctx context.Context, embedder repository.Embedder, completer adapter.Completer, partitions []substore.Partition) (repository.Store, error) {
	if cfg.localStore {
		return repository.NewChromem(embedder, repository.WithChromemCompleter(completer)), nil
	}

	if cfg.project == "" {
		return nil, goerr.New("project is required")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}

	names := []string{repository.DefaultPartition}
	for _, p := range partitions {
		names = append(names, p.Name)
	}

	return repository.NewFirestore(ctx, cfg.project, cfg.database, embedder, names,
		repository.WithCompleter(completer))
}

// newMemoryUseCase assembles the memory orchestrator and its router
func (cfg *config) newMemoryUseCase(ctx context.Context) (*memory.UseCase, *substore.Router, adapter.Gemini, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	completer, err := cfg.newCompleter(gemini)
	if err != nil {
		return nil, nil, nil, err
	}

	partitions, err := substore.LoadPartitions(cfg.partitions)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := cfg.newStore(ctx, gemini, completer, partitions)
	if err != nil {
		return nil, nil, nil, err
	}

	router := substore.New(store, partitions)
	uc := memory.New(store, classifier.New(completer), router)

	return uc, router, gemini, nil
}

// newStorage creates a new Storage adapter instance, or nil when no
// bucket is configured
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket == "" {
		return nil, nil
	}

	storage, err := adapter.NewStorage(ctx, cfg.bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}
