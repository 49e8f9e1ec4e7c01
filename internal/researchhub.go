package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgellow/research-hub/internal/config"
	"github.com/dgellow/research-hub/internal/log"
	"github.com/dgellow/research-hub/internal/orcid"
	"github.com/dgellow/research-hub/internal/pipeline"
	"github.com/dgellow/research-hub/internal/server"
	"github.com/dgellow/research-hub/internal/storage"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server
const shutdownTimeout = 30 * time.Second

// ResearchHub is the backend: public OAuth configuration, the ORCID code
// exchange, the durable profile store and the query relay.
type ResearchHub struct {
	config     config.Config
	httpServer *server.HTTPServer
	storage    storage.ProfileStorage
}

// NewResearchHub creates the backend with all dependencies built
func NewResearchHub(ctx context.Context, cfg config.Config) (*ResearchHub, error) {
	log.LogInfoWithFields("researchhub", "Building research hub backend", map[string]any{
		"baseURL": cfg.Server.BaseURL,
		"storage": string(cfg.Storage.Kind),
	})

	store, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	provider := orcid.NewProvider(
		cfg.ORCID.ClientID,
		string(cfg.ORCID.ClientSecret),
		cfg.ORCID.RedirectURI,
		cfg.ORCID.BaseURL,
		cfg.ORCID.Scope,
		orcid.WithAPIBaseURL(cfg.ORCID.APIBaseURL),
	)

	handler := buildHTTPHandler(cfg, provider, store, setupPipeline(cfg.Pipeline))

	return &ResearchHub{
		config:     cfg,
		httpServer: server.NewHTTPServer(handler, cfg.Server.Addr),
		storage:    store,
	}, nil
}

// Run serves until ctx is cancelled or the server fails, then shuts down
func (h *ResearchHub) Run(ctx context.Context) error {
	log.LogInfoWithFields("researchhub", "Starting research hub", map[string]any{
		"addr": h.config.Server.Addr,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := h.httpServer.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		reason := "context cancelled"
		if cause := context.Cause(gctx); cause != nil && !errors.Is(cause, context.Canceled) {
			reason = cause.Error()
		}
		log.LogInfoWithFields("researchhub", "Starting graceful shutdown", map[string]any{
			"reason":  reason,
			"timeout": shutdownTimeout.String(),
		})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return h.httpServer.Stop(shutdownCtx)
	})

	err := g.Wait()
	if cerr := h.storage.Close(); cerr != nil {
		log.LogWarnWithFields("researchhub", "Failed to close storage", map[string]any{
			"error": cerr.Error(),
		})
	}
	if err != nil {
		return err
	}

	log.LogInfoWithFields("researchhub", "Application shutdown complete", nil)
	return nil
}

// OpenStorage creates the profile store selected by configuration
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.ProfileStorage, error) {
	switch cfg.Kind {
	case config.StorageFirestore:
		if cfg.FirestoreCollection == "" {
			cfg.FirestoreCollection = storage.DefaultFirestoreCollection
		}
		log.LogInfoWithFields("storage", "Using Firestore storage", map[string]any{
			"project":    cfg.GCPProject,
			"database":   cfg.FirestoreDatabase,
			"collection": cfg.FirestoreCollection,
		})
		fs, err := storage.NewFirestoreStorage(ctx, cfg.GCPProject, cfg.FirestoreDatabase, cfg.FirestoreCollection)
		if err != nil {
			return nil, fmt.Errorf("failed to create Firestore storage: %w", err)
		}
		return fs, nil
	case config.StorageRedis:
		log.LogInfoWithFields("storage", "Using Redis storage", map[string]any{
			"prefix": cfg.RedisKeyPrefix,
		})
		client, err := storage.ConnectRedis(ctx, storage.RedisConfig{
			URL:       string(cfg.RedisURL),
			KeyPrefix: cfg.RedisKeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return storage.NewRedisStorage(client, cfg.RedisKeyPrefix), nil
	default:
		log.LogInfoWithFields("storage", "Using in-memory storage", map[string]any{})
		return storage.NewMemoryStorage(), nil
	}
}

func setupPipeline(cfg *config.PipelineConfig) pipeline.Processor {
	if cfg == nil || cfg.UpstreamURL == "" {
		log.LogInfoWithFields("researchhub", "No query pipeline configured", nil)
		return nil
	}
	return pipeline.NewUpstream(cfg.UpstreamURL, cfg.Timeout)
}

// buildHTTPHandler creates the complete HTTP handler with all routing and middleware
func buildHTTPHandler(cfg config.Config, exchanger server.TokenExchanger, store storage.ProfileStorage, processor pipeline.Processor) http.Handler {
	mux := http.NewServeMux()
	api := server.NewAPIHandlers(cfg.ORCID, exchanger, store, processor)
	api.Routes(mux, cfg.Server.AllowedOrigins)
	return mux
}
