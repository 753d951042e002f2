// Package chat provides the conversational product-resolution bounded
// context.
package chat

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"shopchat_backend/internal/catalog/repository"
	"shopchat_backend/internal/chat/agent"
	"shopchat_backend/internal/chat/handler"
	"shopchat_backend/internal/chat/imagesearch"
	"shopchat_backend/internal/chat/oracle"
	"shopchat_backend/internal/chat/ports"
	"shopchat_backend/internal/chat/session"
	apphttp "shopchat_backend/internal/http"
	"shopchat_backend/platform/ai/imageembed"
	"shopchat_backend/platform/ai/openaichat"
	"shopchat_backend/platform/config"
	"shopchat_backend/platform/logger"
	"shopchat_backend/platform/qdrant"
	"shopchat_backend/platform/validator"
)

// Module is the chat bounded context implementing http.Module.
type Module struct {
	handler    *handler.Handler
	dispatcher *agent.Dispatcher
}

// NewModule wires the full chat pipeline.
func NewModule(pool *pgxpool.Pool, redisClient *redis.Client, cfg *config.Config, val *validator.Validator, log *logger.Logger) *Module {
	gateway := repository.New(pool, log)

	llm := openaichat.NewModel(openaichat.Config{
		APIKey:  cfg.GetOracleAPIKey(),
		BaseURL: cfg.GetOracleBaseURL(),
		Model:   cfg.GetOracleModel(),
	})
	orc := oracle.New(llm, log)

	store := session.New(redisClient, cfg.GetSessionTTL())

	var images ports.ImageSearcher
	if cfg.IsImageSearchEnabled() {
		images = imagesearch.New(
			imageembed.NewClient(imageembed.Config{
				BaseURL: cfg.GetImageEmbedURL(),
				APIKey:  cfg.GetImageEmbedAPIKey(),
			}),
			qdrant.NewClient(qdrant.Config{
				BaseURL:    cfg.GetVectorSearchURL(),
				APIKey:     cfg.GetVectorSearchAPIKey(),
				Collection: cfg.GetVectorSearchCollection(),
			}),
		)
	}

	dispatcher := agent.NewDispatcher(
		orc, gateway, images, store, log,
		cfg.GetAttemptBudget(), cfg.GetMaxCandidates(),
		cfg.GetNarrowLimit(), cfg.GetTurnCap(),
		cfg.GetRequestTimeout(),
	)

	return &Module{
		handler:    handler.New(dispatcher, val),
		dispatcher: dispatcher,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "chat"
}

// RegisterRoutes mounts the chat endpoint, both versioned and at the root
// for clients speaking the bare protocol.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1)
	m.handler.RegisterRoutes(ctx.Engine.Group(""))
}
