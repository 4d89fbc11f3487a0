package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/subosito/gotenv"

	"github.com/companionkit/agentic/adapters/events"
	"github.com/companionkit/agentic/adapters/hasher"
	httpadapter "github.com/companionkit/agentic/adapters/http"
	"github.com/companionkit/agentic/adapters/llm"
	"github.com/companionkit/agentic/adapters/ratelimit"
	"github.com/companionkit/agentic/adapters/retrieval"
	"github.com/companionkit/agentic/adapters/storage/memory"
	"github.com/companionkit/agentic/adapters/storage/sqlite"
	"github.com/companionkit/agentic/adapters/websocket"
	"github.com/companionkit/agentic/config"
	"github.com/companionkit/agentic/domain"
	"github.com/companionkit/agentic/usecase"
)

func main() {
	gotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	var completion domain.CompletionClient
	switch cfg.LLM.Provider {
	case "gemini":
		log.Println("[LLM] Using Gemini completion backend")
		gemini, err := llm.NewGeminiClient(ctx, cfg.LLM)
		if err != nil {
			log.Fatalf("error initializing Gemini client: %v", err)
		}
		completion = gemini
	default:
		log.Println("[LLM] Using OpenAI-compatible completion backend")
		completion = llm.NewOpenAIClient(cfg.LLM)
	}

	var conversationStore domain.ConversationStore
	var personaStore domain.PersonaStore
	switch cfg.Storage.Backend {
	case "memory":
		log.Println("[STORE] Using in-memory storage")
		conversationStore = memory.NewConversationStore()
		personaStore = memory.NewPersonaStore()
	default:
		log.Printf("[STORE] Using sqlite storage (%s)", cfg.Storage.DSN)
		store, err := sqlite.NewStore(cfg.Storage.DSN)
		if err != nil {
			log.Fatalf("error initializing sqlite store: %v", err)
		}
		defer store.Close()
		conversationStore = store
		personaStore = store
	}

	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Close()
	retriever := retrieval.NewClient(cfg.Retrieval)
	broker := events.NewChannelBroker()
	defer broker.Close()

	svc := usecase.NewChatService(
		limiter,
		hasher.New(),
		personaStore,
		retriever,
		completion,
		conversationStore,
		broker,
	)

	feed := websocket.NewServer(broker)
	feed.RunHub()

	handler := httpadapter.NewConversationHandler(svc, cfg.Auth)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit("1MB"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"X-API-Key",
			"X-API-Secret",
		},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	wsGroup := e.Group("/ws")
	wsGroup.Use(handler.JWTMiddleware)
	wsGroup.GET("", feed.Handler)

	api := e.Group("/api/v1")
	api.GET("/health", handler.HealthCheck)
	api.POST("/auth/token", handler.GenerateJWT)

	conversation := api.Group("/conversation")
	conversation.Use(handler.JWTMiddleware)
	conversation.POST("/:personaId", handler.Converse)
	conversation.GET("/:personaId", handler.History)
	conversation.DELETE("/:personaId", handler.Reset)

	log.Println("Starting server on :" + cfg.Server.Port)
	log.Println("Available endpoints:")
	log.Println("  GET    /api/v1/health                    - Health check")
	log.Println("  POST   /api/v1/auth/token                - Get JWT token")
	log.Println("  POST   /api/v1/conversation/:personaId   - Converse (JWT required)")
	log.Println("  GET    /api/v1/conversation/:personaId   - History (JWT required)")
	log.Println("  DELETE /api/v1/conversation/:personaId   - Reset (JWT required)")
	log.Println("  GET    /ws                               - Exchange feed (JWT required)")
	log.Fatal(e.Start(":" + cfg.Server.Port))
}
