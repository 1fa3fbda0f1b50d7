package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"zotion/internal/auth"
	"zotion/internal/client"
	"zotion/internal/config"
	"zotion/internal/handler"
	"zotion/internal/handler/sse"
	"zotion/internal/livequery"
	"zotion/internal/llm/openrouter"
	"zotion/internal/middleware"
	"zotion/internal/palette"
	"zotion/internal/repository/postgres"
	"zotion/internal/search"
	"zotion/internal/service"
	"zotion/internal/service/rewrite"
	"zotion/internal/uistate"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, logCloser := config.NewLogger(cfg)
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// JWT verifier for Supabase authentication
	var verifier auth.JWTVerifier
	if cfg.AuthDisabled {
		verifier = &auth.StaticVerifier{UserID: cfg.DevUserID}
		logger.Warn("DEV MODE: token verification disabled", "user_id", cfg.DevUserID)
	} else {
		jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		verifier = jwtVerifier
	}
	defer verifier.Close()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	logger.Info("database connected", "documents_table", tables.Documents)

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	docRepo := postgres.NewDocumentRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Change fan-out: Redis when configured so every instance sees every mutation
	var broker livequery.Broker
	if cfg.RedisURL != "" {
		redisBroker, err := livequery.NewRedisBroker(cfg.RedisURL, logger)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		broker = redisBroker
	} else {
		broker = livequery.NewMemoryBroker()
		logger.Info("REDIS_URL not set, live queries are local to this instance")
	}
	defer broker.Close()

	var index search.Index
	if cfg.MeiliURL != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meili.Close()
		index = meili
	} else {
		logger.Info("MEILI_URL not set, search uses in-memory fuzzy matching")
	}
	searchService := search.NewService(index, logger)

	docService := service.NewDocumentService(docRepo, txManager, broker, searchService, logger)

	hub := livequery.NewHub(docService, broker, logger)
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("live query hub stopped", "error", err)
		}
	}()

	// AI rewrite: without a key the route answers 501
	var completer rewrite.Completer
	if cfg.HasRewriteCredential() {
		completer = openrouter.NewClient(openrouter.Config{
			APIKey:  cfg.OpenRouterAPIKey,
			BaseURL: cfg.OpenRouterBaseURL,
			Model:   cfg.OpenRouterModel,
			Referer: cfg.PublicURL,
		})
		logger.Info("rewrite provider configured", "model", cfg.OpenRouterModel)
	} else {
		logger.Warn("OPENROUTER_API_KEY not set, rewrite is disabled")
	}
	rewriteService, err := rewrite.NewService(completer, cfg.RewriteTimeout, logger)
	if err != nil {
		log.Fatalf("Failed to load rewrite prompts: %v", err)
	}

	// The palette's rewrite hook goes through the public route, like any other client
	apiClient := client.New(cfg.InternalAPIURL)
	newRewriter := func(string) palette.Rewriter {
		return client.NewRewriteHook(apiClient)
	}

	sseConfig := sse.DefaultConfig()

	docHandler := handler.NewDocumentHandler(docService, searchService, logger)
	rewriteHandler := handler.NewRewriteHandler(rewriteService, logger)
	liveHandler := handler.NewLiveHandler(hub, sseConfig, logger)
	sidebarHandler := handler.NewSidebarHandler(hub, sseConfig, logger)
	paletteHandler := handler.NewPaletteHandler(
		docService,
		searchService,
		newRewriter,
		uistate.NewRegistry("search"),
		uistate.NewRegistry("settings"),
		sseConfig,
		logger,
	)
	defer paletteHandler.Unmount()

	go sidebarHandler.Run(ctx, handler.DefaultSessionIdle)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", docHandler.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Document routes
	mux.HandleFunc("POST /api/documents", docHandler.CreateDocument)
	mux.HandleFunc("GET /api/documents/sidebar", docHandler.ListSidebar)    // Must come before {id} route
	mux.HandleFunc("GET /api/documents/search", docHandler.SearchDocuments) // Must come before {id} route
	mux.HandleFunc("GET /api/documents/{id}", docHandler.GetDocument)
	mux.HandleFunc("PATCH /api/documents/{id}", docHandler.UpdateDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", docHandler.ArchiveDocument)
	mux.HandleFunc("POST /api/documents/{id}/restore", docHandler.RestoreDocument)

	// Live query streams
	mux.HandleFunc("GET /api/live/sidebar", liveHandler.StreamSidebar)
	mux.HandleFunc("GET /api/live/search", liveHandler.StreamSearch)

	// AI rewrite
	mux.HandleFunc("POST /api/ai/rewrite", rewriteHandler.Rewrite)

	// Sidebar sessions
	mux.HandleFunc("POST /api/sidebar/sessions", sidebarHandler.CreateSession)
	mux.HandleFunc("GET /api/sidebar/sessions/{id}", sidebarHandler.GetSession)
	mux.HandleFunc("GET /api/sidebar/sessions/{id}/stream", sidebarHandler.StreamSession)
	mux.HandleFunc("POST /api/sidebar/sessions/{id}/toggle", sidebarHandler.Toggle)
	mux.HandleFunc("POST /api/sidebar/sessions/{id}/navigate", sidebarHandler.Navigate)
	mux.HandleFunc("DELETE /api/sidebar/sessions/{id}", sidebarHandler.DeleteSession)

	// Search palette and settings panel
	mux.HandleFunc("GET /api/palette", paletteHandler.GetPalette)
	mux.HandleFunc("POST /api/palette/open", paletteHandler.Open)
	mux.HandleFunc("POST /api/palette/close", paletteHandler.Close)
	mux.HandleFunc("POST /api/palette/toggle", paletteHandler.Toggle)
	mux.HandleFunc("POST /api/palette/keys", paletteHandler.DispatchKey)
	mux.HandleFunc("POST /api/palette/select", paletteHandler.Select)
	mux.HandleFunc("POST /api/palette/ai-action", paletteHandler.AIAction)
	mux.HandleFunc("POST /api/palette/documents/{id}/rewrite", paletteHandler.RewriteDocument)
	mux.HandleFunc("GET /api/palette/notifications", paletteHandler.StreamNotifications)
	mux.HandleFunc("GET /api/palette/stream", paletteHandler.StreamPalette)
	mux.HandleFunc("GET /api/palette/rewrite/stream", paletteHandler.StreamRewrite)
	mux.HandleFunc("GET /api/settings", paletteHandler.GetSettings)
	mux.HandleFunc("POST /api/settings/open", paletteHandler.OpenSettings)
	mux.HandleFunc("POST /api/settings/close", paletteHandler.CloseSettings)
	mux.HandleFunc("GET /api/settings/stream", paletteHandler.StreamSettings)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	h = middleware.AuthMiddleware(verifier, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}
