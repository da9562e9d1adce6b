package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/intake-api/internal/api"
	"github.com/isdelr/intake-api/internal/api/handlers"
	"github.com/isdelr/intake-api/internal/auth"
	"github.com/isdelr/intake-api/internal/config"
	"github.com/isdelr/intake-api/internal/database"
	"github.com/isdelr/intake-api/internal/graph"
	"github.com/isdelr/intake-api/internal/logger"
	"github.com/isdelr/intake-api/internal/mailer"
	"github.com/isdelr/intake-api/internal/maintenance"
	"github.com/isdelr/intake-api/internal/middleware"
	"github.com/isdelr/intake-api/internal/scheduling"
	"github.com/isdelr/intake-api/internal/services"
	"github.com/isdelr/intake-api/internal/store"
	"github.com/isdelr/intake-api/internal/websocket"
	"github.com/rs/zerolog/log"
)

// stores bundles the repositories of the selected backend.
type stores struct {
	clients store.ClientRepository
	users   store.UserRepository
	ping    func(ctx context.Context) error
	close   func()
}

func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			return stores{}, fmt.Errorf("open sqlite: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return stores{}, fmt.Errorf("migrate sqlite: %w", err)
		}
		return stores{
			clients: store.NewSQLiteClientRepository(db),
			users:   store.NewSQLiteUserRepository(db),
			ping:    db.PingContext,
			close:   func() { db.Close() },
		}, nil
	default:
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return stores{}, err
		}
		if err := database.EnsureIndexes(ctx, db); err != nil {
			client.Disconnect(context.Background())
			return stores{}, err
		}
		return stores{
			clients: store.NewMongoClientRepository(db),
			users:   store.NewMongoUserRepository(db),
			ping:    func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Disconnect(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
				}
			},
		}, nil
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", true)
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.IsDevelopment())

	// Set up the record stores
	st, err := openStores(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to initialize store")
	}
	defer st.close()

	var sender mailer.Sender = mailer.LogSender{}
	if cfg.SMTP.Configured() {
		sender = mailer.NewSMTPSender(cfg.SMTP)
	} else {
		log.Warn().Msg("SMTP is not configured, emails will only be logged")
	}
	if cfg.SchedulingAccessToken == "" {
		log.Warn().Msg("No scheduling provider access token set, intake fetches will be rejected")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	provider, err := scheduling.NewClient(cfg.SchedulingBaseURL, cfg.SchedulingAccessToken, cfg.SchedulingTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure scheduling client")
	}
	clientService := services.NewClientService(st.clients, provider, sender, hub, cfg.MeetingTimezone)
	userService := services.NewUserService(st.users, tokens, sender)

	schema, err := graph.NewSchema(graph.NewResolver(clientService, userService))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build GraphQL schema")
	}

	// Set up and run the reset token janitor
	janitor, err := maintenance.NewJanitor(st.users, cfg.ResetTokenSweep)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure janitor")
	}
	go janitor.Run()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Set up router
	router := api.NewRouter(api.Deps{
		Hub:               hub,
		Schema:            schema,
		ClientService:     clientService,
		Limiter:           limiter,
		Health:            handlers.NewHealthHandler(cfg.StoreBackend, st.ping),
		CORSOrigins:       cfg.CORSOrigins,
		WebhookSigningKey: cfg.WebhookSigningKey,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("store", cfg.StoreBackend).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	janitor.Stop()
	limiter.Stop()
	hub.Stop()
	clientService.WaitForNotifications()
	userService.WaitForNotifications()

	log.Info().Msg("Server exiting")
}
