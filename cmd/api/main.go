package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"commerce-sync-layer/internal/application"
	"commerce-sync-layer/internal/domain"
	apiinfra "commerce-sync-layer/internal/infrastructure/api"
	"commerce-sync-layer/internal/infrastructure/metrics"
	"commerce-sync-layer/internal/infrastructure/pubsub"
	"commerce-sync-layer/internal/infrastructure/repository"
	"commerce-sync-layer/internal/infrastructure/shopee"
	"commerce-sync-layer/internal/infrastructure/tiktokshop"
	"commerce-sync-layer/internal/infrastructure/tokopedia"
	"commerce-sync-layer/internal/ports"
)

const defaultSyncIntervalMinutes = 30

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	factory := func(platform domain.Platform, creds domain.Credentials) (ports.Adapter, error) {
		switch platform {
		case domain.PlatformShopee:
			return shopee.NewAdapter(creds, logger)
		case domain.PlatformTokopedia:
			return tokopedia.NewAdapter(creds, logger)
		case domain.PlatformTikTokShop:
			return tiktokshop.NewAdapter(creds, logger)
		default:
			return nil, fmt.Errorf("unknown platform %q", platform)
		}
	}

	// Mongo is optional: without it webhook events simply are not audited.
	webhookLog := ports.WebhookLogRepository(repository.NewNoopWebhookLog())
	if mongoURI := os.Getenv("MONGODB_URI"); mongoURI != "" {
		client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		dbName := os.Getenv("MONGODB_DATABASE")
		if dbName == "" {
			dbName = "commerce_sync"
		}
		webhookLog = repository.NewMongoWebhookLog(client.Database(dbName))
		logger.Info().Str("database", dbName).Msg("webhook audit log enabled")
	}

	webhookPubSub := pubsub.NewWebhookPubSub(logger)
	sinks := []ports.EventSink{webhookPubSub}

	// Redis is optional: with it, webhook events are also broadcast to
	// other services.
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()

		sinks = append(sinks, pubsub.NewRedisPublisher(redisClient, "", logger))
		logger.Info().Msg("redis webhook publisher enabled")
	}

	registry := application.NewRegistry(factory, webhookLog, sinks, metrics.NewRecorder(), logger)
	registry.Initialize(context.Background(), configFromEnv())

	interval := time.Duration(envInt("SYNC_INTERVAL_MINUTES", defaultSyncIntervalMinutes)) * time.Minute
	registry.StartScheduledSync(context.Background(), interval)
	defer registry.StopScheduledSync()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	handlers := apiinfra.NewHandlers(registry, logger)
	handlers.Routes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		logger.Info().Str("port", port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
}

// configFromEnv assembles the per-platform startup configuration. Credentials
// stay in process memory; nothing here is written anywhere.
func configFromEnv() application.Config {
	return application.Config{
		domain.PlatformShopee: {
			Enabled: envBool("SHOPEE_ENABLED"),
			Credentials: domain.Credentials{
				APIKey:    os.Getenv("SHOPEE_API_KEY"),
				APISecret: os.Getenv("SHOPEE_API_SECRET"),
				PartnerID: os.Getenv("SHOPEE_PARTNER_ID"),
				ShopID:    os.Getenv("SHOPEE_SHOP_ID"),
				AuthCode:  os.Getenv("SHOPEE_AUTH_CODE"),
			},
		},
		domain.PlatformTokopedia: {
			Enabled: envBool("TOKOPEDIA_ENABLED"),
			Credentials: domain.Credentials{
				ClientID:     os.Getenv("TOKOPEDIA_CLIENT_ID"),
				ClientSecret: os.Getenv("TOKOPEDIA_CLIENT_SECRET"),
				FsID:         os.Getenv("TOKOPEDIA_FS_ID"),
				ShopID:       os.Getenv("TOKOPEDIA_SHOP_ID"),
			},
		},
		domain.PlatformTikTokShop: {
			Enabled: envBool("TIKTOKSHOP_ENABLED"),
			Credentials: domain.Credentials{
				APIKey:    os.Getenv("TIKTOKSHOP_APP_KEY"),
				APISecret: os.Getenv("TIKTOKSHOP_APP_SECRET"),
				ShopID:    os.Getenv("TIKTOKSHOP_SHOP_ID"),
				AuthCode:  os.Getenv("TIKTOKSHOP_AUTH_CODE"),
			},
		},
	}
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
