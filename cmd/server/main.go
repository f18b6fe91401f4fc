package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bookline/bot-server-go/internal/ai"
	"github.com/bookline/bot-server-go/internal/channel"
	"github.com/bookline/bot-server-go/internal/config"
	"github.com/bookline/bot-server-go/internal/database"
	"github.com/bookline/bot-server-go/internal/handler"
	"github.com/bookline/bot-server-go/internal/jobs"
	"github.com/bookline/bot-server-go/internal/middleware"
	"github.com/bookline/bot-server-go/internal/redis"
	"github.com/bookline/bot-server-go/internal/repository"
	"github.com/bookline/bot-server-go/internal/service"
	"github.com/bookline/bot-server-go/internal/sse"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	botRepo := repository.NewBotRepository(db.DB)
	serviceRepo := repository.NewServiceRepository(db.DB)
	availabilityRepo := repository.NewAvailabilityRepository(db.DB)
	mediaRepo := repository.NewMediaRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	reservationRepo := repository.NewReservationRepository(db.DB)
	workflowRepo := repository.NewWorkflowRepository(db.DB)
	inquiryRepo := repository.NewInquiryRepository(db.DB)
	inboundMsgRepo := repository.NewInboundMessageRepository(db.DB)
	outboundMsgRepo := repository.NewOutboundMessageRepository(db.DB)
	webChatRepo := repository.NewWebChatSessionRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	registry := channel.NewRegistry()
	transport := channel.NewHTTPTransport(cfg.TransportBaseURL, cfg.TransportToken)

	var aiClient ai.Client
	if cfg.OpenAIAPIKey != "" {
		aiClient = ai.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set: intent classification and free-form replies disabled")
	}

	aiService := service.NewAIService(aiClient, inboundMsgRepo, outboundMsgRepo)
	availabilityService := service.NewAvailabilityService(availabilityRepo, reservationRepo)
	reservationService := service.NewReservationService(reservationRepo)
	bookingService := service.NewBookingService(
		sessionRepo, serviceRepo, availabilityService, reservationService, cfg.SessionTTL(),
	)
	workflowService := service.NewWorkflowService(
		sessionRepo, workflowRepo, mediaRepo, inquiryRepo, aiService, bookingService, cfg.SessionTTL(),
	)
	locks := service.NewSessionLocks()
	dispatcher := service.NewDispatcher(
		botRepo, sessionRepo, inboundMsgRepo, bookingService, workflowService,
		aiService, locks, registry, cfg.BookingIntentThreshold,
	)

	signatureMiddleware := middleware.NewSignatureMiddleware(cfg.WebhookSignatureSecret)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(redisClient.Client, middleware.WebhookRateKey)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	whatsAppHandler := handler.NewWhatsAppHandler(botRepo, outboundMsgRepo, transport, dispatcher)
	webChatHandler := handler.NewWebChatHandler(
		botRepo, webChatRepo, outboundMsgRepo, dispatcher, broker, registry, cfg.WebChatTTL(),
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/whatsapp", func(r chi.Router) {
		r.Use(signatureMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Post("/webhook", whatsAppHandler.HandleWebhook)
	})

	r.Route("/v1/webchat", func(r chi.Router) {
		r.Use(rateLimitMiddleware.Handler)
		r.Post("/sessions", webChatHandler.CreateSession)
		r.Post("/sessions/{sessionKey}/messages", webChatHandler.PostMessage)
		r.Get("/sessions/{sessionKey}/events", webChatHandler.StreamEvents)
	})

	sweepJob := jobs.NewSweepJob(sessionRepo, webChatRepo, config.SweepJobInterval)
	sweepJob.Start()
	defer sweepJob.Stop()

	reminderJob := jobs.NewReminderJob(
		reservationRepo, outboundMsgRepo, transport, registry, cfg.ReminderCronSpec,
	)
	if err := reminderJob.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start reminder job")
	}
	defer reminderJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
