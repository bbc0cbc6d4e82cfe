package main

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"

	"github.com/chainterm/gatekeeper/adapters/codec"
	"github.com/chainterm/gatekeeper/adapters/events"
	"github.com/chainterm/gatekeeper/adapters/rpc"
	"github.com/chainterm/gatekeeper/adapters/store"
	"github.com/chainterm/gatekeeper/adapters/telegram"
	"github.com/chainterm/gatekeeper/internal/config"
	"github.com/chainterm/gatekeeper/internal/logging"
	"github.com/chainterm/gatekeeper/service"
	"github.com/chainterm/gatekeeper/transport/http"
)

func main() {
	logger := logging.NewLoggerWithService("gatekeeper")

	config.LoadEnv(logger)
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to parse redis URL")
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		logger.WithError(err).Fatal("failed to create event publisher")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.WithError(err).Fatal("failed to create bot client")
	}

	sessionCodec, err := codec.NewSealedCodec([]byte(cfg.SessionSecret))
	if err != nil {
		logger.WithError(err).Fatal("failed to build session codec")
	}

	keyedStore := store.NewRedisStore(redisClient)
	rpcClient, err := rpc.NewClient(cfg.RPCEndpoints, cfg.RPCTimeout, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build rpc client")
	}
	messenger := telegram.NewBot(botAPI, cfg.GroupID)
	eventPub := events.NewWatermillPublisher(publisher)

	balanceService := service.NewBalanceService(rpcClient, cfg.TokenMint, cfg.TokenThreshold, cfg.TokenTicker, logger)
	authService := service.NewAuthService(sessionCodec, balanceService, cfg.SessionTTL, logger)
	linkService := service.NewLinkService(keyedStore, balanceService, messenger, eventPub, cfg.BotName, cfg.LinkStateTTL, logger)
	reconciler := service.NewReconciler(keyedStore, messenger, eventPub, cfg.ReconcileConcurrency, logger)

	webhookURL := cfg.WebAppURL + "/telegram/webhook"
	handlers := http.NewHandlers(authService, balanceService, linkService, reconciler, messenger, webhookURL)
	router := http.SetupRouter(handlers, authService)

	logger.WithField("addr", cfg.ListenAddr).Info("starting server")
	if err := router.Run(cfg.ListenAddr); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
