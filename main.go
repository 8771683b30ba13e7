package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"mailtriage/internal/api"
	"mailtriage/internal/config"
	"mailtriage/internal/logger"
	"mailtriage/internal/mailbox"
	"mailtriage/internal/pipeline"
	"mailtriage/internal/redis"
	"mailtriage/internal/service/extract"
	"mailtriage/internal/service/pricing"
	"mailtriage/internal/service/reply"
	"mailtriage/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("MAILTRIAGE_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("MAILTRIAGE_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create necessary tables: sent_messages, api_keys
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	// The pricing cache is an optimization: run without it when redis is down.
	rdb, err := redis.NewRedisClient(cfg)
	if err != nil {
		logger.Logger.Warn("redis unavailable, pricing cache disabled", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	sentStore := storage.NewSentStore(db)
	keyStore := storage.NewKeyStore(db)

	mailboxSize := cfg.BasicConfig.MailboxSize
	if mailboxSize <= 0 {
		mailboxSize = 20
	}
	inbox := mailbox.NewStore(mailbox.GenerateEmails(mailboxSize, cfg.BasicConfig.MailboxSeed))

	latency := cfg.StageLatency()
	extractor := &extract.MockExtractor{Latency: latency}
	pricingSvc := pricing.NewService(rdb, latency)

	provCfg := cfg.Providers["openai"]
	generator := buildGenerator(keyStore, provCfg, latency)
	controller := pipeline.NewController(extractor, pricingSvc, generator)

	sender := &mailbox.MockSender{Latency: latency}
	onKeyChange := func(provider, key string) error {
		if provider != "openai" {
			return nil
		}
		llm, err := reply.NewLLMClient(provCfg, key)
		if err != nil {
			logger.Logger.Warn("rebuild llm client failed", zap.Error(err))
			return err
		}
		controller.SetGenerator(reply.NewService(llm, latency))
		return nil
	}
	handlers := api.NewHandler(inbox, sender, controller, sentStore, keyStore, onKeyChange)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// buildGenerator prefers a key saved through settings, then the config file
// key. Without either, every draft comes from the template chain.
func buildGenerator(keys *storage.KeyStore, provCfg config.ProviderConfig, latency time.Duration) reply.Generator {
	saved, err := keys.Get(context.Background(), "openai")
	if err != nil && !errors.Is(err, storage.ErrNoKey) {
		logger.Logger.Warn("load saved api key failed", zap.Error(err))
	}
	llm, err := reply.NewLLMClient(provCfg, saved)
	if err != nil {
		logger.Logger.Warn("llm client unavailable, using template replies", zap.Error(err))
		llm = nil
	}
	return reply.NewService(llm, latency)
}
