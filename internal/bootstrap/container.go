package bootstrap

import (
	"context"
	"fmt"
	"time"

	"ai-chat-be/internal/config"
	"ai-chat-be/internal/controller"
	"ai-chat-be/internal/handler"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/repository/memory"
	"ai-chat-be/internal/repository/redisstore"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/service"
	"ai-chat-be/internal/websocket"
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/llm/factory"
	"ai-chat-be/pkg/lock"
	pktNats "ai-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController   controller.IChatController
	AuthController   controller.IAuthController
	UploadController controller.IUploadController

	ChatEventsHandler *handler.ChatEventsHandler
	WebSocketHub      *websocket.Hub

	// Background Services (exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	closers []func()
}

// Options lets tests swap infrastructure the config would otherwise build.
type Options struct {
	LLMProvider llm.LLMProvider
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	return NewContainerWithOptions(db, cfg, Options{})
}

func NewContainerWithOptions(db *gorm.DB, cfg *config.Config, opts Options) (*Container, error) {
	c := &Container{}

	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	eventLogger := logger.NewIsolatedLogger(cfg.App.EventLogFilePath)
	c.Logger = sysLogger
	c.closers = append(c.closers, func() { sysLogger.Sync(); eventLogger.Sync() })

	// 2. Completion provider
	llmProvider := opts.LLMProvider
	if llmProvider == nil {
		p, err := factory.NewLLMProvider(factory.Config{
			Provider:      cfg.Ai.LLMProvider,
			Model:         cfg.Ai.LLMModel,
			OpenAIKey:     cfg.Ai.OpenAIKey,
			OpenAIBaseURL: cfg.Ai.OpenAIBaseURL,
			OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init llm provider: %w", err)
		}
		llmProvider = p
	}
	sysLogger.Info("Bootstrap", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	// 3. Redis (optional)
	var rdb *redis.Client
	if cfg.Infra.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.Infra.RedisURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to parse Redis URL, using it as address", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.Infra.RedisURL}
		}
		rdb = redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			sysLogger.Warn("Bootstrap", "Redis unreachable", map[string]interface{}{"error": err.Error()})
		}
		c.closers = append(c.closers, func() { rdb.Close() })
	}

	// 4. Per-chat lock and token revocation share one backend switch.
	var locker lock.Locker = lock.NewLocalLocker()
	var revocations service.TokenRevocationStore = memory.NewRevocationRepository()
	if cfg.Infra.LockBackend == "redis" {
		if rdb == nil {
			return nil, fmt.Errorf("LOCK_BACKEND=redis requires REDIS_URL")
		}
		locker = lock.NewRedisLocker(rdb, cfg.Infra.LockTTL)
		revocations = redisstore.NewRevocationRepository(rdb)
	}

	// 5. Event bus. Blocking until ack keeps per-chat event order.
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64, BlockPublishUntilSubscriberAck: true},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { pubSub.Close() })

	var relay service.EventRelay
	if cfg.Infra.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.Infra.NatsURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "NATS relay disabled", map[string]interface{}{"error": err.Error()})
		} else {
			relay = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	wsHub := websocket.NewHub(rdb, eventLogger)
	c.WebSocketHub = wsHub

	publisherService := service.NewPublisherService(cfg.Infra.ChatEventsTopic, pubSub, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Infra.ChatEventsTopic, eventLogger, relay, wsHub, sysLogger)

	// 6. Services
	chatService := service.NewChatService(uowFactory, llmProvider, locker, publisherService, sysLogger, service.ChatServiceConfig{
		SystemPrompt:      cfg.Ai.SystemPrompt,
		MaxTokens:         cfg.Ai.MaxTokens,
		CompletionTimeout: cfg.Ai.CompletionTimeout,
	})
	idTokenValidator, err := service.NewGoogleIDTokenValidator(context.Background())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("google id token validator: %w", err)
	}
	authService, err := service.NewAuthService(service.AuthServiceConfig{
		JWTSecret:      cfg.Auth.JWTSecret,
		TokenTTL:       cfg.Auth.TokenTTL,
		GoogleClientID: cfg.Auth.GoogleClientID,
	}, idTokenValidator, revocations, sysLogger)
	if err != nil {
		c.Close()
		return nil, err
	}
	oauthService := service.NewOAuthService(service.OAuthConfig{
		ClientID:     cfg.Auth.GoogleClientID,
		ClientSecret: cfg.Auth.GoogleClientSecret,
		RedirectURL:  cfg.Auth.GoogleRedirectURL,
	}, authService, sysLogger)
	uploadService := service.NewUploadService(service.UploadServiceConfig{
		Dir:         cfg.Upload.Dir,
		MaxSize:     cfg.Upload.MaxSize,
		VisionModel: cfg.Ai.VisionModel,
	}, llmProvider, sysLogger)

	// 7. Controllers
	var requireAuth fiber.Handler = serverutils.JwtMiddleware(authService, cfg.Auth.CookieName)

	c.ChatController = controller.NewChatController(chatService, requireAuth)
	c.AuthController = controller.NewAuthController(controller.AuthControllerConfig{
		CookieName:   cfg.Auth.CookieName,
		CookieSecure: cfg.Auth.CookieSecure,
		ClientURL:    cfg.App.ClientURL,
	}, authService, oauthService, requireAuth, sysLogger)
	c.UploadController = controller.NewUploadController(uploadService, requireAuth)
	c.ChatEventsHandler = handler.NewChatEventsHandler(wsHub, authService, cfg.Auth.CookieName, eventLogger)

	return c, nil
}

// Close releases infrastructure in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
