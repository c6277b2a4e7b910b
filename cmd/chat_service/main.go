package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	apihandlers "realtime_chat_service/internal/api/handlers"
	apirouter "realtime_chat_service/internal/api/router"
	"realtime_chat_service/internal/chat/app"
	"realtime_chat_service/internal/chat/hub"
	chatrepo "realtime_chat_service/internal/chat/repository"
	chatrouter "realtime_chat_service/internal/chat/router"
	memberapp "realtime_chat_service/internal/member/app"
	memberdomain "realtime_chat_service/internal/member/domain"
	memberrepo "realtime_chat_service/internal/member/repository"
	memberrouter "realtime_chat_service/internal/member/router"
	"realtime_chat_service/pkg/config"
	"realtime_chat_service/pkg/database"
	"realtime_chat_service/pkg/keylock"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"
	testtool "realtime_chat_service/pkg/test_tool"
	"realtime_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath, config.ChatDefaults)
	token.Configure(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)
	testtool.StartPprof("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Mongo (聊天室, 訊息)
	uri := database.MongoURI(cfg.MongoSQL.Host, cfg.MongoSQL.Port, cfg.MongoSQL.User, cfg.MongoSQL.Password)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.MongoSQL.Host, cfg.MongoSQL.Port)),
			zap.Error(err),
		)
	}
	defer mongo.Close(context.Background())

	// 2. PostgreSQL (會員用 pgx, 附件用 gorm)
	dsn := database.PostgresDSN(cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database)
	pgConn := database.Connection{
		ConnectStr:    dsn,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	}
	pool, err := database.NewDatabaseConnection(pgConn)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.PostgreSQL.Host, cfg.PostgreSQL.Port)),
			zap.Error(err),
		)
	}
	defer pool.Close()

	gormDB, err := database.NewGormConnection(pgConn)
	if err != nil {
		logger.Log.Fatal("Unable to open gorm connection", zap.Error(err))
	}

	// 3. Redis (session, 跨節點廣播)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(database.RedisConnection{
		Addr:          cfg.Redis.Addr,
		MasterName:    masterName,
		SentinelAddrs: sentinel,
		DB:            cfg.Redis.RedisDB,
	})
	if err != nil {
		logger.Log.Fatal("connect redis err", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. MinIO (附件)
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:   fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
		User:       cfg.MinIO.User,
		Password:   cfg.MinIO.Password,
		BucketName: cfg.Upload.Bucket,
		UseSSL:     cfg.MinIO.UseSSL,

		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to minio after retries", zap.Error(err))
	}

	// 5. Kafka (事件), 沒有 broker 就不送
	events := chatrepo.NewNopEventPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaWriter, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal("Kafka Writer 建立失敗", zap.Error(err))
		}
		events = chatrepo.NewKafkaEventPublisher(kafkaWriter)
	} else {
		logger.Log.Info("kafka brokers not configured, chat events disabled")
	}
	defer events.Close()

	// 6. Repository
	memberRepo := memberrepo.NewMemberRepository(pool)
	if err := memberRepo.EnsureSchema(ctx); err != nil {
		logger.Log.Fatal("member schema", zap.Error(err))
	}
	sessionRepo := memberrepo.NewSessionRepository(database.NewRedisRepository[memberdomain.MemberSession](redisClient))

	convRepo := chatrepo.NewMongoConversationRepository(mongo.Database)
	msgRepo := chatrepo.NewMongoMessageRepository(mongo.Database)
	if err := convRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal("conversation indexes", zap.Error(err))
	}
	if err := msgRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal("message indexes", zap.Error(err))
	}
	attRepo := chatrepo.NewAttachmentRepository(gormDB)
	if err := attRepo.AutoMigrate(); err != nil {
		log.Fatalf("資料表遷移失敗: %v", err)
	}

	// 7. Hub
	registry := hub.NewRegistry(convRepo)
	var broadcaster hub.Broadcaster = registry
	var cluster *hub.ClusterBroadcaster
	if cfg.Redis.Relay {
		cluster = hub.NewClusterBroadcaster(registry, chatrepo.NewRedisPubSub(redisClient), uuid.NewString())
		broadcaster = cluster
	}

	// 8. UseCases
	memberUC := memberapp.NewMemberUseCase(memberRepo, sessionRepo, cfg.SessionTTL, nil)
	guard := memberapp.NewIdentityGuard(sessionRepo)

	messageUC := app.NewMessageUseCase(convRepo, msgRepo, broadcaster, events, keylock.New())
	deliveryUC := app.NewDeliveryUseCase(convRepo, msgRepo, broadcaster, events)
	conversationUC := app.NewConversationUseCase(convRepo, msgRepo, memberUC, broadcaster, events)
	attachmentUC := app.NewAttachmentUseCase(convRepo, attRepo, minioClient, messageUC, cfg.Upload.MaxFileSize, cfg.Upload.PresignTTL)

	// 9. Fiber
	r := fiber.New(fiber.Config{
		// multipart 要能讀到超過上限的檔案, 由 handler 回 payload_too_large
		BodyLimit:    int(2*attachmentUC.MaxFileSize()) + 1<<20,
		ErrorHandler: middlewares.ErrorHandler,
	})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	health := apihandlers.NewHealthHandler(config.EnvConfig.ChatService, map[string]apihandlers.PingFunc{
		"mongo": func(ctx context.Context) error { return mongo.Client.Ping(ctx, readpref.Primary()) },
		"pg":    func(ctx context.Context) error { return pool.Ping(ctx) },
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})

	// 注册路由
	apirouter.RegisterRoutes(r, health)
	api := r.Group("/api")
	memberrouter.RegisterRoutes(api, memberapp.NewMemberHandler(memberUC), guard)
	chatrouter.RegisterRoutes(r, api,
		app.NewChatHandler(conversationUC, messageUC, deliveryUC, attachmentUC),
		app.NewChatWebsocketHandler(guard, registry, broadcaster, messageUC, deliveryUC, memberUC, cfg.WebSocket),
		guard,
	)

	g, gctx := errgroup.WithContext(ctx)
	if cluster != nil {
		g.Go(func() error {
			if err := cluster.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("cluster relay: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		port := ":" + cfg.Port
		logger.Log.Info("Chat Service listening", zap.String("port", port))
		return r.Listen(port)
	})
	g.Go(func() error {
		<-gctx.Done()
		return r.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Error("chat service stopped", zap.Error(err))
	}
}
