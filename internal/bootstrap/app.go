package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"legalrag-backend/internal/ai"
	appsvc "legalrag-backend/internal/app"
	"legalrag-backend/internal/cache"
	"legalrag-backend/internal/config"
	"legalrag-backend/internal/model"
	"legalrag-backend/internal/pinecone"
	mysqlClient "legalrag-backend/internal/platform/mysql"
	rabbitmqClient "legalrag-backend/internal/platform/rabbitmq"
	redisClient "legalrag-backend/internal/platform/redis"
	"legalrag-backend/internal/repository"
	"legalrag-backend/internal/worker"
)

// App wires configuration, external adapters, and services. Vector search and
// the LLM adapters always construct (they fail soft and report through
// Ready()); MySQL, redis, and rabbitmq are optional and their features degrade
// when the connection fails at startup.
type App struct {
	Config *config.Config

	Embedder    *ai.Embedder
	Structurer  *ai.CaseStructurer
	Synthesizer *ai.AnswerSynthesizer
	Pinecone    *pinecone.Client

	MySQL     *gorm.DB
	Redis     *redis.Client
	MQConn    *amqp.Connection
	LogWorker *worker.QuestionLogWorker

	LegalService *appsvc.LegalService
	AuthService  *appsvc.AuthService

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	embedder := ai.NewEmbedder(ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})
	chatCfg := ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.ChatModel,
	}
	structurer := ai.NewCaseStructurer(chatCfg)
	synthesizer := ai.NewAnswerSynthesizer(chatCfg)

	pineconeCli := pinecone.NewClient(pinecone.Config{
		APIKey:    cfg.Pinecone.APIKey,
		Index:     cfg.Pinecone.Index,
		Namespace: cfg.Pinecone.Namespace,
	})

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		log.Printf("mysql unavailable, auth and question logs disabled: %v", err)
		mysqlDB = nil
	} else if err := mysqlDB.AutoMigrate(&model.User{}, &model.QuestionLog{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("redis unavailable, answer cache disabled: %v", err)
		redisCli = nil
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		log.Printf("rabbitmq unavailable, question log publishing disabled: %v", err)
		mqConn = nil
	}

	var answerCache appsvc.AnswerCache
	if redisCli != nil {
		answerCache = cache.NewAnswerCache(redisCli, time.Duration(cfg.Search.AnswerTTLSeconds)*time.Second)
	}

	var publisher appsvc.QuestionLogPublisher
	var logWorker *worker.QuestionLogWorker
	if mqConn != nil && mysqlDB != nil {
		publisher = rabbitmqClient.NewQuestionLogPublisher(mqConn, cfg.RabbitMQ.QuestionLogQueue)
		logRepo := repository.NewQuestionLogRepository(mysqlDB)
		logWorker = worker.NewQuestionLogWorker(mqConn, logRepo, cfg.RabbitMQ.QuestionLogQueue)
		if err := logWorker.Start(ctx); err != nil {
			return nil, fmt.Errorf("start question log worker failed: %w", err)
		}
	}

	legalService := appsvc.NewLegalService(
		embedder,
		pineconeCli,
		structurer,
		synthesizer,
		answerCache,
		publisher,
		appsvc.SearchSettings{
			DefaultTopK:     cfg.Search.DefaultTopK,
			MinScore:        cfg.Search.MinScore,
			OverfetchFactor: cfg.Search.OverfetchFactor,
		},
	)

	var userRepo *repository.UserRepository
	if mysqlDB != nil {
		userRepo = repository.NewUserRepository(mysqlDB)
	}
	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)

	return &App{
		Config:       cfg,
		Embedder:     embedder,
		Structurer:   structurer,
		Synthesizer:  synthesizer,
		Pinecone:     pineconeCli,
		MySQL:        mysqlDB,
		Redis:        redisCli,
		MQConn:       mqConn,
		LogWorker:    logWorker,
		LegalService: legalService,
		AuthService:  authService,
		StartedAt:    time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.LogWorker != nil {
		a.LogWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
