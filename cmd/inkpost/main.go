package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"github.com/klass-lk/inkpost/internal/cache"
	"github.com/klass-lk/inkpost/internal/config"
	"github.com/klass-lk/inkpost/internal/controller"
	"github.com/klass-lk/inkpost/internal/logger"
	"github.com/klass-lk/inkpost/internal/middleware"
	"github.com/klass-lk/inkpost/internal/repository"
	"github.com/klass-lk/inkpost/internal/server"
	"github.com/klass-lk/inkpost/internal/service"
	"github.com/klass-lk/inkpost/internal/store"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
)

type healthFunc func(ctx context.Context) error

// storage is the opened post store. The Mongo database or DynamoDB client is
// kept so a cache on the same driver can share the connection.
type storage struct {
	repo        repository.PostRepository
	health      healthFunc
	mongoDB     *mongo.Database
	dynamo      store.DynamoDBAPI
	dynamoTable string
	close       func()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	config.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Stack().Err(err).Msg("Server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer st.close()
	repo := st.repo

	policy, err := service.ParseDraftStatusPolicy(cfg.Posts.DraftStatusPolicy)
	if err != nil {
		return err
	}
	postService := service.NewPostService(repo, policy)

	cacheService, closeCache, err := openCache(ctx, cfg.Cache, st)
	if err != nil {
		return err
	}
	defer closeCache()

	var cacheMiddleware gin.HandlerFunc
	if cacheService != nil {
		postService.WithInvalidator(cacheService)
		cacheMiddleware = cache.Middleware(cacheService, cfg.Cache.TTL(), controller.CacheTags, nil)
	}

	srv := server.New().
		SetBasePath(cfg.Server.BasePath).
		SetShutdownTimeout(cfg.Server.ShutdownTimeout()).
		Use(middleware.RequestID(), middleware.RequestLogger(log))
	srv.SetRuntime(server.Runtime(cfg.Server.Runtime))
	if len(cfg.Server.CORSOrigins) == 0 {
		srv.DefaultCORS()
	} else {
		srv.CustomCORS(
			cfg.Server.CORSOrigins,
			[]string{"GET", "POST", "OPTIONS"},
			[]string{"Origin", "Content-Type", middleware.RequestIDHeader},
			12*time.Hour,
		)
	}
	srv.HealthCheck("/health", st.health)

	srv.RegisterController("/blogs", controller.NewPostController(postService, service.NewListingService(repo), cacheMiddleware))
	if cacheService != nil {
		srv.RegisterController("/cache", controller.NewCacheController(cacheService))
	}

	log.Info().
		Str("storage", cfg.Storage.Driver).
		Str("cache", cfg.Cache.Driver).
		Str("runtime", cfg.Server.Runtime).
		Msg("Starting inkpost")
	return srv.Start(ctx, cfg.Server.Port)
}

// openStorage opens the post repository for the configured driver.
func openStorage(ctx context.Context, cfg config.StorageConfig) (*storage, error) {
	switch cfg.Driver {
	case "mongo":
		mongoCfg := store.NewMongoConfig().
			WithHost(cfg.Mongo.Host, cfg.Mongo.Port).
			WithDatabase(cfg.Mongo.Database).
			WithTimeout(time.Duration(cfg.Mongo.TimeoutSeconds) * time.Second)
		if cfg.Mongo.URI != "" {
			mongoCfg.WithURI(cfg.Mongo.URI)
		}
		if cfg.Mongo.Username != "" {
			mongoCfg.WithCredentials(cfg.Mongo.Username, cfg.Mongo.Password)
		}
		client, db, err := mongoCfg.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return &storage{
			repo:    repository.NewMongoPostRepository(db),
			health:  func(ctx context.Context) error { return client.Ping(ctx, nil) },
			mongoDB: db,
			close:   func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case "dynamodb":
		dynamoCfg := store.NewDynamoDBConfig().
			WithRegion(cfg.DynamoDB.Region).
			WithEndpoint(cfg.DynamoDB.Endpoint).
			WithTableName(cfg.DynamoDB.TableName).
			WithSkipTableCreation(cfg.DynamoDB.SkipTableCreation)
		if cfg.DynamoDB.AccessKeyID != "" {
			dynamoCfg.WithStaticCredentials(cfg.DynamoDB.AccessKeyID, cfg.DynamoDB.SecretAccessKey)
		}
		client, err := store.NewDynamoDBClient(ctx, dynamoCfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureTable(ctx, client, dynamoCfg); err != nil {
			return nil, err
		}
		health := func(ctx context.Context) error {
			_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(dynamoCfg.TableName)})
			return err
		}
		return &storage{
			repo:        repository.NewDynamoPostRepository(client, dynamoCfg.TableName),
			health:      health,
			dynamo:      client,
			dynamoTable: dynamoCfg.TableName,
			close:       func() {},
		}, nil

	case "memory":
		return &storage{repo: repository.NewMemoryPostRepository(), close: func() {}}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// openCache returns a nil service when caching is disabled.
func openCache(ctx context.Context, cfg config.CacheConfig, st *storage) (cache.CacheService, func(), error) {
	noop := func() {}
	if cfg.Driver == "none" {
		return nil, noop, nil
	}

	codec, err := cache.NewZstdCodec()
	if err != nil {
		return nil, noop, err
	}

	switch cfg.Driver {
	case "mongo":
		if st.mongoDB == nil {
			codec.Close()
			return nil, noop, fmt.Errorf("cache driver mongo needs storage driver mongo")
		}
		repo := store.NewMongoRepository[cache.CacheEntry](st.mongoDB)
		return cache.NewMongoCacheService(repo, codec), codec.Close, nil

	case "dynamodb":
		if st.dynamo == nil {
			codec.Close()
			return nil, noop, fmt.Errorf("cache driver dynamodb needs storage driver dynamodb")
		}
		return cache.NewDynamoDBCacheService(st.dynamo, st.dynamoTable, codec), codec.Close, nil

	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			codec.Close()
			return nil, noop, err
		}
		closeFn := func() {
			_ = client.Close()
			codec.Close()
		}
		return cache.NewRedisCacheService(client, codec), closeFn, nil
	}

	codec.Close()
	return nil, noop, fmt.Errorf("unknown cache driver %q", cfg.Driver)
}
