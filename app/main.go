package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sushihentaime/blogshelf/internal/blogservice"
	"github.com/sushihentaime/blogshelf/internal/common"
	"github.com/sushihentaime/blogshelf/internal/listservice"
	"github.com/sushihentaime/blogshelf/internal/mailservice"
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
	"github.com/sushihentaime/blogshelf/internal/userservice"
)

type application struct {
	config       *Config
	logger       *slog.Logger
	userService  *userservice.UserService
	blogService  *blogservice.BlogService
	mediaService *mediaservice.MediaService
	limiter      *ipRateLimiter
	checks       map[string]func(context.Context) error
}

// models holds the storage backend selected by DB_DRIVER.
type models struct {
	users userservice.Model
	blogs blogservice.Model
	lists listservice.Model
	ping  func(context.Context) error
	close func() error
}

func main() {
	cfg, err := loadConfig(".env")
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.Environment)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func run(cfg *Config, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m, err := openModels(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.close()
	logger.Info("connected to the database", slog.String("driver", cfg.DBDriver))

	c, closeCache, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	store, err := mediaservice.NewMinioStore(mediaservice.MinioConfig{
		Endpoint:  cfg.StorageEndpoint,
		Region:    cfg.StorageRegion,
		Bucket:    cfg.StorageBucket,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		UseSSL:    cfg.StorageUseSSL,
		URLExpiry: cfg.StorageURLExpiry,
	})
	if err != nil {
		return err
	}
	if err := store.EnsureBucket(ctx, cfg.StorageRegion); err != nil {
		return err
	}

	var producer common.MessageProducer = common.DiscardProducer{}
	if cfg.MQHost != "" {
		broker, err := common.NewMessageBroker(common.AMQPURI(cfg.MQHost, cfg.MQPort, cfg.MQUser, cfg.MQPassword))
		if err != nil {
			return err
		}
		defer broker.Close()

		// Setup the exchange, queue, and binding key
		if err := common.SetupUserExchange(broker); err != nil {
			return fmt.Errorf("could not set up the user exchange: %w", err)
		}
		producer = broker

		if cfg.MailHost != "" {
			mail, err := mailservice.NewMailService(broker, mailservice.SMTPConfig{
				Host:     cfg.MailHost,
				Port:     cfg.MailPort,
				Username: cfg.MailUser,
				Password: cfg.MailPassword,
				Sender:   cfg.MailSender,
			}, logger)
			if err != nil {
				return err
			}
			if err := mail.SendWelcomeEmail(); err != nil {
				return err
			}
			defer mail.Close()
		}
	} else {
		logger.Warn("RABBITMQ_HOST is not set, user events are discarded")
	}

	media := mediaservice.NewMediaService(store, cfg.StorageConcurrency)
	lists := listservice.NewListService(m.lists)
	blogs := blogservice.NewBlogService(m.blogs, lists, media, c, logger)
	tokens := userservice.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry)

	app := &application{
		config:       cfg,
		logger:       logger,
		userService:  userservice.NewUserService(m.users, tokens, lists, blogs, media, producer, c, logger),
		blogService:  blogs,
		mediaService: media,
		limiter:      newIPRateLimiter(cfg.LimiterRPS, cfg.LimiterBurst),
		checks: map[string]func(context.Context) error{
			"database": m.ping,
			"storage":  media.Ping,
		},
	}

	return app.serve(":" + cfg.Port)
}

func openModels(ctx context.Context, cfg *Config) (*models, error) {
	switch cfg.DBDriver {
	case "mongo":
		db, err := common.NewMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}

		users := userservice.NewMongoModel(db)
		blogs := blogservice.NewMongoModel(db)
		lists := listservice.NewMongoModel(db)

		for _, ensure := range []func(context.Context) error{users.EnsureIndexes, blogs.EnsureIndexes, lists.EnsureIndexes} {
			if err := ensure(ctx); err != nil {
				db.Close(context.Background())
				return nil, err
			}
		}

		return &models{
			users: users,
			blogs: blogs,
			lists: lists,
			ping:  db.Ping,
			close: func() error { return db.Close(context.Background()) },
		}, nil

	default:
		dbCfg := common.DBConfig{
			Host:         cfg.DBHost,
			Port:         cfg.DBPort,
			User:         cfg.DBUser,
			Password:     cfg.DBPassword,
			Name:         cfg.DBName,
			MaxOpenConns: 25,
			MaxIdleConns: 25,
			MaxIdleTime:  15 * time.Minute,
		}

		db, err := common.NewDB(ctx, dbCfg)
		if err != nil {
			return nil, err
		}

		if err := common.MigrateDB(cfg.Migrations, dbCfg); err != nil {
			common.CloseDB(db)
			return nil, err
		}

		return &models{
			users: userservice.NewPostgresModel(db),
			blogs: blogservice.NewPostgresModel(db),
			lists: listservice.NewPostgresModel(db),
			ping:  db.PingContext,
			close: func() error { return common.CloseDB(db) },
		}, nil
	}
}

func openCache(cfg *Config) (common.Cache, func() error, error) {
	if cfg.CacheBackend == "redis" {
		client, err := common.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}

		c := common.NewRedisCache(client, cfg.RedisPrefix, cfg.CacheTTL)
		return c, c.Close, nil
	}

	return common.NewCache(cfg.CacheTTL, 2*cfg.CacheTTL), func() error { return nil }, nil
}
