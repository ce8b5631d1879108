package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/segyhp/investment-engine/internal/config"
	"github.com/segyhp/investment-engine/internal/gateway"
	"github.com/segyhp/investment-engine/internal/lock"
	"github.com/segyhp/investment-engine/internal/notifier"
	"github.com/segyhp/investment-engine/internal/repository"
	"github.com/segyhp/investment-engine/internal/scheduler"
	"github.com/segyhp/investment-engine/internal/service"
)

// Store groups the repositories of one backend. DB is nil for the in-memory driver.
type Store struct {
	DB              *sqlx.DB
	Investments     repository.InvestmentRepository
	Projects        repository.ProjectRepository
	Notifications   repository.NotificationRepository
	EliminationRuns repository.EliminationRunRepository
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenStore connects to the configured database and applies the schema.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	if cfg.Driver == config.DriverMemory {
		mem := repository.NewMemoryStore()
		return &Store{
			Investments:     mem.Investments(),
			Projects:        mem.Projects(),
			Notifications:   mem.Notifications(),
			EliminationRuns: mem.EliminationRuns(),
		}, nil
	}

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == config.DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		DB:              db,
		Investments:     repository.NewInvestmentRepository(db),
		Projects:        repository.NewProjectRepository(db),
		Notifications:   repository.NewNotificationRepository(db),
		EliminationRuns: repository.NewEliminationRunRepository(db),
	}, nil
}

// OpenRedis returns a connected client, or nil when Redis is not configured.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if !cfg.RedisEnabled() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Health.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	return client, nil
}

// NewLocker picks the Redis lease when Redis is available, the process-local one otherwise.
func NewLocker(client *redis.Client) lock.Locker {
	if client == nil {
		return lock.NewLocalLocker()
	}
	return lock.NewRedisLocker(client)
}

// App is everything the binaries need, built from one Config.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Store       *Store
	Redis       *redis.Client
	Streamer    *notifier.Streamer
	Schedule    *scheduler.Schedule
	Investments *service.InvestmentService
	Elimination *service.EliminationService
}

// New wires stores, ports and services.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	schedule, err := scheduler.ParseSchedule(cfg.CronSpec(), cfg.GetLocation())
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	rdb, err := OpenRedis(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	n := notifier.NewStoreNotifier(store.Notifications, rdb, cfg.Notification.ChannelPrefix, logger)
	locker := NewLocker(rdb)

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Redis:    rdb,
		Schedule: schedule,
		Investments: service.NewInvestmentService(
			store.Investments, store.Projects, store.Notifications, n, gateway.NewOffline(), cfg, logger,
		),
		Elimination: service.NewEliminationService(
			store.Investments, store.Projects, store.EliminationRuns, n, locker, schedule, cfg.Scheduler.LockTTL, logger,
		),
	}

	if rdb != nil {
		app.Streamer = notifier.NewStreamer(rdb, cfg.Notification.ChannelPrefix, cfg.GetStreamOrigins(), logger)
	}

	logger.Info("application wired",
		zap.String("database", cfg.Database.Driver),
		zap.Bool("redis", rdb != nil),
		zap.String("cron", schedule.Spec()),
		zap.String("timezone", cfg.Scheduler.Timezone),
	)
	return app, nil
}

// Close releases connections.
func (a *App) Close() {
	if a.Streamer != nil {
		a.Streamer.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("failed to close database", zap.Error(err))
	}
}

// ShutdownTimeout bounds graceful shutdown of both binaries.
const ShutdownTimeout = 30 * time.Second
