package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/rueidis"
	"gorm.io/gorm"

	config "task-assignment-api.com/task-assignment-api/internal/configs"
	"task-assignment-api.com/task-assignment-api/internal/queue"
	repository "task-assignment-api.com/task-assignment-api/internal/repositories"
)

// runtime holds the process-wide collaborators opened at start and closed
// at shutdown.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
	db     *gorm.DB
	store  *repository.Store
	redis  rueidis.Client
	ledger queue.DriftLedger
}

func bootstrap() (*runtime, error) {
	envMissing := false
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		envMissing = true
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := config.NewLogger(os.Stdout, cfg.LogLevel)
	if envMissing {
		logger.Info("env file not found, using environment variables", "path", envFile)
	}

	db, err := config.NewDatabaseClient(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:    cfg,
		logger: logger,
		db:     db,
		store:  repository.NewStore(db),
		ledger: queue.NewMemoryDriftLedger(),
	}

	if cfg.RedisAddr != "" {
		client, err := config.NewRedisClient(cfg.RedisAddr)
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.redis = client
		rt.ledger = queue.NewRedisDriftLedger(client, cfg.RedisDriftKey)
	}

	logger.Info("runtime ready",
		"database", cfg.DatabaseDSN,
		"transactions", cfg.Transactions,
		"redis", cfg.RedisAddr != "")
	return rt, nil
}

func (rt *runtime) close() {
	if rt.redis != nil {
		rt.redis.Close()
	}
	if err := config.CloseDatabaseClient(rt.db); err != nil {
		rt.logger.Error("failed to close database", "error", err.Error())
	}
}
