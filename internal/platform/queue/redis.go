package queue

import (
	"context"

	"gauntlet/internal/platform/config"
	"gauntlet/internal/platform/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var RDB *redis.Client

func ConnectRedis() {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	ctx := context.Background()
	if _, err := RDB.Ping(ctx).Result(); err != nil {
		logger.L.Fatal("Could not connect to Redis", zap.Error(err))
	}
	logger.L.Info("Connected to Redis", zap.String("addr", config.AppConfig.RedisAddr))
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
		logger.L.Info("Redis connection closed")
	}
}
