package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gauntlet/internal/api"
	"gauntlet/internal/app/service"
	"gauntlet/internal/common/security"
	"gauntlet/internal/domain/repository"
	"gauntlet/internal/executor"
	"gauntlet/internal/platform/config"
	"gauntlet/internal/platform/database"
	"gauntlet/internal/platform/logger"
	"gauntlet/internal/platform/queue"

	"go.uber.org/zap"
)

func main() {
	config.Load()

	logger.Init(config.AppConfig.LogLevel)
	defer logger.Sync()

	security.InitJWT()

	database.Connect()
	defer database.Close()

	queue.ConnectRedis()
	defer queue.CloseRedis()

	examRepo := repository.NewPgExamRepository(database.DB)
	questionRepo := repository.NewPgQuestionRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	participantRepo := repository.NewPgParticipantRepository(database.DB)

	execClient := executor.NewPistonClient(executor.Options{
		BaseURL:                 config.AppConfig.SandboxBaseURL,
		CompileTimeoutMs:        config.AppConfig.SandboxCompileTimeoutMs,
		DefaultTimeLimitSeconds: config.AppConfig.DefaultTimeLimitSeconds,
		RequestGraceMs:          config.AppConfig.SandboxRequestGraceMs,
		RuntimeCacheTTL:         time.Duration(config.AppConfig.RuntimeCacheTTLSeconds) * time.Second,
	}, queue.RDB, logger.L)

	judgeService := service.NewJudgeService(execClient, config.AppConfig.ExecutionConcurrency, logger.L)
	progressionService := service.NewProgressionService(examRepo, questionRepo, submissionRepo, participantRepo, logger.L)
	questionService := service.NewQuestionService(questionRepo, progressionService, logger.L)
	submissionService := service.NewSubmissionService(
		questionRepo, submissionRepo, progressionService, judgeService,
		queue.RDB, time.Duration(config.AppConfig.SubmitLockTTLSeconds)*time.Second, logger.L,
	)

	router := api.NewRouter(progressionService, questionService, submissionService)

	server := &http.Server{
		Addr:    ":" + config.AppConfig.APIPort,
		Handler: router,
	}

	go func() {
		logger.L.Info("Server listening", zap.String("port", config.AppConfig.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.L.Error("Forced shutdown", zap.Error(err))
	}
	logger.L.Info("Server stopped")
}
