package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/api"
	"github.com/BytePitApp/bytepit-api/internal/app/service"
	"github.com/BytePitApp/bytepit-api/internal/app/worker"
	"github.com/BytePitApp/bytepit-api/internal/common/security"
	"github.com/BytePitApp/bytepit-api/internal/domain/repository"
	"github.com/BytePitApp/bytepit-api/internal/platform/blob"
	"github.com/BytePitApp/bytepit-api/internal/platform/config"
	"github.com/BytePitApp/bytepit-api/internal/platform/database"
	"github.com/BytePitApp/bytepit-api/internal/platform/executor"
	"github.com/BytePitApp/bytepit-api/internal/platform/logger"
	"github.com/BytePitApp/bytepit-api/internal/platform/mailer"
	"github.com/BytePitApp/bytepit-api/internal/platform/queue"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log := logger.New("bytepit-api", cfg.LogLevel, cfg.LogJSON)
	log.Info("configuration loaded")

	ctx := context.Background()
	fatal := func(msg string, err error) {
		log.Error(msg, "error", err)
		os.Exit(1)
	}

	// 2. Initialize Database
	db, err := database.Connect(ctx, cfg.DBConnStr)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(cfg.MigrationURL()); err != nil {
			fatal("failed to run migrations", err)
		}
		log.Info("database migrated")
	}

	// 3. Initialize Redis
	rdb, err := queue.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		fatal("failed to connect to redis", err)
	}
	defer rdb.Close()

	// 4. External collaborators
	blobs, err := blob.New(ctx, cfg)
	if err != nil {
		fatal("failed to initialise blob storage", err)
	}
	exec := executor.NewClient(cfg.ExecutorURL, cfg.ExecutorAPIKey, cfg.ExecutorAPIHost, cfg.ExecutorTimeout)
	smtp := mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, cfg.MailFromName)
	mailQueue := queue.NewMailQueue(rdb, cfg.MailQueueName)
	jwt := security.NewJWTManager(cfg.JWTKey, cfg.JWTExp)

	var locker service.Locker
	if cfg.SubmissionLockTTL > 0 {
		locker = queue.NewLocker(rdb, cfg.SubmissionLockPrefix, cfg.SubmissionLockTTL)
	}

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(db)
	verificationRepo := repository.NewPgVerificationRepository(db)
	problemRepo := repository.NewPgProblemRepository(db)
	competitionRepo := repository.NewPgCompetitionRepository(db)
	resultRepo := repository.NewPgResultRepository(db)
	trophyRepo := repository.NewPgTrophyRepository(db)
	tests := repository.NewBlobTestCaseStore(blobs)

	// 6. Initialize Services
	services := api.Services{
		Auth:        service.NewAuthService(db, userRepo, verificationRepo, jwt, mailQueue, cfg.PublicBaseURL, cfg.VerificationTokenTTL),
		Admin:       service.NewAdminService(userRepo),
		Problem:     service.NewProblemService(problemRepo, resultRepo, tests, db),
		Submission:  service.NewSubmissionService(problemRepo, competitionRepo, resultRepo, tests, exec, locker),
		Competition: service.NewCompetitionService(competitionRepo, problemRepo, resultRepo, trophyRepo, userRepo, db),
	}

	// 7. Initialize Mail Worker (as a goroutine)
	mailWorker := worker.NewMailWorker(mailQueue, smtp, log.Logger)
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		mailWorker.Start(workerCtx)
	}()

	// 8. Initialize Router & HTTP Server
	router := api.NewRouter(services, jwt, log, api.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		CookieSecure:   cfg.CookieSecure,
	})

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      130 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("server starting", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server stopped unexpectedly", err)
		}
	}()

	<-stop // Wait for interrupt signal

	log.Info("shutting down server")
	workerCancel() // Signal worker to stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	<-workerDone

	log.Info("server and worker stopped")
}
