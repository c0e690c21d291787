package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwalitptl/credchain-api/internal/config"
	"github.com/jwalitptl/credchain-api/internal/handler"
	appointmenthandler "github.com/jwalitptl/credchain-api/internal/handler/appointment"
	assistanthandler "github.com/jwalitptl/credchain-api/internal/handler/assistant"
	audithandler "github.com/jwalitptl/credchain-api/internal/handler/audit"
	authhandler "github.com/jwalitptl/credchain-api/internal/handler/auth"
	credentialhandler "github.com/jwalitptl/credchain-api/internal/handler/credential"
	documenthandler "github.com/jwalitptl/credchain-api/internal/handler/document"
	recordhandler "github.com/jwalitptl/credchain-api/internal/handler/record"
	userhandler "github.com/jwalitptl/credchain-api/internal/handler/user"
	verificationhandler "github.com/jwalitptl/credchain-api/internal/handler/verification"
	"github.com/jwalitptl/credchain-api/internal/keys"
	"github.com/jwalitptl/credchain-api/internal/ledger"
	"github.com/jwalitptl/credchain-api/internal/middleware"
	"github.com/jwalitptl/credchain-api/internal/repository/postgres"
	"github.com/jwalitptl/credchain-api/internal/router"
	appointmentservice "github.com/jwalitptl/credchain-api/internal/service/appointment"
	assistantservice "github.com/jwalitptl/credchain-api/internal/service/assistant"
	auditservice "github.com/jwalitptl/credchain-api/internal/service/audit"
	authservice "github.com/jwalitptl/credchain-api/internal/service/auth"
	credentialservice "github.com/jwalitptl/credchain-api/internal/service/credential"
	documentservice "github.com/jwalitptl/credchain-api/internal/service/document"
	eventservice "github.com/jwalitptl/credchain-api/internal/service/event"
	"github.com/jwalitptl/credchain-api/internal/service/oracle"
	recordservice "github.com/jwalitptl/credchain-api/internal/service/record"
	userservice "github.com/jwalitptl/credchain-api/internal/service/user"
	verificationservice "github.com/jwalitptl/credchain-api/internal/service/verification"
	"github.com/jwalitptl/credchain-api/internal/worker"
	pkgauth "github.com/jwalitptl/credchain-api/pkg/auth"
	"github.com/jwalitptl/credchain-api/pkg/logger"
	"github.com/jwalitptl/credchain-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(nil)
	m := metrics.NewMetrics("credchain", "api")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	chain, err := ledger.NewChain(log, m)
	if err != nil {
		log.Fatal(err, "failed to initialize ledger")
	}

	baseRepo := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(baseRepo)
	documentRepo := postgres.NewDocumentRepository(baseRepo)
	verificationRepo := postgres.NewVerificationRepository(baseRepo)
	credentialRepo := postgres.NewCredentialRepository(baseRepo)
	recordRepo := postgres.NewRecordRepository(baseRepo)
	appointmentRepo := postgres.NewAppointmentRepository(baseRepo)
	keyPairRepo := postgres.NewKeyPairRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)

	keySvc := keys.NewService(log)
	jwtSvc := pkgauth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	eventSvc := eventservice.NewService(outboxRepo, log)
	oracleClient := oracle.NewHTTPClient(oracle.Config{
		BaseURL:  cfg.Oracle.BaseURL,
		Timeout:  cfg.Oracle.Timeout(),
		CacheTTL: cfg.Oracle.CacheTTL(),
	}, log)

	authSvc := authservice.NewService(userRepo, keyPairRepo, keySvc, jwtSvc, log)
	userSvc := userservice.NewService(userRepo, log)
	credentialSvc := credentialservice.NewService(credentialRepo, userRepo, recordRepo, chain, eventSvc, log, m)
	verificationSvc := verificationservice.NewService(verificationRepo, oracleClient, credentialSvc, eventSvc, log, m)
	recordSvc := recordservice.NewService(recordRepo, appointmentRepo, keyPairRepo, keySvc, chain, eventSvc, log, m)
	documentSvc := documentservice.NewService(documentRepo, log)
	appointmentSvc := appointmentservice.NewService(appointmentRepo, userRepo, log)
	assistantSvc := assistantservice.NewService(recordRepo, appointmentRepo, oracleClient, log)
	auditSvc := auditservice.NewService(auditRepo)

	authMW := middleware.NewAuthMiddleware(authSvc)
	r := router.NewRouter(
		authMW,
		handler.NewHandler(db),
		authhandler.NewHandler(authSvc),
		userhandler.NewHandler(userSvc),
		verificationhandler.NewHandler(verificationSvc, log),
		credentialhandler.NewHandler(credentialSvc),
		documenthandler.NewHandler(documentSvc),
		recordhandler.NewHandler(recordSvc),
		appointmenthandler.NewHandler(appointmentSvc),
		assistanthandler.NewHandler(assistantSvc),
		audithandler.NewHandler(auditSvc),
		router.Config{
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
			CORSConfig:     middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// the ledger lives in this process, so the sweeps that read it run here
	go worker.NewExpirySweep(credentialSvc,
		time.Duration(cfg.Worker.SweepIntervalMinutes)*time.Minute, log).Start(ctx)
	go worker.NewReconcile(credentialSvc,
		time.Duration(cfg.Worker.ReconcileIntervalMinutes)*time.Minute, log).Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "graceful shutdown failed")
	}
}
