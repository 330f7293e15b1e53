package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vetletters/claims-intake/internal/application"
	appclaims "github.com/vetletters/claims-intake/internal/application/claims"
	"github.com/vetletters/claims-intake/internal/config"
	domain "github.com/vetletters/claims-intake/internal/domain/claims"
	aiopenai "github.com/vetletters/claims-intake/internal/infra/ai/openai"
	"github.com/vetletters/claims-intake/internal/infra/crm"
	mysqlp "github.com/vetletters/claims-intake/internal/infra/db/mysql"
	postgresp "github.com/vetletters/claims-intake/internal/infra/db/postgres"
	"github.com/vetletters/claims-intake/internal/infra/httpclient"
	"github.com/vetletters/claims-intake/internal/infra/httpserver"
	"github.com/vetletters/claims-intake/internal/infra/mail"
	"github.com/vetletters/claims-intake/internal/infra/report"
	minioStore "github.com/vetletters/claims-intake/internal/infra/storage"
	"github.com/vetletters/claims-intake/internal/infra/workdrive"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// connect database (mysql default, postgres optional)
	var (
		db   *sql.DB
		repo domain.Repository
		errs domain.StageErrorRepository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			logger.Fatal("postgres connect error", zap.Error(err))
		}
		repo = postgresp.NewClaimRepository(db)
		errs = postgresp.NewStageErrorRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			logger.Fatal("mysql connect error", zap.Error(err))
		}
		repo = mysqlp.NewClaimRepository(db)
		errs = mysqlp.NewStageErrorRepository(db)
	}
	defer db.Close()

	// init minio archive
	archive, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		logger.Fatal("minio init error", zap.Error(err))
	}

	clock := application.SystemClock{}

	// init report renderer
	renderer, err := report.NewBuilder(clock)
	if err != nil {
		logger.Fatal("report template error", zap.Error(err))
	}

	// init external clients
	wd := workdrive.New(cfg.WorkDrive.BaseURL, cfg.WorkDrive.AccessToken,
		cfg.WorkDrive.ReportsFolderID, httpclient.DefaultTimeout)
	crmClient := crm.New(cfg.CRM.BaseURL, cfg.CRM.AccessToken,
		cfg.CRM.Module, httpclient.DefaultTimeout)
	mailClient := mail.New(cfg.Mail.BaseURL, cfg.Mail.AccessToken,
		cfg.Mail.AccountID, cfg.Mail.From, httpclient.DefaultTimeout)
	analyzer := aiopenai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, logger)

	// init service
	svc := &appclaims.Service{
		Repo:     repo,
		Errors:   errs,
		Fetcher:  wd,
		Analyzer: analyzer,
		Renderer: renderer,
		Archive:  archive,
		Store:    wd,
		Notifier: mailClient,
		CRM:      crmClient,
		Clock:    clock,
		Log:      logger,
		Retry: appclaims.RetryPolicy{
			MaxAttempts: cfg.Pipeline.MaxAttempts,
			BaseDelay:   time.Duration(cfg.Pipeline.RetryBackoffMs) * time.Millisecond,
		},
		StageTimeout: time.Duration(cfg.Pipeline.StageTimeoutSec) * time.Second,
	}

	// init router
	handler := httpserver.NewRouter(svc, cfg, db, logger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
