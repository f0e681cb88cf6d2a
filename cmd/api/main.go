package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/cache"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/config"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/database"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/events"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/http/handler"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/http/middleware"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/http/router"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/jobs"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/logger"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/quota"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/service"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Environment),
		zap.Int("port", cfg.App.Port),
	)

	// Connect to database with retry logic
	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Redis is optional. Without it the read caches become no-ops and
	// permission staleness checks are skipped.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unavailable, continuing without it", zap.Error(err))
			_ = rdb.Close()
			rdb = nil
		}
		cancel()
	} else {
		log.Info("redis not configured, caching disabled")
	}

	// Auth
	jwtValidator := auth.NewJWTValidator(&cfg.Auth)
	var permStore *auth.PermVersionStore
	if rdb != nil {
		permStore = auth.NewPermVersionStore(rdb, cfg.Auth.PermVersionTTLDuration())
	}
	authMiddleware := auth.NewMiddleware(jwtValidator, permStore, log)

	cacheClient := cache.New(rdb, log)
	quotaClient := quota.NewClient(&cfg.Quota, log)

	// Event bus. Falls back to a nop publisher when the broker is
	// disabled or unreachable.
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		mqttPub, err := events.NewMQTTPublisher(&cfg.Events, log)
		if err != nil {
			log.Warn("event broker unavailable, events disabled", zap.Error(err))
		} else {
			publisher = mqttPub
		}
	}

	// Repositories
	contactRepo := repository.NewContactRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	pipelineRepo := repository.NewPipelineRepository(db)
	dealRepo := repository.NewDealRepository(db)
	historyRepo := repository.NewDealStageHistoryRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	tagRepo := repository.NewTagRepository(db)
	customFieldRepo := repository.NewCustomFieldRepository(db)
	formRepo := repository.NewFormRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)

	// Services
	auditLogService := service.NewAuditLogService(auditLogRepo, log)
	tagService := service.NewTagService(tagRepo, quotaClient, auditLogService, log)

	scanners := map[domain.TagEntityType]service.UniqueScanFunc{
		domain.TagEntityContact: func(ctx context.Context, pattern string, excludeID *uuid.UUID) ([]domain.EntityData, error) {
			rows, err := contactRepo.FindUniqueValue(ctx, pattern, excludeID)
			if err != nil {
				return nil, err
			}
			docs := make([]domain.EntityData, len(rows))
			for i, row := range rows {
				docs[i] = row.EntityData
			}
			return docs, nil
		},
		domain.TagEntityCompany: func(ctx context.Context, pattern string, excludeID *uuid.UUID) ([]domain.EntityData, error) {
			rows, err := companyRepo.FindUniqueValue(ctx, pattern, excludeID)
			if err != nil {
				return nil, err
			}
			docs := make([]domain.EntityData, len(rows))
			for i, row := range rows {
				docs[i] = row.EntityData
			}
			return docs, nil
		},
		domain.TagEntityLead: func(ctx context.Context, pattern string, excludeID *uuid.UUID) ([]domain.EntityData, error) {
			rows, err := leadRepo.FindUniqueValue(ctx, pattern, excludeID)
			if err != nil {
				return nil, err
			}
			docs := make([]domain.EntityData, len(rows))
			for i, row := range rows {
				docs[i] = row.EntityData
			}
			return docs, nil
		},
		domain.TagEntityDeal: func(ctx context.Context, pattern string, excludeID *uuid.UUID) ([]domain.EntityData, error) {
			rows, err := dealRepo.FindUniqueValue(ctx, pattern, excludeID)
			if err != nil {
				return nil, err
			}
			docs := make([]domain.EntityData, len(rows))
			for i, row := range rows {
				docs[i] = row.EntityData
			}
			return docs, nil
		},
	}
	formService := service.NewFormService(formRepo, customFieldRepo, scanners, log)

	contactService := service.NewContactService(db, contactRepo, companyRepo, tagService, formService, quotaClient, publisher, auditLogService, log)
	companyService := service.NewCompanyService(db, companyRepo, contactRepo, tagService, formService, quotaClient, publisher, auditLogService, log)
	leadService := service.NewLeadService(db, leadRepo, contactRepo, companyRepo, dealRepo, historyRepo, pipelineRepo, tagService, formService, quotaClient, publisher, auditLogService, log)
	pipelineService := service.NewPipelineService(db, pipelineRepo, cacheClient, &cfg.Cache, quotaClient, auditLogService, log)
	dealService := service.NewDealService(db, dealRepo, historyRepo, pipelineRepo, contactRepo, companyRepo, tagService, formService, quotaClient, publisher, auditLogService, log)
	activityService := service.NewActivityService(db, activityRepo, contactRepo, companyRepo, dealRepo, leadRepo, cacheClient, &cfg.Cache, publisher, auditLogService, log)
	searchService := service.NewSearchService(contactRepo, companyRepo, leadRepo, dealRepo, log)
	customFieldService := service.NewCustomFieldService(customFieldRepo, formRepo, quotaClient, auditLogService, log)

	// Middleware and handlers
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	healthHandler := handler.NewHealthHandler(db, rdb, quotaClient, log)
	contactHandler := handler.NewContactHandler(contactService, log)
	companyHandler := handler.NewCompanyHandler(companyService, contactService, log)
	leadHandler := handler.NewLeadHandler(leadService, log)
	pipelineHandler := handler.NewPipelineHandler(pipelineService, dealService, log)
	dealHandler := handler.NewDealHandler(dealService, log)
	activityHandler := handler.NewActivityHandler(activityService, log)
	tagHandler := handler.NewTagHandler(tagService, log)
	customFieldHandler := handler.NewCustomFieldHandler(customFieldService, log)
	formHandler := handler.NewFormHandler(formService, log)
	auditHandler := handler.NewAuditHandler(auditLogService, log)
	searchHandler := handler.NewSearchHandler(searchService, log)
	internalHandler := handler.NewInternalHandler(contactRepo, companyRepo, leadRepo, dealRepo, pipelineRepo, permStore, log)

	rt := router.NewRouter(
		cfg,
		log,
		authMiddleware,
		rateLimiter,
		healthHandler,
		contactHandler,
		companyHandler,
		leadHandler,
		pipelineHandler,
		dealHandler,
		activityHandler,
		tagHandler,
		customFieldHandler,
		formHandler,
		auditHandler,
		searchHandler,
		internalHandler,
	)

	// Background jobs
	scheduler := jobs.NewScheduler(log)
	reminderJob := jobs.NewReminderJob(activityRepo, publisher, log)
	if err := reminderJob.Register(scheduler); err != nil {
		log.Error("Failed to register reminder job", zap.Error(err))
	} else {
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		stopCtx := scheduler.Stop()
		<-stopCtx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		publisher.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
