package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/zenGate-Global/freightdesk/contracts"
	attachmentshandler "github.com/zenGate-Global/freightdesk/domains/attachments/be/handler"
	attachmentsservice "github.com/zenGate-Global/freightdesk/domains/attachments/be/service"
	dashboardhandler "github.com/zenGate-Global/freightdesk/domains/dashboard/be/handler"
	dashboardservice "github.com/zenGate-Global/freightdesk/domains/dashboard/be/service"
	entitieshandler "github.com/zenGate-Global/freightdesk/domains/entities/be/handler"
	entitiesservice "github.com/zenGate-Global/freightdesk/domains/entities/be/service"
	tenantsservice "github.com/zenGate-Global/freightdesk/domains/tenants/be/service"
	platformlogging "github.com/zenGate-Global/freightdesk/platform/go/logging"
	"github.com/zenGate-Global/freightdesk/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/freightdesk/platform/go/middleware"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Version:   cfg.Version,
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	spec, err := contracts.LoadAPI(ctx)
	if err != nil {
		logger.Fatal("load api contract", zap.Error(err))
	}

	fb := &firebaseApp{cfg: cfg}
	st, err := openStores(ctx, cfg, fb, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer st.Close()

	demoTier, closePrefs, err := openPreferences(ctx, cfg)
	if err != nil {
		logger.Fatal("open preference store", zap.Error(err))
	}
	defer closePrefs()

	verify, err := buildVerifier(ctx, cfg, fb, logger)
	if err != nil {
		logger.Fatal("init auth", zap.Error(err))
	}

	demoMatcher, err := tenant.NewDemoMatcher(cfg.DemoEmailPattern)
	if err != nil {
		logger.Fatal("compile demo email pattern", zap.Error(err))
	}

	validator, err := loadValidator()
	if err != nil {
		logger.Fatal("load document schemas", zap.Error(err))
	}

	blobs, err := openAttachmentStore(ctx, cfg, fb)
	if err != nil {
		logger.Fatal("open attachment store", zap.Error(err))
	}

	m := metrics.New("freightdesk-api")

	tenantService := tenantsservice.New(st.tenants, tenantsservice.Config{
		DemoTenantID: cfg.DemoTenantID,
		DemoMatcher:  demoMatcher,
		Recorder:     m,
	})
	entitiesService := entitiesservice.New(st.entities, entitiesservice.Config{Validator: validator})
	dashboardService := dashboardservice.New(st.entities)
	attachmentsService := attachmentsservice.New(blobs, entitiesService, cfg.MaxUploadBytes)

	limiter := platformmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	go limiter.Run(ctx)

	cors := platformmiddleware.DefaultCORS()
	if len(cfg.CORSOrigins) > 0 {
		cors = platformmiddleware.CORS(cfg.CORSOrigins)
	}

	handler := buildRouter(routerDeps{
		Logger:         logger,
		Spec:           spec,
		Metrics:        m,
		Verify:         verify,
		RateLimiter:    limiter,
		CORS:           cors,
		RequestTimeout: cfg.RequestTimeout,
		TenantCacheTTL: cfg.TenantCacheTTL,
		Ready:          readiness(st.ready, blobs),
		Tenants:        tenantService,
		Entities:       entitieshandler.New(entitiesService, logger),
		Dashboard:      dashboardhandler.New(dashboardService, logger),
		Attachments:    attachmentshandler.New(attachmentsService, logger),
		DemoTier:       demoTier,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreBackend),
			zap.String("auth", cfg.AuthProvider),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
