package main

import (
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	attachmentshandler "github.com/zenGate-Global/freightdesk/domains/attachments/be/handler"
	dashboardhandler "github.com/zenGate-Global/freightdesk/domains/dashboard/be/handler"
	entitieshandler "github.com/zenGate-Global/freightdesk/domains/entities/be/handler"
	entitiesservice "github.com/zenGate-Global/freightdesk/domains/entities/be/service"
	featureshandler "github.com/zenGate-Global/freightdesk/domains/features/be/handler"
	tenantshandler "github.com/zenGate-Global/freightdesk/domains/tenants/be/handler"
	tenantsservice "github.com/zenGate-Global/freightdesk/domains/tenants/be/service"
	platformauth "github.com/zenGate-Global/freightdesk/platform/go/auth"
	"github.com/zenGate-Global/freightdesk/platform/go/features"
	featuremw "github.com/zenGate-Global/freightdesk/platform/go/features/middleware"
	platformlogging "github.com/zenGate-Global/freightdesk/platform/go/logging"
	"github.com/zenGate-Global/freightdesk/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/freightdesk/platform/go/middleware"
	tenantmiddleware "github.com/zenGate-Global/freightdesk/platform/go/tenant/middleware"
)

// routerDeps carries everything the HTTP surface needs. main builds it from
// config; tests build it from in-memory stores.
type routerDeps struct {
	Logger         *zap.Logger
	Spec           *openapi3.T
	Metrics        *metrics.Metrics
	Verify         platformauth.VerifyFunc
	RateLimiter    *platformmiddleware.RateLimiter
	CORS           func(http.Handler) http.Handler
	RequestTimeout time.Duration
	TenantCacheTTL time.Duration
	Ready          func(r *http.Request) error

	Tenants     *tenantsservice.Service
	Entities    *entitieshandler.Handler
	Dashboard   *dashboardhandler.Handler
	Attachments *attachmentshandler.Handler
	DemoTier    *features.Access
}

// collectionRoutes maps each collection route to the features it requires.
var collectionRoutes = []struct {
	path       string
	collection entitiesservice.Collection
	features   []features.Feature
}{
	{"/customers", entitiesservice.Customers, []features.Feature{features.CustomerManagement}},
	{"/loads", entitiesservice.Loads, []features.Feature{features.LoadManagement}},
	{"/drivers", entitiesservice.Drivers, []features.Feature{features.DriverManagement}},
	{"/vehicles", entitiesservice.Vehicles, []features.Feature{features.VehicleManagement}},
	{"/invoices", entitiesservice.Invoices, []features.Feature{features.Invoicing}},
	{"/expenses", entitiesservice.Expenses, []features.Feature{features.ExpenseTracking}},
	{"/settlements", entitiesservice.Settlements, []features.Feature{features.Settlements}},
}

func buildRouter(d routerDeps) http.Handler {
	if d.CORS == nil {
		d.CORS = platformmiddleware.DefaultCORS()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 15 * time.Second
	}

	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(d.RequestTimeout),
		d.CORS,
	)
	if d.Metrics != nil {
		rootRouter.Use(d.Metrics.Middleware)
	}
	rootRouter.Use(platformlogging.RequestLogger(d.Logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r); err != nil {
				platformlogging.FromRequest(r, d.Logger).Warn("readiness check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	if d.Metrics != nil {
		rootRouter.Handle("/metrics", d.Metrics.Handler())
	}
	registerDocsRoutes(rootRouter, d.Spec, d.Logger)

	checker := featuremw.ScopeChecker(d.DemoTier)
	var recorder featuremw.DenialRecorder
	if d.Metrics != nil {
		recorder = d.Metrics
	}
	gated := func(fs ...features.Feature) func(http.Handler) http.Handler {
		return featuremw.RequireFeature(checker, recorder, d.Logger, fs...)
	}

	validate := platformmiddleware.SpecValidator(d.Spec)
	tenantHTTPHandler := tenantshandler.New(d.Tenants, d.Logger)
	featuresHTTPHandler := featureshandler.New(checker, d.DemoTier, d.Logger)

	apiRouter := chi.NewRouter()
	apiRouter.Use(platformauth.JWT(d.Verify, platformauth.DefaultCredentialExtractor))
	apiRouter.Use(platformmiddleware.RequestTrace)
	if d.RateLimiter != nil {
		apiRouter.Use(d.RateLimiter.Middleware)
	}

	apiRouter.With(validate).Get("/tiers", featuresHTTPHandler.Tiers)

	scoped := tenantmiddleware.WithTenantScope(d.Tenants, tenantmiddleware.Config{
		CacheTTL: d.TenantCacheTTL,
		Logger:   d.Logger,
	})

	apiRouter.Group(func(r chi.Router) {
		r.Use(platformauth.RequireUser)
		r.Use(validate)

		// reachable before onboarding
		tenantHTTPHandler.Routes(r)

		r.Group(func(r chi.Router) {
			r.Use(scoped)

			r.Get("/features", featuresHTTPHandler.Snapshot)
			r.Get("/features/gate", featuresHTTPHandler.Gate)
			r.Put("/features/tier", featuresHTTPHandler.SetDemoTier)

			r.With(gated(features.Dashboard)).Get("/dashboard", d.Dashboard.Stats)

			for _, route := range collectionRoutes {
				route := route
				r.With(gated(route.features...)).Route(route.path, func(r chi.Router) {
					d.Entities.Mount(r, route.collection)
				})
			}
			r.With(gated(features.DriverManagement, features.VehicleManagement)).Route("/fleet", d.Entities.MountFleet)
		})
	})

	// attachment bodies are raw files, so these routes skip contract validation
	if d.Attachments != nil {
		apiRouter.Group(func(r chi.Router) {
			r.Use(platformauth.RequireUser, scoped, gated(features.DocumentStorage))
			r.Route("/attachments", d.Attachments.Routes)
		})
	}

	rootRouter.Mount("/api/v1", apiRouter)
	return rootRouter
}
