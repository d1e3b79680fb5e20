package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	sqlassets "github.com/zenGate-Global/freightdesk/database"
	entitiesrepo "github.com/zenGate-Global/freightdesk/domains/entities/be/repo"
	entitiesservice "github.com/zenGate-Global/freightdesk/domains/entities/be/service"
	tenantsrepo "github.com/zenGate-Global/freightdesk/domains/tenants/be/repo"
	tenantsservice "github.com/zenGate-Global/freightdesk/domains/tenants/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/features"
	"github.com/zenGate-Global/freightdesk/platform/go/gcp"
	"github.com/zenGate-Global/freightdesk/platform/go/persistence"
	"github.com/zenGate-Global/freightdesk/platform/go/preferences"
	"github.com/zenGate-Global/freightdesk/platform/go/storage"
)

// stores bundles the repositories picked by STORE_BACKEND.
type stores struct {
	tenants  tenantsservice.Repository
	entities entitiesservice.Repository
	ready    func(r *http.Request) error
	closers  []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// firebaseApp is created lazily and shared by auth and Firestore.
type firebaseApp struct {
	cfg config
	app *firebase.App
}

func (f *firebaseApp) get(ctx context.Context) (*firebase.App, error) {
	if f.app != nil {
		return f.app, nil
	}
	app, err := gcp.GetApp(ctx, gcp.Config{CredentialsFile: f.cfg.FirebaseCredentialFile, ProjectID: f.cfg.FirebaseProjectID})
	if err != nil {
		return nil, err
	}
	f.app = app
	return app, nil
}

func openStores(ctx context.Context, cfg config, fb *firebaseApp, logger *zap.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case "postgres":
		return openPostgres(ctx, cfg, logger)
	case "firestore":
		app, err := fb.get(ctx)
		if err != nil {
			return nil, err
		}
		client, err := gcp.InitFirestore(ctx, app)
		if err != nil {
			return nil, err
		}
		return &stores{
			tenants:  tenantsrepo.NewFirestoreRepository(client),
			entities: entitiesrepo.NewFirestoreRepository(client),
			ready:    firestoreReady(client),
			closers:  []func(){func() { _ = client.Close() }},
		}, nil
	case "memory":
		logger.Warn("using in-memory stores; data is lost on restart")
		return &stores{
			tenants:  tenantsrepo.NewMemoryRepository(),
			entities: entitiesrepo.NewMemoryRepository(),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported STORE_BACKEND %q (use postgres, firestore or memory)", cfg.StoreBackend)
	}
}

func openPostgres(ctx context.Context, cfg config, logger *zap.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required when STORE_BACKEND=postgres")
	}
	pool, err := persistence.NewPool(ctx, cfg.poolConfig())
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}

	if cfg.DatabaseBootstrap {
		if err := persistence.Bootstrap(ctx, pool, cfg.DatabaseSchema); err != nil {
			persistence.ClosePool(pool)
			return nil, fmt.Errorf("bootstrap schema: %w", err)
		}
		logger.Info("database schema bootstrapped", zap.String("schema", cfg.DatabaseSchema))
	}

	db := persistence.NewDB(persistence.DBConfig{Pool: pool, Schema: cfg.DatabaseSchema})
	tenantStore, err := persistence.NewTenantStore(db)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, fmt.Errorf("init tenant store: %w", err)
	}
	documentStore, err := persistence.NewDocumentStore(db)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, fmt.Errorf("init document store: %w", err)
	}

	return &stores{
		tenants:  tenantsrepo.NewPostgresRepository(tenantStore),
		entities: entitiesrepo.NewPostgresRepository(documentStore),
		ready:    postgresReady(pool),
		closers:  []func(){func() { persistence.ClosePool(pool) }},
	}, nil
}

func postgresReady(pool *pgxpool.Pool) func(r *http.Request) error {
	return func(r *http.Request) error {
		return pool.Ping(r.Context())
	}
}

func firestoreReady(client *firestore.Client) func(r *http.Request) error {
	return func(r *http.Request) error {
		_, err := client.Collection(tenantsrepo.TenantsCollection).Limit(1).Documents(r.Context()).GetAll()
		return err
	}
}

func openPreferences(ctx context.Context, cfg config) (*features.Access, func(), error) {
	switch cfg.PreferencesBackend {
	case "redis":
		client, err := preferences.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return features.NewAccess(preferences.NewRedisStore(client)), func() { _ = client.Close() }, nil
	case "memory":
		return features.NewAccess(preferences.NewMemoryStore()), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported PREFERENCES_BACKEND %q (use redis or memory)", cfg.PreferencesBackend)
	}
}

func loadValidator() (*persistence.SchemaValidator, error) {
	return persistence.LoadSchemaValidator(sqlassets.DocumentSchemas, "schema/documents")
}

func openAttachmentStore(ctx context.Context, cfg config, fb *firebaseApp) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "gcs":
		if cfg.StorageBucket == "" {
			return nil, errors.New("STORAGE_BUCKET is required when STORAGE_BACKEND=gcs")
		}
		app, err := fb.get(ctx)
		if err != nil {
			return nil, err
		}
		bucket, err := gcp.InitStorageBucket(ctx, app, cfg.StorageBucket)
		if err != nil {
			return nil, err
		}
		return storage.NewGCSStore(bucket, cfg.StorageBucket), nil
	case "local":
		return storage.NewLocalStore(cfg.StorageLocalDir)
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q (use gcs or local)", cfg.StorageBackend)
	}
}

// readiness reports ready when the record store and the attachment store both answer.
func readiness(records func(r *http.Request) error, blobs storage.Store) func(r *http.Request) error {
	return func(r *http.Request) error {
		if records != nil {
			if err := records(r); err != nil {
				return fmt.Errorf("record store: %w", err)
			}
		}
		if err := blobs.Check(r.Context()); err != nil {
			return fmt.Errorf("attachment store: %w", err)
		}
		return nil
	}
}
