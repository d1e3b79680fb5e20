package tenantcmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	tenantsrepo "github.com/zenGate-Global/freightdesk/domains/tenants/be/repo"
	"github.com/zenGate-Global/freightdesk/domains/tenants/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/gcp"
	"github.com/zenGate-Global/freightdesk/platform/go/persistence"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

// storeFlags selects the tenant registry the command operates on. Defaults
// come from the same environment variables the API server reads.
type storeFlags struct {
	backend          string
	databaseURL      string
	schema           string
	projectID        string
	credentialsFile  string
	demoTenantID     string
	demoEmailPattern string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.backend, "store", envOr("STORE_BACKEND", "postgres"), "tenant registry backend (postgres|firestore)")
	cmd.Flags().StringVar(&f.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	cmd.Flags().StringVar(&f.schema, "schema", envOr("DATABASE_SCHEMA", persistence.DefaultSchema), "Postgres schema that holds FreightDesk tables")
	cmd.Flags().StringVar(&f.projectID, "project-id", os.Getenv("FIREBASE_PROJECT_ID"), "Firebase project ID for the firestore backend")
	cmd.Flags().StringVar(&f.credentialsFile, "credentials-file", os.Getenv("FIREBASE_CREDENTIALS_FILE"), "service account file for the firestore backend")
	cmd.Flags().StringVar(&f.demoTenantID, "demo-tenant-id", envOr("DEMO_TENANT_ID", service.DefaultDemoTenantID), "id of the shared demo tenant")
	cmd.Flags().StringVar(&f.demoEmailPattern, "demo-email-pattern", os.Getenv("DEMO_EMAIL_PATTERN"), "regexp matching demo account emails")
}

// open builds a tenant service over the selected backend. The returned func
// releases the underlying connections.
func (f *storeFlags) open(ctx context.Context) (*service.Service, func(), error) {
	matcher, err := tenant.NewDemoMatcher(f.demoEmailPattern)
	if err != nil {
		return nil, nil, fmt.Errorf("compile demo email pattern: %w", err)
	}
	cfg := service.Config{DemoTenantID: f.demoTenantID, DemoMatcher: matcher}

	switch f.backend {
	case "postgres":
		if f.databaseURL == "" {
			return nil, nil, fmt.Errorf("--database-url (or DATABASE_URL) is required for the postgres store")
		}
		pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
			ConnString:      f.databaseURL,
			ApplicationName: "freightdesk-cli",
			Schema:          f.schema,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init pool: %w", err)
		}
		store, err := persistence.NewTenantStore(persistence.NewDB(persistence.DBConfig{Pool: pool, Schema: f.schema}))
		if err != nil {
			persistence.ClosePool(pool)
			return nil, nil, fmt.Errorf("init tenant store: %w", err)
		}
		return service.New(tenantsrepo.NewPostgresRepository(store), cfg), func() { persistence.ClosePool(pool) }, nil
	case "firestore":
		app, err := gcp.GetApp(ctx, gcp.Config{CredentialsFile: f.credentialsFile, ProjectID: f.projectID})
		if err != nil {
			return nil, nil, err
		}
		client, err := gcp.InitFirestore(ctx, app)
		if err != nil {
			return nil, nil, err
		}
		return service.New(tenantsrepo.NewFirestoreRepository(client), cfg), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store %q (use postgres or firestore)", f.backend)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
