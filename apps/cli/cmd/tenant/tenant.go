package tenantcmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/freightdesk/domains/tenants/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/features"
)

// Command groups tenant-related helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant utilities (create, demo, list, set-tier)",
	}

	cmd.AddCommand(createCommand())
	cmd.AddCommand(demoCommand())
	cmd.AddCommand(listCommand())
	cmd.AddCommand(setTierCommand())
	return cmd
}

func createCommand() *cobra.Command {
	var (
		store       storeFlags
		companyName string
		ownerUID    string
		ownerEmail  string
		tier        string
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant with an admin owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			svc, closeFn, err := store.open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := svc.CreateTenant(ctx, ownerUID, ownerEmail, companyName)
			if err != nil {
				return fmt.Errorf("create tenant: %w", err)
			}
			if tier != "" {
				parsed, ok := features.ParseTier(tier)
				if !ok {
					return fmt.Errorf("unknown tier %q", tier)
				}
				if t, err = svc.UpdateTier(ctx, t.ID, parsed); err != nil {
					return fmt.Errorf("set tier: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tenant created: %s (%s) tier=%s owner=%s\n", t.Slug, t.ID, t.Tier, ownerEmail)
			return nil
		},
	}

	store.register(c)
	c.Flags().StringVar(&companyName, "company-name", "", "Company display name")
	c.Flags().StringVar(&ownerUID, "owner-uid", "", "Firebase uid of the owner")
	c.Flags().StringVar(&ownerEmail, "owner-email", "", "Owner email")
	c.Flags().StringVar(&tier, "tier", "", "Initial subscription tier (defaults to trial)")

	_ = c.MarkFlagRequired("company-name")
	_ = c.MarkFlagRequired("owner-uid")
	_ = c.MarkFlagRequired("owner-email")

	return c
}

func demoCommand() *cobra.Command {
	var (
		store storeFlags
		uid   string
		email string
	)

	c := &cobra.Command{
		Use:   "demo",
		Short: "Ensure the shared demo tenant exists and the given demo account belongs to it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			svc, closeFn, err := store.open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if !svc.IsDemoEmail(email) {
				return fmt.Errorf("%s is not a demo address", email)
			}
			tenantID, err := svc.GetTenantIDForUser(ctx, uid, email)
			if err != nil {
				return fmt.Errorf("ensure demo tenant: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Demo tenant ready: %s (member %s)\n", tenantID, email)
			return nil
		},
	}

	store.register(c)
	c.Flags().StringVar(&uid, "uid", "demo-user", "Firebase uid of the demo account")
	c.Flags().StringVar(&email, "email", "demo@freightdesk.dev", "Demo account email")

	return c
}

func listCommand() *cobra.Command {
	var store storeFlags

	c := &cobra.Command{
		Use:   "list",
		Short: "List tenants with their tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			svc, closeFn, err := store.open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			tenants, err := svc.List(ctx)
			if err != nil {
				return fmt.Errorf("list tenants: %w", err)
			}
			return writeTenants(cmd.OutOrStdout(), tenants)
		},
	}

	store.register(c)
	return c
}

func setTierCommand() *cobra.Command {
	var (
		store    storeFlags
		tenantID string
		tier     string
	)

	c := &cobra.Command{
		Use:   "set-tier",
		Short: "Change a tenant's subscription tier",
		Long: "Change a tenant's subscription tier. Running API servers cache tenant scopes, " +
			"so the change is visible after TENANT_CACHE_TTL at most.",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, ok := features.ParseTier(tier)
			if !ok {
				return fmt.Errorf("unknown tier %q (valid: %s)", tier, tierList())
			}

			ctx := commandContext(cmd)
			svc, closeFn, err := store.open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := svc.UpdateTier(ctx, tenantID, parsed)
			if err != nil {
				return fmt.Errorf("update tier: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s (%s) is now on %s\n", t.Slug, t.ID, t.Tier)
			return nil
		},
	}

	store.register(c)
	c.Flags().StringVar(&tenantID, "tenant-id", "", "Tenant id")
	c.Flags().StringVar(&tier, "tier", "", "New tier ("+tierList()+")")

	_ = c.MarkFlagRequired("tenant-id")
	_ = c.MarkFlagRequired("tier")

	return c
}

func writeTenants(out io.Writer, tenants []service.Tenant) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSLUG\tNAME\tTIER\tDEMO\tOWNER")
	for _, t := range tenants {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n", t.ID, t.Slug, t.Name, t.Tier, t.IsDemo, t.OwnerEmail)
	}
	return tw.Flush()
}

func tierList() string {
	tiers := features.Tiers()
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
