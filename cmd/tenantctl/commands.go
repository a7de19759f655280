package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/tenantkit/pkg/catalog"
	"github.com/dmitrymomot/tenantkit/pkg/storage"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// admin is what the commands operate on.
type admin struct {
	dir   *tenant.Directory
	conns *storage.Connections
}

type setupFunc func(ctx context.Context) (*admin, func(), error)

var (
	errPartitionFlags = errors.New("exactly one of --key or --dsn is required")
	errSlugRequired   = errors.New("--slug is required when --name does not yield one")
)

func newRootCommand(setup setupFunc) *cobra.Command {
	var (
		a       *admin
		cleanup func()
	)

	root := &cobra.Command{
		Use:           "tenantctl",
		Short:         "Provision and administer tenants",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			a, cleanup, err = setup(cmd.Context())
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if cleanup != nil {
				cleanup()
			}
		},
	}
	get := func() *admin { return a }

	root.AddCommand(
		newCreateCommand(get),
		newStatusCommand(get, "activate", "Admit traffic for a tenant", (*tenant.Directory).ActivateTenant),
		newStatusCommand(get, "deactivate", "Reject traffic for a tenant", (*tenant.Directory).DeactivateTenant),
		newUpdateConnCommand(get),
		newRenameCommand(get),
		newProvisionCommand(get),
		newListCommand(get),
	)
	return root
}

func partitionFromFlags(key, dsn string) (tenant.Partition, error) {
	switch {
	case key != "" && dsn == "":
		return tenant.SharedPartition(key), nil
	case dsn != "" && key == "":
		return tenant.DedicatedPartition(dsn), nil
	}
	return tenant.Partition{}, errPartitionFlags
}

// provision prepares the catalog in the tenant's partition. Inactive tenants
// are provisioned too, so they are ready once activated.
func provision(ctx context.Context, a *admin, t *tenant.Tenant) error {
	h, err := a.conns.Partition(ctx, t)
	if err != nil {
		return err
	}
	defer h.Release()
	return catalog.Provision(ctx, h)
}

func newCreateCommand(get func() *admin) *cobra.Command {
	var (
		slug, name, key, dsn  string
		inactive, noProvision bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a tenant and provision its partition",
		Example: `  tenantctl create --slug company-a --name "Company A" --key company_a
  tenantctl create --slug company-b --name "Company B" --dsn postgres://db-b/catalog`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := partitionFromFlags(key, dsn)
			if err != nil {
				return err
			}
			if slug == "" {
				if slug = tenant.SlugFromName(name); slug == "" {
					return errSlugRequired
				}
			}
			a := get()
			t, err := a.dir.CreateTenant(cmd.Context(), tenant.CreateParams{
				Slug: slug, Name: name, Partition: p, Inactive: inactive,
			})
			if err != nil {
				return err
			}
			if !noProvision {
				if err := provision(cmd.Context(), a, t); err != nil {
					return fmt.Errorf("tenant %s created but provisioning failed: %w", t.Slug, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s, %s)\n", t.Slug, t.ID, t.Partition.Strategy)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&slug, "slug", "", "tenant slug, a lowercase DNS label (derived from --name when omitted)")
	f.StringVar(&name, "name", "", "display name")
	f.StringVar(&key, "key", "", "schema in the shared store (shared strategy)")
	f.StringVar(&dsn, "dsn", "", "connection URL of a dedicated store (dedicated strategy)")
	f.BoolVar(&inactive, "inactive", false, "register without admitting traffic")
	f.BoolVar(&noProvision, "no-provision", false, "skip creating the catalog schema")
	cmd.MarkFlagsMutuallyExclusive("key", "dsn")
	return cmd
}

type statusFunc func(*tenant.Directory, context.Context, uuid.UUID) (*tenant.Tenant, error)

func newStatusCommand(get func() *admin, use, short string, apply statusFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <slug>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			t, err := a.dir.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t, err = apply(a.dir, cmd.Context(), t.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s active=%t\n", t.Slug, t.Active)
			return nil
		},
	}
}

func newUpdateConnCommand(get func() *admin) *cobra.Command {
	var key, dsn string

	cmd := &cobra.Command{
		Use:   "update-conn <slug>",
		Short: "Change where a tenant's data lives within its strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := partitionFromFlags(key, dsn)
			if err != nil {
				return err
			}
			a := get()
			t, err := a.dir.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t, err = a.dir.UpdateConnectionInfo(cmd.Context(), t.ID, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s)\n", t.Slug, t.Partition.Strategy)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "new schema in the shared store")
	cmd.Flags().StringVar(&dsn, "dsn", "", "new dedicated store URL")
	cmd.MarkFlagsMutuallyExclusive("key", "dsn")
	return cmd
}

func newRenameCommand(get func() *admin) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <slug> <new-slug>",
		Short: "Change a tenant's slug",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			t, err := a.dir.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t, err = a.dir.RenameTenant(cmd.Context(), t.ID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %s\n", args[0], t.Slug)
			return nil
		},
	}
}

func newProvisionCommand(get func() *admin) *cobra.Command {
	return &cobra.Command{
		Use:   "provision <slug>",
		Short: "Create the catalog schema in a tenant's partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			t, err := a.dir.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := provision(cmd.Context(), a, t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "provisioned %s\n", t.Slug)
			return nil
		},
	}
}

func newListCommand(get func() *admin) *cobra.Command {
	var asJSON, showDSN bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenants, err := get().dir.ListTenants(cmd.Context())
			if err != nil {
				return err
			}
			if !showDSN {
				for _, t := range tenants {
					t.Partition = t.Partition.Redacted()
				}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tenants)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tID\tSTRATEGY\tACTIVE\tCREATED")
			for _, t := range tenants {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
					t.Slug, t.ID, t.Partition.Strategy, t.Active, t.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&showDSN, "show-dsn", false, "print connection descriptors with credentials")
	return cmd
}
