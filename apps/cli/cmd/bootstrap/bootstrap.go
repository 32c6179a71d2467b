package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	accountsrepo "github.com/sciencegate/registration-portal/domains/accounts/be/repo"
	accountsservice "github.com/sciencegate/registration-portal/domains/accounts/be/service"
	"github.com/sciencegate/registration-portal/platform/go/persistence"
)

// Notes/constraints:
// - `bootstrap schema` applies the embedded DDL and is idempotent.
// - `bootstrap admin` assumes the schema exists; it performs a
//   check-or-create on the admin account by email.

// Command groups bootstrap helpers (schema DDL, initial admin account).
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap portal resources (schema, admin account)",
		Long:  "Bootstrap portal resources such as the database schema and the initial admin account.",
	}

	cmd.AddCommand(schemaCommand())
	cmd.AddCommand(adminCommand())
	return cmd
}

func schemaCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "schema",
		Short: "Apply the embedded database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			if err := persistence.BootstrapSchema(ctx, pool); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied.")
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	_ = c.MarkFlagRequired("database-url")

	return c
}

func adminCommand() *cobra.Command {
	var (
		databaseURL string
		jwtSecret   string
		email       string
		password    string
	)

	c := &cobra.Command{
		Use:   "admin",
		Short: "Create the initial admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()

			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("admin email is required")
			}

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			accountStore, err := persistence.NewAccountStore(pool)
			if err != nil {
				return fmt.Errorf("init account store: %w", err)
			}

			repo := accountsrepo.NewPostgresRepository(accountStore)
			svc := accountsservice.New(repo, []byte(jwtSecret), 0, nil)

			account, err := svc.CreateAdmin(ctx, accountsservice.CreateAdminInput{
				Email:    email,
				Password: password,
			})
			if err != nil {
				if errors.Is(err, accountsservice.ErrConflict) {
					existing, getErr := repo.GetByEmail(ctx, email)
					if getErr != nil {
						return fmt.Errorf("lookup existing admin: %w", getErr)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Admin account already exists: %s (%s)\n", existing.Email, existing.AccountID)
					return nil
				}
				return fmt.Errorf("create admin account: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Admin account created: %s (%s)\n", account.Email, account.ID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().StringVar(&jwtSecret, "jwt-secret", "cli-unused", "JWT secret (unused by this command; required by the service)")
	c.Flags().StringVar(&email, "email", "", "Admin account email")
	c.Flags().StringVar(&password, "password", "", "Admin account password")

	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")

	return c
}
