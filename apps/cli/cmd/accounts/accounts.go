package accounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	accountsrepo "github.com/sciencegate/registration-portal/domains/accounts/be/repo"
	"github.com/sciencegate/registration-portal/platform/go/persistence"
)

// Command groups account management helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage portal accounts",
	}

	cmd.AddCommand(setActiveCommand(true))
	cmd.AddCommand(setActiveCommand(false))
	return cmd
}

func setActiveCommand(active bool) *cobra.Command {
	use := "disable"
	short := "Soft-disable an account (login is refused; the record stays)"
	if active {
		use = "enable"
		short = "Re-enable a previously disabled account"
	}

	var (
		databaseURL string
		accountID   string
	)

	c := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()

			id, err := uuid.Parse(accountID)
			if err != nil {
				return fmt.Errorf("invalid account id: %w", err)
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

			account, err := repo.SetActive(ctx, id, active)
			if err != nil {
				return fmt.Errorf("set account active=%t: %w", active, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Account %s (%s) active=%t\n", account.Email, account.AccountID, account.Active)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().StringVar(&accountID, "account-id", "", "Account UUID")

	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("account-id")

	return c
}
