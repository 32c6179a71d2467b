package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	platformauth "github.com/sciencegate/registration-portal/platform/go/auth"
)

func devTokenCommand() *cobra.Command {
	var (
		secret    string
		accountID string
		email     string
		role      string
		expiresIn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Mint a signed session JWT for dev/local use",
		RunE: func(cmd *cobra.Command, args []string) error {
			id := uuid.New()
			if accountID != "" {
				parsed, err := uuid.Parse(accountID)
				if err != nil {
					return fmt.Errorf("invalid account id: %w", err)
				}
				id = parsed
			}

			token, err := platformauth.IssueSessionToken([]byte(secret), id, email, role, expiresIn, time.Now().UTC())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "JWT signing secret (must match the API server)")
	cmd.Flags().StringVar(&accountID, "account-id", "", "subject account UUID (defaults to random)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", "admin", "role claim (admin, visitor_applicant, client_applicant)")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", time.Hour, "token lifetime (e.g. 30m, 2h)")

	_ = cmd.MarkFlagRequired("secret")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
