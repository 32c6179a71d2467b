package root

import (
	"github.com/sciencegate/registration-portal/apps/cli/cmd/accounts"
	"github.com/sciencegate/registration-portal/apps/cli/cmd/auth"
	"github.com/sciencegate/registration-portal/apps/cli/cmd/bootstrap"
)

func init() {
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(accounts.Command())
	Root().AddCommand(auth.Command())
}
