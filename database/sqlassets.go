package sqlassets

import _ "embed"

//go:embed schema/portal/accounts.sql
var AccountsSQL string

//go:embed schema/portal/registrations.sql
var RegistrationsSQL string
