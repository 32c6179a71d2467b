package notify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderInitiated(t *testing.T) {
	t.Parallel()

	subject, body, err := RenderInitiated(RegistrationInfo{
		Email:    "ada@example.com",
		Name:     "Ada Lovelace",
		Category: "client",
		State:    "initial",
	})
	require.NoError(t, err)
	require.Equal(t, "Registration received", subject)
	require.Contains(t, body, "Dear Ada Lovelace")
	require.Contains(t, body, "client registration")
}

func TestRenderStateChanged(t *testing.T) {
	t.Parallel()

	subject, body, err := RenderStateChanged(RegistrationInfo{
		Email:    "ada@example.com",
		Name:     "Ada Lovelace",
		Category: "visitor",
		State:    "admin_requested_modify",
	})
	require.NoError(t, err)
	require.Contains(t, subject, "admin_requested_modify")
	require.Contains(t, body, "changed to: admin_requested_modify")
}
