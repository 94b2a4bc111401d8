package models_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pi-gateway/apperr"
	"pi-gateway/models"
)

func TestParseActionAliases(t *testing.T) {
	cases := []struct {
		name string
		verb models.Verb
		a2u  bool
	}{
		{"auth_verify", models.VerbAuthVerify, false},
		{"ad_verify", models.VerbAdVerify, false},
		{"a2u_config_status", models.VerbConfigStatus, true},
		{"a2u_create", models.VerbA2UCreate, true},
		{"a2u_incomplete", models.VerbA2UIncomplete, true},
		{"approve", models.VerbApprove, false},
		{"payment_approve", models.VerbApprove, false},
		{"a2u_approve", models.VerbApprove, true},
		{"complete", models.VerbComplete, false},
		{"payment_complete", models.VerbComplete, false},
		{"a2u_complete", models.VerbComplete, true},
		{"cancel", models.VerbCancel, false},
		{"payment_cancel", models.VerbCancel, false},
		{"a2u_cancel", models.VerbCancel, true},
		{"get", models.VerbGet, false},
		{"payment_get", models.VerbGet, false},
		{"a2u_get", models.VerbGet, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, err := models.ParseAction(tc.name)
			require.NoError(t, err)
			require.Equal(t, tc.verb, action.Verb)
			require.Equal(t, tc.a2u, action.A2U)
			require.Equal(t, tc.name, action.Name)
		})
	}
}

func TestParseActionUnknown(t *testing.T) {
	_, err := models.ParseAction("refund")
	require.True(t, apperr.IsKind(err, apperr.InvalidArgument))
}

func TestOnlyAuthVerifySkipsAuth(t *testing.T) {
	for name := range allActions(t) {
		action, err := models.ParseAction(name)
		require.NoError(t, err)
		require.Equal(t, name != "auth_verify", action.RequiresAuth(), name)
	}
}

func TestRequiresPaymentID(t *testing.T) {
	needsID := map[string]bool{
		"approve": true, "payment_approve": true, "a2u_approve": true,
		"complete": true, "payment_complete": true, "a2u_complete": true,
		"cancel": true, "payment_cancel": true, "a2u_cancel": true,
		"get": true, "payment_get": true, "a2u_get": true,
	}
	for name := range allActions(t) {
		action, err := models.ParseAction(name)
		require.NoError(t, err)
		require.Equal(t, needsID[name], action.RequiresPaymentID(), name)
	}
}

func allActions(t *testing.T) map[string]struct{} {
	t.Helper()
	names := []string{
		"auth_verify", "ad_verify", "a2u_config_status", "a2u_create", "a2u_incomplete",
		"approve", "payment_approve", "a2u_approve",
		"complete", "payment_complete", "a2u_complete",
		"cancel", "payment_cancel", "a2u_cancel",
		"get", "payment_get", "a2u_get",
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
