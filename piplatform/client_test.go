package piplatform_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"pi-gateway/apperr"
	"pi-gateway/models"
	"pi-gateway/piplatform"
)

func newA2UArgs(t *testing.T, raw string) *models.A2UPaymentArgs {
	t.Helper()
	var args models.A2UPaymentArgs
	require.NoError(t, json.Unmarshal([]byte(raw), &args))
	return &args
}

func TestCompletePaymentSendsExactTxidBody(t *testing.T) {
	var gotBody string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/payments/P1/complete", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		json.NewEncoder(w).Encode(map[string]any{"identifier": "P1"})
	}))
	defer srv.Close()

	client := piplatform.New(srv.URL, "k-123")
	rec, err := client.CompletePayment(context.Background(), "P1", "H1")
	require.NoError(t, err)
	require.Equal(t, "P1", rec.Identifier)
	require.JSONEq(t, `{"txid":"H1"}`, gotBody)
	require.Equal(t, "Key k-123", gotAuth)
}

func TestCompletePaymentEmptyBodyWithoutTxid(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		json.NewEncoder(w).Encode(map[string]any{"identifier": "P1"})
	}))
	defer srv.Close()

	client := piplatform.New(srv.URL, "k")
	_, err := client.CompletePayment(context.Background(), "P1", "")
	require.NoError(t, err)
	require.Empty(t, gotBody)
}

func TestMeUsesBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/me", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"uid": "u1", "username": "pioneer"})
	}))
	defer srv.Close()

	user, err := piplatform.New(srv.URL, "k").Me(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "u1", user.UID)
	require.Equal(t, "pioneer", user.Username)
}

func TestUpstreamErrorCarriesNormalizedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"message": "token expired"}})
	}))
	defer srv.Close()

	_, err := piplatform.New(srv.URL, "k").Me(context.Background(), "bad")
	require.Error(t, err)
	e := apperr.From(err)
	require.Equal(t, apperr.UpstreamError, e.Kind)
	require.Equal(t, "token expired", e.Message)
	require.Equal(t, http.StatusUnauthorized, e.UpstreamStatus)
	require.NotNil(t, e.Data)
}

func TestUpstreamErrorWrapsUnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "gateway exploded")
	}))
	defer srv.Close()

	_, err := piplatform.New(srv.URL, "k").GetPayment(context.Background(), "P1")
	e := apperr.From(err)
	require.Equal(t, apperr.UpstreamError, e.Kind)
	require.Equal(t, "payment lookup failed", e.Message)
	require.Equal(t, map[string]any{"raw": "gateway exploded"}, e.Data)
}

func TestIncompletePaymentsListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/payments/incomplete_server_payments", r.URL.Path)
		io.WriteString(w, `{"incomplete_server_payments":[{"identifier":"P9","user_uid":"u9","direction":"app_to_user"}]}`)
	}))
	defer srv.Close()

	list, err := piplatform.New(srv.URL, "k").IncompletePayments(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "P9", list[0].Identifier)
	require.Equal(t, "u9", list[0].UserUID)
}

func TestCreatePaymentWrapsArgsUnderPaymentKey(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/payments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"identifier":"P2","user_uid":"u1"}`)
	}))
	defer srv.Close()

	args := newA2UArgs(t, `{"amount":5,"uid":"u1","memo":"payout","metadata":{"note":"x"}}`)
	rec, err := piplatform.New(srv.URL, "k").CreatePayment(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, "P2", rec.Identifier)

	payment, ok := got["payment"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "u1", payment["uid"])
	require.Equal(t, "payout", payment["memo"])
}
