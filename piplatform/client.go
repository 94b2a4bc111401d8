// Package piplatform is the REST client for the Pi Network payment platform.
// Every response, success or failure, passes through the normalizer so the
// rest of the service sees one uniform shape.
package piplatform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"pi-gateway/apperr"
	"pi-gateway/models"
	"pi-gateway/monitoring"
)

// Client talks to the platform API, keyed by the server-held API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New builds a platform client with an instrumented HTTP transport.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
	}
}

// Me verifies a user's access token against the platform identity endpoint.
func (c *Client) Me(ctx context.Context, accessToken string) (*models.User, error) {
	body, err := c.do(ctx, http.MethodGet, "/v2/me", "Bearer "+accessToken, nil, "identity verification failed")
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, apperr.Newf(apperr.UpstreamError, "identity response was not parseable: %v", err)
	}
	return &user, nil
}

// AdStatus looks up a rewarded-ad completion by ad id.
func (c *Client) AdStatus(ctx context.Context, adID string) (*models.AdStatus, error) {
	path := "/v2/ads_network/status/" + adID
	body, err := c.do(ctx, http.MethodGet, path, c.keyAuth(), nil, "ad status lookup failed")
	if err != nil {
		return nil, err
	}
	var status models.AdStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, apperr.Newf(apperr.UpstreamError, "ad status response was not parseable: %v", err)
	}
	return &status, nil
}

// IncompletePayments lists the app's incomplete A2U payments.
func (c *Client) IncompletePayments(ctx context.Context) ([]models.PaymentRecord, error) {
	body, err := c.do(ctx, http.MethodGet, "/v2/payments/incomplete_server_payments", c.keyAuth(), nil, "incomplete payment lookup failed")
	if err != nil {
		return nil, err
	}
	var listing struct {
		IncompleteServerPayments []models.PaymentRecord `json:"incomplete_server_payments"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, apperr.Newf(apperr.UpstreamError, "incomplete payment listing was not parseable: %v", err)
	}
	return listing.IncompleteServerPayments, nil
}

// CreatePayment asks the platform to open a new A2U payment.
func (c *Client) CreatePayment(ctx context.Context, args *models.A2UPaymentArgs) (*models.PaymentRecord, error) {
	payload := map[string]any{"payment": args}
	body, err := c.do(ctx, http.MethodPost, "/v2/payments", c.keyAuth(), payload, "payment creation failed")
	if err != nil {
		return nil, err
	}
	return decodePayment(body)
}

// GetPayment fetches the platform's current record of a payment.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	path := "/v2/payments/" + paymentID
	body, err := c.do(ctx, http.MethodGet, path, c.keyAuth(), nil, "payment lookup failed")
	if err != nil {
		return nil, err
	}
	return decodePayment(body)
}

// ApprovePayment reports server-side approval of a payment.
func (c *Client) ApprovePayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	path := "/v2/payments/" + paymentID + "/approve"
	body, err := c.do(ctx, http.MethodPost, path, c.keyAuth(), nil, "payment approval failed")
	if err != nil {
		return nil, err
	}
	return decodePayment(body)
}

// CompletePayment reports completion. A non-empty txid is sent as the body;
// user-to-app completions carry no body because the platform already knows
// the settling transaction.
func (c *Client) CompletePayment(ctx context.Context, paymentID, txid string) (*models.PaymentRecord, error) {
	path := "/v2/payments/" + paymentID + "/complete"
	var payload any
	if txid != "" {
		payload = map[string]string{"txid": txid}
	}
	body, err := c.do(ctx, http.MethodPost, path, c.keyAuth(), payload, "payment completion failed")
	if err != nil {
		return nil, err
	}
	return decodePayment(body)
}

// CancelPayment cancels a payment.
func (c *Client) CancelPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	path := "/v2/payments/" + paymentID + "/cancel"
	body, err := c.do(ctx, http.MethodPost, path, c.keyAuth(), nil, "payment cancellation failed")
	if err != nil {
		return nil, err
	}
	return decodePayment(body)
}

func (c *Client) keyAuth() string {
	return "Key " + c.apiKey
}

// do performs one platform round trip. Non-2xx responses become UpstreamError
// with the normalized message, the HTTP status, and the parsed body.
func (c *Client) do(ctx context.Context, method, path, authorization string, payload any, fallback string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, apperr.Newf(apperr.Internal, "failed to encode request body: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, apperr.Newf(apperr.Internal, "failed to build request: %v", err)
	}
	req.Header.Set("Authorization", authorization)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		recordCall(ctx, path, duration, "error")
		return nil, apperr.Upstream(fmt.Sprintf("%s: %v", fallback, err), 0, nil)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		recordCall(ctx, path, duration, "error")
		return nil, apperr.Upstream(fmt.Sprintf("%s: unreadable response", fallback), resp.StatusCode, nil)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		recordCall(ctx, path, duration, "failed")
		parsed := ParseBody(raw)
		return nil, apperr.Upstream(ExtractError(parsed, fallback), resp.StatusCode, parsed)
	}

	recordCall(ctx, path, duration, "success")
	return raw, nil
}

func decodePayment(body []byte) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, apperr.Newf(apperr.UpstreamError, "payment record was not parseable: %v", err)
	}
	return &record, nil
}

func recordCall(ctx context.Context, path string, duration float64, status string) {
	if monitoring.UpstreamCallDuration == nil {
		return
	}
	monitoring.UpstreamCallDuration.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("endpoint", path),
			attribute.String("status", status),
		),
	)
}
