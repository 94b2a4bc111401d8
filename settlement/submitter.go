// Package settlement turns an app-to-user payment record into a signed ledger
// transaction. It validates the record against the configured wallet identity
// before anything is signed; a mismatch is a hard stop, never a silent
// correction.
package settlement

import (
	"context"
	"strings"
	"time"

	"github.com/stellar/go/keypair"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"pi-gateway/apperr"
	"pi-gateway/ledger"
	"pi-gateway/logging"
	"pi-gateway/models"
	"pi-gateway/monitoring"
	"pi-gateway/wallet"
)

// LedgerSubmitter is the slice of the ledger client the submitter needs.
type LedgerSubmitter interface {
	SubmitPayment(ctx context.Context, signer *keypair.Full, p ledger.PaymentParams) (string, error)
}

// Submitter settles A2U payments. The network named on each payment picks one
// of the two fixed ledgers; this is a closed two-way choice.
type Submitter struct {
	secret          string
	expectedAddress string
	mainnet         LedgerSubmitter
	testnet         LedgerSubmitter
}

// New builds a Submitter from the configured wallet identity and the two
// ledger clients.
func New(secret, expectedAddress string, mainnet, testnet LedgerSubmitter) *Submitter {
	return &Submitter{
		secret:          secret,
		expectedAddress: expectedAddress,
		mainnet:         mainnet,
		testnet:         testnet,
	}
}

// Configured reports whether a signing secret is present. Callers fail fast
// with ConfigError before fetching anything when it is not.
func (s *Submitter) Configured() bool {
	return s.secret != ""
}

// Settle validates the payment record, signs a settling transaction, and
// submits it. Returns the ledger transaction hash; the caller reports it back
// to the platform's complete call.
func (s *Submitter) Settle(ctx context.Context, rec *models.PaymentRecord) (string, error) {
	if strings.TrimSpace(rec.Identifier) == "" {
		return "", apperr.New(apperr.InvalidArgument, "payment has no identifier")
	}
	if rec.ToAddress == "" {
		return "", apperr.New(apperr.InvalidArgument, "payment has no destination address")
	}
	if rec.FromAddress == "" {
		return "", apperr.New(apperr.InvalidArgument, "payment has no source address")
	}
	if !rec.Amount.IsPositive() {
		return "", apperr.New(apperr.InvalidArgument, "payment amount must be positive")
	}

	signer, err := wallet.ParseSecret(s.secret)
	if err != nil {
		return "", err
	}
	if s.expectedAddress != "" && signer.Address() != s.expectedAddress {
		return "", apperr.New(apperr.ConfigError, "wallet secret does not match configured public address")
	}
	if rec.FromAddress != signer.Address() {
		return "", apperr.New(apperr.ConfigError, "payment source address does not match the settlement wallet")
	}

	client := s.testnet
	network := "testnet"
	if rec.Network == models.NetworkMainnet {
		client = s.mainnet
		network = "mainnet"
	}

	logging.Info("settling A2U payment",
		zap.String("payment_id", rec.Identifier),
		zap.String("network", network),
		zap.String("destination", rec.ToAddress),
	)

	start := time.Now()
	txid, err := client.SubmitPayment(ctx, signer.Keypair(), ledger.PaymentParams{
		Destination: rec.ToAddress,
		Amount:      rec.Amount.StringFixed(7),
		Memo:        rec.Identifier,
	})
	recordSettlement(ctx, network, time.Since(start).Seconds(), err == nil)
	if err != nil {
		return "", err
	}
	return txid, nil
}

func recordSettlement(ctx context.Context, network string, duration float64, ok bool) {
	if monitoring.SettlementDuration == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failed"
	}
	monitoring.SettlementDuration.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("network", network),
			attribute.String("status", status),
		),
	)
}
