// Package ledger talks to a Horizon endpoint of the Pi blockchain. It builds,
// signs, and submits single-operation native payments and reports the settled
// transaction hash.
package ledger

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"pi-gateway/apperr"
	"pi-gateway/logging"
)

// Network passphrases for the two fixed Pi ledgers.
const (
	PassphraseMainnet = "Pi Network"
	PassphraseTestnet = "Pi Testnet"
)

// txTimeout bounds the validity window of every submitted transaction.
const txTimeout = 300

// HorizonAPI is the slice of the Horizon client this package needs.
// *horizonclient.Client satisfies it.
type HorizonAPI interface {
	AccountDetail(request horizonclient.AccountRequest) (hProtocol.Account, error)
	FeeStats() (hProtocol.FeeStats, error)
	SubmitTransaction(tx *txnbuild.Transaction) (hProtocol.Transaction, error)
}

// PaymentParams describes one native-asset payment. Amount must already be
// rendered as a fixed 7-decimal string; Memo becomes the transaction's text
// memo and must fit in 28 bytes.
type PaymentParams struct {
	Destination string
	Amount      string
	Memo        string
}

// Client submits payments against one fixed Horizon endpoint and network
// passphrase.
type Client struct {
	api        HorizonAPI
	passphrase string
}

// New builds a Client for the given Horizon URL, instrumenting outbound HTTP.
func New(horizonURL, networkPassphrase string) *Client {
	return &Client{
		api: &horizonclient.Client{
			HorizonURL: horizonURL,
			HTTP: &http.Client{
				Transport: otelhttp.NewTransport(http.DefaultTransport),
				Timeout:   30 * time.Second,
			},
		},
		passphrase: networkPassphrase,
	}
}

// NewWithAPI builds a Client over an existing Horizon API, used by tests.
func NewWithAPI(api HorizonAPI, networkPassphrase string) *Client {
	return &Client{api: api, passphrase: networkPassphrase}
}

// BaseFee returns the last ledger's base fee, falling back to the protocol
// minimum when fee stats are unavailable.
func (c *Client) BaseFee() int64 {
	stats, err := c.api.FeeStats()
	if err != nil || stats.LastLedgerBaseFee <= 0 {
		return txnbuild.MinBaseFee
	}
	return stats.LastLedgerBaseFee
}

// SubmitPayment loads the signer's account, builds a one-operation payment
// with a text memo and a bounded validity window, signs it, and submits it.
// Returns the settled transaction hash.
func (c *Client) SubmitPayment(ctx context.Context, signer *keypair.Full, p PaymentParams) (string, error) {
	account, err := c.api.AccountDetail(horizonclient.AccountRequest{AccountID: signer.Address()})
	if err != nil {
		return "", apperr.Newf(apperr.SettlementError, "failed to load source account: %s", horizonMessage(err))
	}

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &account,
		IncrementSequenceNum: true,
		BaseFee:              c.BaseFee(),
		Memo:                 txnbuild.MemoText(p.Memo),
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(txTimeout),
		},
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: p.Destination,
				Amount:      p.Amount,
				Asset:       txnbuild.NativeAsset{},
			},
		},
	})
	if err != nil {
		return "", apperr.Newf(apperr.SettlementError, "failed to build transaction: %v", err)
	}

	tx, err = tx.Sign(c.passphrase, signer)
	if err != nil {
		return "", apperr.Newf(apperr.SettlementError, "failed to sign transaction: %v", err)
	}

	resp, err := c.api.SubmitTransaction(tx)
	if err != nil {
		return "", apperr.Newf(apperr.SettlementError, "ledger rejected transaction: %s", horizonMessage(err))
	}
	if resp.Hash == "" {
		return "", apperr.New(apperr.SettlementError, "ledger response carried no transaction hash")
	}

	logging.Info("ledger payment settled",
		zap.String("hash", resp.Hash),
		zap.String("memo", p.Memo),
		zap.String("destination", p.Destination),
	)
	return resp.Hash, nil
}

// horizonMessage extracts the Horizon problem detail, including result codes
// when present, since the bare error string is rarely actionable.
func horizonMessage(err error) string {
	hErr := horizonclient.GetError(err)
	if hErr == nil {
		return err.Error()
	}
	msg := hErr.Problem.Title
	if hErr.Problem.Detail != "" {
		msg = hErr.Problem.Detail
	}
	if codes, cErr := hErr.ResultCodes(); cErr == nil && codes != nil {
		msg = fmt.Sprintf("%s (tx: %s, ops: %v)", msg, codes.TransactionCode, codes.OperationCodes)
	}
	return msg
}
