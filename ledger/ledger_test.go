package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/require"

	"pi-gateway/apperr"
	"pi-gateway/ledger"
)

type fakeHorizon struct {
	account    hProtocol.Account
	accountErr error

	feeStats    hProtocol.FeeStats
	feeStatsErr error

	submitted *txnbuild.Transaction
	result    hProtocol.Transaction
	submitErr error
}

func (f *fakeHorizon) AccountDetail(request horizonclient.AccountRequest) (hProtocol.Account, error) {
	return f.account, f.accountErr
}

func (f *fakeHorizon) FeeStats() (hProtocol.FeeStats, error) {
	return f.feeStats, f.feeStatsErr
}

func (f *fakeHorizon) SubmitTransaction(tx *txnbuild.Transaction) (hProtocol.Transaction, error) {
	f.submitted = tx
	return f.result, f.submitErr
}

func newFakeHorizon(signer *keypair.Full) *fakeHorizon {
	return &fakeHorizon{
		account:  hProtocol.Account{AccountID: signer.Address(), Sequence: 41},
		feeStats: hProtocol.FeeStats{LastLedgerBaseFee: 200},
		result:   hProtocol.Transaction{Hash: "deadbeef"},
	}
}

func params(dest string) ledger.PaymentParams {
	return ledger.PaymentParams{Destination: dest, Amount: "2.5000000", Memo: "P1"}
}

func TestSubmitPaymentBuildsSignedSingleOperationTx(t *testing.T) {
	signer := keypair.MustRandom()
	dest := keypair.MustRandom().Address()
	api := newFakeHorizon(signer)
	c := ledger.NewWithAPI(api, ledger.PassphraseTestnet)

	hash, err := c.SubmitPayment(context.Background(), signer, params(dest))
	require.NoError(t, err)
	require.Equal(t, "deadbeef", hash)

	tx := api.submitted
	require.NotNil(t, tx)
	require.Equal(t, txnbuild.MemoText("P1"), tx.Memo())
	require.Len(t, tx.Operations(), 1)
	require.Len(t, tx.Signatures(), 1)
	require.Equal(t, int64(200), tx.BaseFee())

	op, ok := tx.Operations()[0].(*txnbuild.Payment)
	require.True(t, ok)
	require.Equal(t, dest, op.Destination)
	require.Equal(t, "2.5000000", op.Amount)
	require.Equal(t, txnbuild.NativeAsset{}, op.Asset)

	// Bounded validity window.
	require.Greater(t, tx.Timebounds().MaxTime, int64(0))
}

func TestSubmitPaymentFallsBackToMinBaseFee(t *testing.T) {
	signer := keypair.MustRandom()
	api := newFakeHorizon(signer)
	api.feeStatsErr = errors.New("fee stats unavailable")
	c := ledger.NewWithAPI(api, ledger.PassphraseTestnet)

	_, err := c.SubmitPayment(context.Background(), signer, params(keypair.MustRandom().Address()))
	require.NoError(t, err)
	require.Equal(t, int64(txnbuild.MinBaseFee), api.submitted.BaseFee())
}

func TestSubmitPaymentFailsWhenAccountLoadFails(t *testing.T) {
	signer := keypair.MustRandom()
	api := newFakeHorizon(signer)
	api.accountErr = errors.New("account not found")
	c := ledger.NewWithAPI(api, ledger.PassphraseTestnet)

	_, err := c.SubmitPayment(context.Background(), signer, params(keypair.MustRandom().Address()))
	require.True(t, apperr.IsKind(err, apperr.SettlementError))
}

func TestSubmitPaymentFailsOnLedgerRejection(t *testing.T) {
	signer := keypair.MustRandom()
	api := newFakeHorizon(signer)
	api.submitErr = errors.New("tx_bad_seq")
	c := ledger.NewWithAPI(api, ledger.PassphraseTestnet)

	_, err := c.SubmitPayment(context.Background(), signer, params(keypair.MustRandom().Address()))
	require.True(t, apperr.IsKind(err, apperr.SettlementError))
}

func TestSubmitPaymentFailsOnMissingHash(t *testing.T) {
	signer := keypair.MustRandom()
	api := newFakeHorizon(signer)
	api.result = hProtocol.Transaction{}
	c := ledger.NewWithAPI(api, ledger.PassphraseTestnet)

	_, err := c.SubmitPayment(context.Background(), signer, params(keypair.MustRandom().Address()))
	require.True(t, apperr.IsKind(err, apperr.SettlementError))
}
