package models

import "github.com/shopspring/decimal"

func init() {
	// The platform API expects amounts as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Direction of a payment as reported by the Pi platform.
const (
	DirectionUserToApp = "user_to_app"
	DirectionAppToUser = "app_to_user"
)

// NetworkMainnet is the literal network name that selects the production
// ledger; every other value selects the test ledger.
const NetworkMainnet = "Pi Network"

// ActionRequest is the inbound envelope for the payments endpoint.
type ActionRequest struct {
	Action      string          `json:"action" binding:"required"`
	PaymentID   string          `json:"paymentId"`
	TxID        string          `json:"txid"`
	AccessToken string          `json:"accessToken"`
	AdID        string          `json:"adId"`
	Payment     *A2UPaymentArgs `json:"payment"`
}

// A2UPaymentArgs is the caller-supplied shape for creating an app-to-user
// payout. Metadata is declared as a map so JSON arrays fail binding outright.
type A2UPaymentArgs struct {
	Amount   decimal.Decimal `json:"amount"`
	UID      string          `json:"uid"`
	Memo     string          `json:"memo"`
	Metadata map[string]any  `json:"metadata"`
}

// Caller is the authenticated identity attached to every request except
// auth_verify, resolved by the identity provider before dispatch.
type Caller struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
}

// User is the identity endpoint's view of a Pi user.
type User struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
}

// TransactionRef is the platform's embedded record of a settled ledger
// transaction.
type TransactionRef struct {
	TxID     string `json:"txid"`
	Verified bool   `json:"verified"`
	Link     string `json:"_link"`
}

// PaymentRecord is the platform's view of a payment. The platform is the
// system of record; this service never stores one.
type PaymentRecord struct {
	Identifier  string          `json:"identifier"`
	UserUID     string          `json:"user_uid"`
	Amount      decimal.Decimal `json:"amount"`
	Memo        string          `json:"memo"`
	Metadata    map[string]any  `json:"metadata"`
	FromAddress string          `json:"from_address"`
	ToAddress   string          `json:"to_address"`
	Direction   string          `json:"direction"`
	Network     string          `json:"network"`
	Status      map[string]any  `json:"status,omitempty"`
	Transaction *TransactionRef `json:"transaction,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
}

// SettledTxID returns the embedded ledger transaction id, if any.
func (p *PaymentRecord) SettledTxID() string {
	if p.Transaction == nil {
		return ""
	}
	return p.Transaction.TxID
}

// AdStatus is the ad network's view of a rewarded-ad completion.
type AdStatus struct {
	AdID              string `json:"identifier"`
	MediatorAckStatus string `json:"mediator_ack_status"`
}

// MediatorGrantedLiteral is the only ack status that counts as rewarded.
const MediatorGrantedLiteral = "granted"

// ConfigStatus reports which operational secrets are present, never their
// values.
type ConfigStatus struct {
	PiAPIKey      bool `json:"piApiKey"`
	ValidationKey bool `json:"validationKey"`
	WalletSecret  bool `json:"walletSecret"`
	WalletAddress bool `json:"walletAddress"`
}
