// Package wallet wraps the A2U settlement keypair. The secret seed lives only
// inside the parsed keypair; nothing here ever prints or serializes it.
package wallet

import (
	"github.com/stellar/go/keypair"

	"pi-gateway/apperr"
)

// Signer is the settlement wallet's signing identity.
type Signer struct {
	kp *keypair.Full
}

// ParseSecret parses a Stellar-format secret seed into a Signer.
func ParseSecret(secret string) (*Signer, error) {
	if secret == "" {
		return nil, apperr.New(apperr.ConfigError, "A2U wallet secret is not configured")
	}
	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return nil, apperr.New(apperr.ConfigError, "A2U wallet secret is not a valid secret seed")
	}
	return &Signer{kp: kp}, nil
}

// Address returns the public address derived from the secret seed.
func (s *Signer) Address() string {
	return s.kp.Address()
}

// Keypair exposes the full keypair for transaction signing.
func (s *Signer) Keypair() *keypair.Full {
	return s.kp
}
