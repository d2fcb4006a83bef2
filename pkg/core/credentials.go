package core

import (
	"fmt"
	"math/big"
	"strings"
)

// CurveOrder is the order of the STARK curve subgroup used for request
// signing. Message hashes are reduced modulo this value before signing, and
// private scalars must lie in [1, CurveOrder).
var CurveOrder, _ = new(big.Int).SetString(
	"0800000000000010ffffffffffffffffb781126dcae7b2321e66a241adc64d2f", 16)

// Credentials holds the signing identity for a single exchange account.
// Instances are immutable value objects and safe to share across goroutines.
type Credentials struct {
	// PrivateScalar is the STARK private key as a big integer.
	PrivateScalar *big.Int
	// AccountID identifies the exchange account the key belongs to.
	AccountID string
}

// ParseCredentials builds Credentials from a hex-encoded private key and an
// account id. A leading "0x" prefix on the key is stripped. The parsed scalar
// must be in the valid signing range [1, CurveOrder).
func ParseCredentials(privateKeyHex, accountID string) (*Credentials, error) {
	hexStr := strings.TrimPrefix(privateKeyHex, "0x")
	if hexStr == "" {
		return nil, fmt.Errorf("%w: empty private key", ErrNoCredentials)
	}

	scalar, ok := new(big.Int).SetString(hexStr, 16)
	if !ok {
		return nil, fmt.Errorf("parse private key: invalid hex %q", maskSecret(privateKeyHex))
	}

	if scalar.Sign() <= 0 || scalar.Cmp(CurveOrder) >= 0 {
		return nil, fmt.Errorf("parse private key: scalar out of signing range")
	}

	if accountID == "" {
		return nil, fmt.Errorf("%w: empty account id", ErrNoCredentials)
	}

	return &Credentials{
		PrivateScalar: scalar,
		AccountID:     accountID,
	}, nil
}

// String implements fmt.Stringer without exposing the private scalar.
func (c *Credentials) String() string {
	return fmt.Sprintf("Credentials{AccountID:%s, Key:%s}", c.AccountID, maskSecret(c.PrivateScalar.Text(16)))
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
