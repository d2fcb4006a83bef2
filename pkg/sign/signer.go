// Package sign produces the deterministic request signatures required by the
// exchange. The STARK curve arithmetic itself is supplied by the embedding
// application through the Signer interface; this package owns message
// canonicalization, hashing, and header formatting.
package sign

import (
	"math/big"
	"time"
)

// Signer performs ECDSA-style signing over the exchange's STARK curve.
// Implementations are trusted external collaborators and must be safe for
// concurrent use.
type Signer interface {
	// Sign produces the (r, s) signature pair for a message hash already
	// reduced into the curve's signing range.
	Sign(msgHash, privateKey *big.Int) (r, s *big.Int, err error)

	// PublicKey derives the public curve point for a private scalar.
	PublicKey(privateKey *big.Int) (x, y *big.Int, err error)
}

// Clock supplies wall-clock readings. Injecting it keeps signature output
// reproducible under test.
type Clock interface {
	Now() time.Time
}

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
