package signature

import (
	"crypto/hmac"
	"errors"
	"time"
)

var (
	ErrSignatureMismatch = errors.New("signature: mismatch")
	ErrTimestampSkew     = errors.New("signature: timestamp outside tolerance")
)

// DefaultTolerance bounds the age of a signed request.
const DefaultTolerance = 5 * time.Minute

// Verify reports whether sig is the signature of payload.
func Verify(payload []byte, secret string, timestamp int64, sig string) bool {
	return hmac.Equal([]byte(Sign(payload, secret, timestamp)), []byte(sig))
}

// Verifier checks signatures and rejects stale timestamps. Receivers use it
// to authenticate deliveries.
type Verifier struct {
	Tolerance time.Duration
	Now       func() time.Time
}

// Check verifies sig and that timestamp is within Tolerance of now.
func (v Verifier) Check(payload []byte, secret string, timestamp int64, sig string) error {
	tol := v.Tolerance
	if tol == 0 {
		tol = DefaultTolerance
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	skew := now().Sub(time.Unix(timestamp, 0))
	if skew < -tol || skew > tol {
		return ErrTimestampSkew
	}
	if !Verify(payload, secret, timestamp, sig) {
		return ErrSignatureMismatch
	}
	return nil
}
