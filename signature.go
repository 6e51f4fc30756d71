package userservice

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"
)

// DefaultSignatureTolerance bounds how far a gateway timestamp may drift from
// the local clock, in either direction.
const DefaultSignatureTolerance = 5 * time.Minute

// SignatureVerifier checks the HMAC the gateway stamps on trusted identity
// headers. The secret is shared out of band with the gateway.
type SignatureVerifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

// SignatureOption configures a SignatureVerifier.
type SignatureOption func(*SignatureVerifier)

// WithSignatureTolerance overrides the freshness window.
func WithSignatureTolerance(tolerance time.Duration) SignatureOption {
	return func(v *SignatureVerifier) {
		if tolerance > 0 {
			v.tolerance = tolerance
		}
	}
}

// WithSignatureClock overrides the clock, mainly for tests.
func WithSignatureClock(now func() time.Time) SignatureOption {
	return func(v *SignatureVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewSignatureVerifier creates a verifier bound to the shared gateway secret.
func NewSignatureVerifier(secret string, opts ...SignatureOption) *SignatureVerifier {
	v := &SignatureVerifier{
		secret:    secret,
		tolerance: DefaultSignatureTolerance,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Sign computes the Base64 HMAC-SHA256 over the canonical identity string
// "userID|email|role|timestampMillis". An empty role signs as USER, matching
// the gateway's default.
func (v *SignatureVerifier) Sign(userID, email, role string, timestampMillis int64) string {
	if role == "" {
		role = RoleUser
	}
	mac := hmac.New(sha256.New, []byte(v.secret))
	fmt.Fprintf(mac, "%s|%s|%s|%d", userID, email, role, timestampMillis)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks freshness and the signature. A verifier with no secret
// rejects everything.
func (v *SignatureVerifier) Verify(userID, email, role string, timestampMillis int64, signature string) bool {
	if v.secret == "" || signature == "" {
		return false
	}

	drift := v.now().UnixMilli() - timestampMillis
	if drift < 0 {
		drift = -drift
	}
	if drift > v.tolerance.Milliseconds() {
		return false
	}

	return constantTimeEquals(v.Sign(userID, email, role, timestampMillis), signature)
}

// constantTimeEquals compares without early exit.
func constantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
