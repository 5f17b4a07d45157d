package notification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Signature headers attached to signed deliveries.
const (
	HeaderSignature          = "X-Legisflow-Signature"
	HeaderTimestamp          = "X-Legisflow-Timestamp"
	HeaderTimestampSignature = "X-Legisflow-Signature-V2"
)

// Signer signs delivery bodies with a per-endpoint shared secret.
type Signer struct{}

// NewSigner creates a new payload signer.
func NewSigner() *Signer {
	return &Signer{}
}

// Sign returns "sha256=<hex hmac>" for the body.
func (s *Signer) Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign.
func (s *Signer) Verify(body []byte, secret, signature string) bool {
	return hmac.Equal([]byte(s.Sign(body, secret)), []byte(signature))
}

// Headers returns the signature headers for a delivery made at ts. The V2
// signature covers "<unix ts>.<body>" so receivers can reject replays.
func (s *Signer) Headers(body []byte, secret string, ts time.Time) map[string]string {
	unix := strconv.FormatInt(ts.Unix(), 10)
	return map[string]string{
		HeaderSignature:          s.Sign(body, secret),
		HeaderTimestamp:          unix,
		HeaderTimestampSignature: s.Sign(timestamped(unix, body), secret),
	}
}

// VerifyTimestamped checks a V2 signature and that ts is within tolerance of now.
func (s *Signer) VerifyTimestamped(body []byte, secret, signature string, ts int64, now time.Time, tolerance time.Duration) bool {
	skew := now.Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(tolerance.Seconds()) {
		return false
	}
	expected := s.Sign(timestamped(strconv.FormatInt(ts, 10), body), secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func timestamped(unix string, body []byte) []byte {
	out := make([]byte, 0, len(unix)+1+len(body))
	out = append(out, unix...)
	out = append(out, '.')
	return append(out, body...)
}
