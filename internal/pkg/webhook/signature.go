package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignaturePrefix is prepended to the hex digest in the signature header.
const SignaturePrefix = "sha256="

// VerifySignature checks an X-Hub-Signature-256 style header against the
// HMAC-SHA256 of body. Missing or malformed input never verifies.
func VerifySignature(body []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" || secret == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(Sign(body, secret)))
}

// Sign returns the header value a sender would attach to body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
