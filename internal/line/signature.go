package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader carries the channel signature on inbound webhook requests.
const SignatureHeader = "X-Line-Signature"

// ValidateSignature checks the webhook signature against the channel secret.
// The HMAC must be computed over the exact raw request bytes; re-serializing
// a parsed body produces mismatches. Returns false for a missing secret,
// missing signature, empty body, or undecodable header.
func ValidateSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" || len(body) == 0 {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), decoded)
}

// Sign produces the signature value the platform would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
