package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignatureHeader carries the HMAC of every activity delivery.
const SignatureHeader = "X-Twitter-Webhooks-Signature"

const signaturePrefix = "sha256="

func sign(consumerSecret string, data []byte) []byte {
	mac := hmac.New(sha256.New, []byte(consumerSecret))
	mac.Write(data)
	return mac.Sum(nil)
}

// CRCResponse answers a challenge-response check: the base64 HMAC-SHA256 of
// crcToken keyed with the consumer secret, prefixed with "sha256=".
func CRCResponse(consumerSecret, crcToken string) string {
	return signaturePrefix + base64.StdEncoding.EncodeToString(sign(consumerSecret, []byte(crcToken)))
}

// ValidateSignature reports whether header is the signature of body.
func ValidateSignature(consumerSecret string, body []byte, header string) bool {
	encoded, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	return hmac.Equal(got, sign(consumerSecret, body))
}
