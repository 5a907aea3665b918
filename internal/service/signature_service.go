package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

const signaturePrefix = "sha256="

// HMACSignatureService implements ports.SignatureService for payment provider
// webhooks (HMAC-SHA256, lowercase hex).
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign returns the hex HMAC-SHA256 of payload.
func (s *HMACSignatureService) Sign(secretKey string, payload string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time. A "sha256=" prefix on signature is accepted.
func (s *HMACSignatureService) Verify(secretKey string, payload string, signature string) bool {
	signature = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(signature), signaturePrefix))
	return hmac.Equal([]byte(s.Sign(secretKey, payload)), []byte(signature))
}

// BuildCanonicalString returns METHOD|PATH|TIMESTAMP|BODY.
func (s *HMACSignatureService) BuildCanonicalString(method, path string, timestamp int64, body string) string {
	var b strings.Builder
	b.Grow(len(method) + len(path) + len(body) + 24)
	b.WriteString(strings.ToUpper(method))
	b.WriteByte('|')
	b.WriteString(path)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteByte('|')
	b.WriteString(body)
	return b.String()
}
