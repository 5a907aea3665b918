package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSignatureService_SignAndVerify(t *testing.T) {
	svc := NewHMACSignatureService()
	secret := "provider-secret"
	payload := svc.BuildCanonicalString("POST", "/api/v1/webhooks/payments", 1760000000, `{"event_id":"evt_1"}`)

	sig := svc.Sign(secret, payload)
	assert.Regexp(t, `^[0-9a-f]{64}$`, sig)

	tests := []struct {
		name    string
		secret  string
		payload string
		sig     string
		want    bool
	}{
		{"valid", secret, payload, sig, true},
		{"prefixed", secret, payload, "sha256=" + sig, true},
		{"uppercase hex", secret, payload, strings.ToUpper(sig), true},
		{"wrong key", "other", payload, sig, false},
		{"tampered payload", secret, payload + " ", sig, false},
		{"garbage", secret, payload, "invalidsignature", false},
		{"empty", secret, payload, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.Verify(tt.secret, tt.payload, tt.sig))
		})
	}
}

func TestHMACSignatureService_BuildCanonicalString(t *testing.T) {
	svc := NewHMACSignatureService()

	assert.Equal(t,
		`POST|/api/v1/webhooks/payments|1760000000|{"amount":"50"}`,
		svc.BuildCanonicalString("post", "/api/v1/webhooks/payments", 1760000000, `{"amount":"50"}`))
	assert.Equal(t, "GET|/health|1|", svc.BuildCanonicalString("GET", "/health", 1, ""))
}
