//go:build !integration

package payout

import "testing"

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event_type":"payment.status_changed","payment_id":"p1","status":"paid"}`)
	sig := Sign("whsec", payload)

	tests := []struct {
		name   string
		secret string
		body   []byte
		sig    string
		want   bool
	}{
		{"valid", "whsec", payload, sig, true},
		{"valid with prefix", "whsec", payload, SignaturePrefix + sig, true},
		{"upper case hex", "whsec", payload, toUpper(sig), true},
		{"wrong secret", "other", payload, sig, false},
		{"tampered body", "whsec", []byte(string(payload) + " "), sig, false},
		{"not hex", "whsec", payload, "zzzz", false},
		{"empty signature", "whsec", payload, "", false},
		{"empty secret", "", payload, Sign("", payload), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(tt.secret, tt.body, tt.sig); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
