package security

import (
	"bytes"
	"crypto/tls"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testKeys(t *testing.T) Keys {
	t.Helper()
	keys, err := DeriveKeys("test-secret")
	if err != nil {
		t.Fatalf("DeriveKeys() error = %v", err)
	}
	return keys
}

func TestDeriveKeys(t *testing.T) {
	keys := testKeys(t)

	if len(keys.Token) != keySize || len(keys.CSRF) != keySize {
		t.Fatalf("unexpected key sizes: %d, %d", len(keys.Token), len(keys.CSRF))
	}
	if bytes.Equal(keys.Token, keys.CSRF) {
		t.Error("token and CSRF keys must differ")
	}

	again := testKeys(t)
	if !bytes.Equal(keys.Token, again.Token) {
		t.Error("key derivation is not deterministic")
	}

	other, _ := DeriveKeys("another-secret")
	if bytes.Equal(keys.Token, other.Token) {
		t.Error("different secrets produced the same key")
	}

	if _, err := DeriveKeys(""); err == nil {
		t.Error("DeriveKeys(\"\") succeeded, want error")
	}
}

func TestTraineeTokenRoundTrip(t *testing.T) {
	tokens := NewTraineeTokens(testKeys(t).Token, time.Hour)
	id := NewTraineeID()

	token, err := tokens.Issue(id)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != id {
		t.Errorf("Verify() = %s, want %s", got, id)
	}
}

func TestTraineeTokenRejections(t *testing.T) {
	keys := testKeys(t)
	tokens := NewTraineeTokens(keys.Token, time.Hour)
	id := NewTraineeID()
	valid, _ := tokens.Issue(id)

	expired := NewTraineeTokens(keys.Token, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _ := expired.Issue(id)

	otherKey, _ := NewTraineeTokens(keys.CSRF, time.Hour).Issue(id)

	noneToken, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   id,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(keys.Token)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "tampered", token: valid[:len(valid)-2] + "xx"},
		{name: "expired", token: expiredToken},
		{name: "wrong key", token: otherKey},
		{name: "unsigned", token: noneToken},
		{name: "subject not a trainee ID", token: badSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Verify(tt.token)
			if !errors.Is(err, ErrInvalidTraineeToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidTraineeToken", err)
			}
		})
	}
}

func TestIssueRejectsNonUUID(t *testing.T) {
	tokens := NewTraineeTokens(testKeys(t).Token, time.Hour)
	if _, err := tokens.Issue("alice"); err == nil {
		t.Error("Issue(\"alice\") succeeded, want error")
	}
}

func TestCSRFGenerator(t *testing.T) {
	gen := NewCSRFGenerator(testKeys(t).CSRF, time.Hour)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	gen.now = func() time.Time { return now }
	id := NewTraineeID()

	token, err := gen.GenerateToken(id)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	issued, mac, _ := strings.Cut(token, ".")

	tests := []struct {
		name      string
		traineeID string
		token     string
		want      bool
	}{
		{name: "valid", traineeID: id, token: token, want: true},
		{name: "other trainee", traineeID: NewTraineeID(), token: token, want: false},
		{name: "empty token", traineeID: id, token: "", want: false},
		{name: "empty trainee", traineeID: "", token: token, want: false},
		{name: "modified token", traineeID: id, token: strings.ToUpper(token), want: false},
		{name: "no timestamp", traineeID: id, token: mac, want: false},
		{name: "moved timestamp", traineeID: id, token: "1709298000." + mac, want: false},
		{name: "garbage timestamp", traineeID: id, token: "soon." + mac, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gen.ValidateToken(tt.traineeID, tt.token); got != tt.want {
				t.Errorf("ValidateToken() = %v, want %v", got, tt.want)
			}
		})
	}

	if issued != "1709294400" {
		t.Errorf("token issued at %s, want 1709294400", issued)
	}

	now = now.Add(59 * time.Minute)
	if !gen.ValidateToken(id, token) {
		t.Error("token rejected before it expired")
	}
	now = now.Add(2 * time.Minute)
	if gen.ValidateToken(id, token) {
		t.Error("token accepted after it expired")
	}

	if _, err := gen.GenerateToken(""); err == nil {
		t.Error("GenerateToken(\"\") succeeded, want error")
	}
}

func TestIsSecureRequest(t *testing.T) {
	plain := httptest.NewRequest("GET", "http://localhost/", nil)
	if IsSecureRequest(plain) {
		t.Error("plain HTTP request reported as secure")
	}

	proxied := httptest.NewRequest("GET", "http://localhost/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https")
	if !IsSecureRequest(proxied) {
		t.Error("X-Forwarded-Proto https not detected")
	}

	direct := httptest.NewRequest("GET", "https://localhost/", nil)
	direct.TLS = &tls.ConnectionState{}
	if !IsSecureRequest(direct) {
		t.Error("TLS request not detected")
	}

	cookie := CreateTraineeCookie(proxied, "trainee", "value", time.Now().Add(time.Hour))
	if !cookie.Secure || !cookie.HttpOnly {
		t.Errorf("cookie flags = %+v", cookie)
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third request in the window should be refused")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("another client has its own allowance")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("10.0.0.1") {
		t.Error("allowance should refill after the window")
	}

	now = now.Add(5 * time.Minute)
	if removed := rl.Prune(); removed != 2 {
		t.Errorf("Prune() removed %d, want 2", removed)
	}

	unlimited := NewRateLimiter(0, time.Minute)
	for i := 0; i < 10; i++ {
		if !unlimited.Allow("10.0.0.1") {
			t.Fatal("a zero rate should not limit")
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote address", remote: "192.0.2.7:5123", want: "192.0.2.7"},
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, remote: "10.0.0.1:80", want: "203.0.113.9"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.4"}, remote: "10.0.0.1:80", want: "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/part/p1/start", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
