package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must not equal the password")
	}
	if !CheckPassword(hash, "s3cret-pass") {
		t.Error("CheckPassword() rejected the right password")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("CheckPassword() accepted a wrong password")
	}
	if CheckPassword("not-a-hash", "s3cret-pass") {
		t.Error("CheckPassword() accepted a malformed hash")
	}
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, expiresAt, err := issuer.Issue("user-1", "learner@example.com", "session-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(expiresAt) < 59*time.Minute {
		t.Errorf("expiresAt = %v, want about an hour from now", expiresAt)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != "user-1" || claims.ID != "session-1" || claims.Email != "learner@example.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenIssuerRejects(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	token, _, err := issuer.Issue("user-1", "a@example.com", "session-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	expired := NewTokenIssuer("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	oldToken, _, err := expired.Issue("user-1", "a@example.com", "session-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name   string
		issuer *TokenIssuer
		token  string
	}{
		{name: "garbage", issuer: issuer, token: "not.a.token"},
		{name: "wrong secret", issuer: NewTokenIssuer("other-secret", time.Hour), token: token},
		{name: "expired", issuer: issuer, token: oldToken},
		{name: "empty", issuer: issuer, token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.issuer.Parse(tt.token); err != ErrInvalidToken {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestCSRFGenerator(t *testing.T) {
	g := NewCSRFGenerator("csrf-secret")

	token, err := g.GenerateToken("access-1")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !g.ValidateToken("access-1", token) {
		t.Error("ValidateToken() rejected its own token")
	}
	if g.ValidateToken("access-2", token) {
		t.Error("ValidateToken() accepted a token for another session")
	}
	if g.ValidateToken("access-1", "") {
		t.Error("ValidateToken() accepted an empty token")
	}
	if _, err := g.GenerateToken(""); err == nil {
		t.Error("GenerateToken(\"\") should fail")
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("third request in the window should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other clients have their own bucket")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Error("bucket should refill after the window")
	}

	now = now.Add(3 * time.Minute)
	if n := rl.Sweep(); n != 2 {
		t.Errorf("Sweep() = %d, want 2", n)
	}
	if rl.Len() != 0 {
		t.Errorf("Len() = %d after sweep", rl.Len())
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 172.16.0.1"}, remote: "127.0.0.1:9999", want: "10.0.0.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "10.0.0.2"}, remote: "127.0.0.1:9999", want: "10.0.0.2"},
		{name: "remote addr", remote: "192.168.1.5:41000", want: "192.168.1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
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

func TestAccessToken(t *testing.T) {
	bearer := httptest.NewRequest(http.MethodGet, "/", nil)
	bearer.Header.Set("Authorization", "Bearer abc.def")
	bearer.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	if got := AccessToken(bearer); got != "abc.def" {
		t.Errorf("bearer token = %q", got)
	}

	cookie := httptest.NewRequest(http.MethodGet, "/", nil)
	cookie.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	if got := AccessToken(cookie); got != "cookie-token" {
		t.Errorf("cookie token = %q", got)
	}

	if got := AccessToken(httptest.NewRequest(http.MethodGet, "/", nil)); got != "" {
		t.Errorf("anonymous token = %q", got)
	}
}

func TestSessionCookies(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-Proto", "https")

	c := CreateSessionCookie(r, "tok", time.Now().Add(time.Hour))
	if !c.Secure || !c.HttpOnly || c.Name != SessionCookieName || c.Value != "tok" {
		t.Errorf("session cookie = %+v", c)
	}

	d := CreateDeleteCookie(httptest.NewRequest(http.MethodGet, "/", nil))
	if d.MaxAge != -1 || d.Secure {
		t.Errorf("delete cookie = %+v", d)
	}
}
