package auth

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		candidates []string
		want       string
	}{
		{"empty header", "", []string{"a"}, ""},
		{"no candidates", "a=1", nil, ""},
		{"single match", "theme=dark; localhost:at=tok123", []string{"localhost:at"}, "tok123"},
		{"candidate order wins", "at=second; localhost:at=first", []string{"localhost:at", "at"}, "first"},
		{"falls through to later candidate", "at=fallback", []string{"localhost:at", "at"}, "fallback"},
		{"url decoded value", "localhost:at=a%2Bb%3D%3D", []string{"localhost:at"}, "a+b=="},
		{"literal plus kept", "localhost:at=a+b/c==", []string{"localhost:at"}, "a+b/c=="},
		{"encoded space", "at=a%20b", []string{"at"}, "a b"},
		{"url encoded name", "localhost%3Aat=tok", []string{"localhost:at"}, "tok"},
		{"undecodable value kept raw", "at=100%zz", []string{"at"}, "100%zz"},
		{"value containing equals", "at=abc==", []string{"at"}, "abc=="},
		{"quoted value", `at="quoted"`, []string{"at"}, "quoted"},
		{"malformed pairs skipped", "junk; ; =x; at=ok", []string{"at"}, "ok"},
		{"empty value ignored", "localhost:at=; at=ok", []string{"localhost:at", "at"}, "ok"},
		{"first duplicate wins", "at=one; at=two", []string{"at"}, "one"},
		{"no match", "foo=bar", []string{"at"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractToken(tt.header, tt.candidates...))
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer "))
	assert.Equal(t, "", BearerToken(""))
}

func TestCookieHost(t *testing.T) {
	r := httptest.NewRequest("GET", "http://app.example.com:8080/x", nil)
	assert.Equal(t, "app.example.com", CookieHost(r, ""))
	assert.Equal(t, "configured", CookieHost(r, "configured"))

	r = httptest.NewRequest("GET", "http://localhost/x", nil)
	assert.Equal(t, "localhost", CookieHost(r, ""))
}

func TestRequestToken_Precedence(t *testing.T) {
	r := httptest.NewRequest("GET", "http://localhost:3000/api/v1/projects", nil)
	r.Header.Set("Cookie", "localhost:at=from-cookie")
	assert.Equal(t, "from-cookie", RequestToken(r, ""))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", RequestToken(r, ""))
}

func TestRequestToken_IgnoresUserCookie(t *testing.T) {
	r := httptest.NewRequest("GET", "http://localhost/api/v1/projects", nil)
	r.Header.Set("Cookie", "localhost:ut=refresh-token")
	assert.Equal(t, "", RequestToken(r, ""))
}

func TestSetSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	SetSessionCookie(w, "localhost:at", "a b+c;d", 60, true)
	SetSessionCookie(w, "localhost:ut", "", -1, false)

	cookies := w.Header().Values("Set-Cookie")
	assert.Equal(t, []string{
		"localhost:at=a%20b+c%3Bd; Path=/; HttpOnly; SameSite=Lax; Max-Age=60; Secure",
		"localhost:ut=; Path=/; HttpOnly; SameSite=Lax; Max-Age=0",
	}, cookies)
}

func TestSetSessionCookie_RoundTrip(t *testing.T) {
	for _, value := range []string{"eyJhbGciOi.payload+sig/x==", "a b;c", "plain"} {
		w := httptest.NewRecorder()
		SetSessionCookie(w, "localhost:at", value, 60, false)
		pair, _, _ := strings.Cut(w.Header().Get("Set-Cookie"), ";")
		assert.Equal(t, value, ExtractToken(pair, "localhost:at"), value)
	}
}

func TestCookieNames(t *testing.T) {
	assert.Equal(t, "example.com:at", AccessCookieName("example.com"))
	assert.Equal(t, "example.com:ut", UserCookieName("example.com"))
}
