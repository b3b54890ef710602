package auth

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	accessCookieSuffix = ":at"
	userCookieSuffix   = ":ut"
)

// AccessCookieName is "<host>:at", the cookie carrying the access token.
func AccessCookieName(host string) string { return host + accessCookieSuffix }

// UserCookieName is "<host>:ut", the cookie carrying the user (refresh) token.
func UserCookieName(host string) string { return host + userCookieSuffix }

// CookieHost returns the configured cookie host, or the request host without its port.
func CookieHost(r *http.Request, configured string) string {
	if configured != "" {
		return configured
	}
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

// ExtractToken finds a token in a raw Cookie header.
// Pairs are split on ';' then on the first '='; names and values are
// percent-decoded, leaving '+' intact (values that fail to decode are used as-is). Candidates are tried in order and the
// first one present with a non-empty value wins. For duplicate names the first
// occurrence is used.
func ExtractToken(cookieHeader string, candidates ...string) string {
	if cookieHeader == "" || len(candidates) == 0 {
		return ""
	}

	values := make(map[string]string)
	for _, part := range strings.Split(cookieHeader, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = decode(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, seen := values[name]; seen {
			continue
		}
		values[name] = decode(strings.Trim(strings.TrimSpace(value), `"`))
	}

	for _, c := range candidates {
		if v := values[c]; v != "" {
			return v
		}
	}
	return ""
}

func decode(s string) string {
	if d, err := url.PathUnescape(s); err == nil {
		return d
	}
	return s
}

// BearerToken extracts the token from an "Authorization: Bearer <t>" header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// AccessTokenCandidates lists the cookie names accepted for the access token, in precedence order.
func AccessTokenCandidates(host string) []string {
	return []string{AccessCookieName(host), "at", "access_token"}
}

// RequestToken resolves the access token of r: bearer header first, then cookies.
func RequestToken(r *http.Request, cookieHost string) string {
	if t := BearerToken(r.Header.Get("Authorization")); t != "" {
		return t
	}
	host := CookieHost(r, cookieHost)
	return ExtractToken(r.Header.Get("Cookie"), AccessTokenCandidates(host)...)
}

// SetSessionCookie writes a Set-Cookie header. net/http refuses cookie names that
// contain ':' so the header is built by hand.
func SetSessionCookie(w http.ResponseWriter, name, value string, maxAge int, secure bool) {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(url.PathEscape(value))
	b.WriteString("; Path=/; HttpOnly; SameSite=Lax")
	if maxAge < 0 {
		b.WriteString("; Max-Age=0")
	} else if maxAge > 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(maxAge))
	}
	if secure {
		b.WriteString("; Secure")
	}
	w.Header().Add("Set-Cookie", b.String())
}
