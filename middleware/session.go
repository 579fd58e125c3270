package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nijaru/yt-recap/session"
)

// maxCookieChunks caps how many "<name>.N" chunk cookies are joined.
const maxCookieChunks = 10

// Session copies the caller's access token from the named cookie into the
// request context. Requests without the cookie pass through unchanged.
func Session(cookieName string) func(http.Handler) http.Handler {
	if cookieName == "" {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := accessToken(r, cookieName); token != "" {
				r = r.WithContext(session.WithAccessToken(r.Context(), token))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accessToken reads the cookie value, joining chunked cookies, and extracts
// the token. The value may be a bare token, a JSON session object, or that
// object base64 encoded behind a "base64-" prefix.
func accessToken(r *http.Request, name string) string {
	value := cookieValue(r, name)
	if value == "" {
		return ""
	}

	if unescaped, err := url.QueryUnescape(value); err == nil {
		value = unescaped
	}

	if encoded, ok := strings.CutPrefix(value, "base64-"); ok {
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return ""
		}
		value = string(decoded)
	}

	if strings.HasPrefix(value, "{") {
		var s struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal([]byte(value), &s); err != nil {
			return ""
		}
		return s.AccessToken
	}

	return value
}

func cookieValue(r *http.Request, name string) string {
	if c, err := r.Cookie(name); err == nil {
		return c.Value
	}

	var b strings.Builder
	for i := 0; i < maxCookieChunks; i++ {
		c, err := r.Cookie(name + "." + strconv.Itoa(i))
		if err != nil {
			break
		}
		b.WriteString(c.Value)
	}
	return b.String()
}
