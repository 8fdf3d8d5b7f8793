package session

import (
	"context"
	"net/http"
	"strings"

	"tracker/web/internal/model"
)

const (
	AccessCookie  = "ACCESS_TOKEN"
	RefreshCookie = "REFRESH_TOKEN"
)

type accessKey struct{}

// SetPair writes both credential cookies with the lifetimes the API declared.
func SetPair(w http.ResponseWriter, pair model.TokenPair, production bool) {
	replaceCookie(w, credentialCookie(AccessCookie, pair.AccessToken, pair.ExpiresInAccess, production))
	replaceCookie(w, credentialCookie(RefreshCookie, pair.RefreshToken, pair.ExpiresInRefresh, production))
}

// Clear expires both credential cookies.
func Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		replaceCookie(w, &http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
}

// replaceCookie sets cookie, dropping any Set-Cookie for the same name written
// earlier in this response. The gate may clear credentials before a handler
// sets fresh ones.
func replaceCookie(w http.ResponseWriter, cookie *http.Cookie) {
	header := w.Header()
	prefix := cookie.Name + "="
	var kept []string
	for _, line := range header.Values("Set-Cookie") {
		if !strings.HasPrefix(line, prefix) {
			kept = append(kept, line)
		}
	}
	header.Del("Set-Cookie")
	for _, line := range kept {
		header.Add("Set-Cookie", line)
	}
	http.SetCookie(w, cookie)
}

func credentialCookie(name, value string, maxAge int, production bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   production,
	}
}

// AccessToken returns the access token the gate settled on for r, or "".
func AccessToken(r *http.Request) string {
	if token, ok := r.Context().Value(accessKey{}).(string); ok {
		return token
	}
	return ""
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// withCredentials rewrites r so downstream handlers see exactly the given
// credentials: in the Cookie header, the Authorization header and the context.
func withCredentials(r *http.Request, access, refresh string) *http.Request {
	cookies := r.Cookies()
	r.Header.Del("Cookie")
	for _, cookie := range cookies {
		if cookie.Name == AccessCookie || cookie.Name == RefreshCookie {
			continue
		}
		r.AddCookie(cookie)
	}
	if access != "" {
		r.AddCookie(&http.Cookie{Name: AccessCookie, Value: access})
	}
	if refresh != "" {
		r.AddCookie(&http.Cookie{Name: RefreshCookie, Value: refresh})
	}

	if access != "" {
		r.Header.Set("Authorization", "Bearer "+access)
	} else {
		r.Header.Del("Authorization")
	}
	return r.WithContext(context.WithValue(r.Context(), accessKey{}, access))
}
