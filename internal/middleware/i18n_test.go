package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(r *http.Request)
		country string
		want    string
	}{
		{
			name: "x-locale overrides",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "id")
				r.Header.Set("Accept-Language", "de-DE")
			},
			want: "id",
		},
		{
			name: "accept-language british",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-GB,en;q=0.9")
			},
			want: "en-GB",
		},
		{
			name: "accept-language regional german",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "de-AT;q=0.9")
			},
			want: "de",
		},
		{
			name:    "country used without language headers",
			country: "JP",
			want:    "ja",
		},
		{
			name: "unsupported language falls back",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "sw")
			},
			want: "en-US",
		},
		{
			name: "default",
			want: "en-US",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			if got := DetectLocale(req, tc.country); got != tc.want {
				t.Fatalf("DetectLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	lookup := func(ip string) string {
		if ip == "203.0.113.5" {
			return "id"
		}
		return ""
	}
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"proxy header", map[string]string{"CF-IPCountry": "de"}, "203.0.113.5:1", "DE"},
		{"unknown proxy value ignored", map[string]string{"CF-IPCountry": "XX"}, "203.0.113.5:1", "ID"},
		{"ip lookup", nil, "203.0.113.5:1", "ID"},
		{"forwarded ip lookup", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.1:1", "ID"},
		{"unknown", nil, "198.51.100.1:1", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			if got := ResolveCountry(req, lookup); got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestI18NStoresContext(t *testing.T) {
	var locale, country string
	h := I18N(func(string) string { return "fr" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale = LocaleFromContext(r.Context())
		country = CountryFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "fr-FR")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if locale != "fr" || country != "FR" {
		t.Fatalf("locale = %q country = %q, want fr FR", locale, country)
	}
}
