package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func runI18N(t *testing.T, headers map[string]string, lookup CountryLookup) (locale, country string) {
	t.Helper()
	handler := I18N("en", lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale = LocaleFromContext(r.Context())
		country = CountryFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return locale, country
}

func TestI18NExplicitHeaderWins(t *testing.T) {
	locale, _ := runI18N(t, map[string]string{
		"X-Locale":        "pt-BR",
		"Accept-Language": "en-US",
	}, nil)
	if locale != "pt" {
		t.Fatalf("locale = %q", locale)
	}
}

func TestI18NAcceptLanguagePortuguese(t *testing.T) {
	locale, _ := runI18N(t, map[string]string{"Accept-Language": "pt-BR,pt;q=0.9,en;q=0.5"}, nil)
	if locale != "pt" {
		t.Fatalf("locale = %q", locale)
	}
}

func TestI18NBrazilianCountryDefaultsToPortuguese(t *testing.T) {
	locale, country := runI18N(t, map[string]string{"X-Country-Code": "br"}, nil)
	if locale != "pt" || country != "BR" {
		t.Fatalf("locale = %q, country = %q", locale, country)
	}
}

func TestI18NGeoIPLookupFeedsLocale(t *testing.T) {
	lookup := func(ip string) (string, error) {
		if ip != "203.0.113.9" {
			t.Errorf("lookup ip = %q", ip)
		}
		return "BR", nil
	}
	locale, country := runI18N(t, nil, lookup)
	if locale != "pt" || country != "BR" {
		t.Fatalf("locale = %q, country = %q", locale, country)
	}
}

func TestI18NDefaultsToEnglish(t *testing.T) {
	locale, country := runI18N(t, nil, nil)
	if locale != "en" || country != "" {
		t.Fatalf("locale = %q, country = %q", locale, country)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:999"
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	if ip := ClientIP(req); ip != "198.51.100.7" {
		t.Fatalf("ip = %q", ip)
	}
}
