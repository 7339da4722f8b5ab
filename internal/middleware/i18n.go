package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey stores the negotiated locale in the request context.
var LocaleKey = localeContextKey{}

var supportedLocales = []language.Tag{
	language.English,
	language.Indonesian,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// I18N negotiates the response locale from the X-Locale header or
// Accept-Language, falling back to the configured default.
func I18N(defaultLocale string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := detectLocale(r, defaultLocale)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback string) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		return matchLocale(v, fallback)
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		if tags, _, err := language.ParseAcceptLanguage(v); err == nil && len(tags) > 0 {
			tag, _, _ := localeMatcher.Match(tags...)
			base, _ := tag.Base()
			return base.String()
		}
	}
	if fallback != "" {
		return fallback
	}
	return "en"
}

func matchLocale(raw, fallback string) string {
	tag, err := language.Parse(raw)
	if err != nil {
		if fallback != "" {
			return fallback
		}
		return "en"
	}
	matched, _, _ := localeMatcher.Match(tag)
	base, _ := matched.Base()
	return base.String()
}

// LocaleFromContext returns the negotiated locale, defaulting to English.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return "en"
}
