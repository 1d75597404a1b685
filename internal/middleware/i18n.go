package middleware

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

var supportedLocales = language.NewMatcher([]language.Tag{
	language.English, // default
	language.Spanish,
	language.Portuguese,
	language.German,
	language.Indonesian,
})

// Locale negotiates the response language from Accept-Language. Only the
// quota/upgrade messaging is localized; everything else is English.
func Locale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag, _ := language.MatchStrings(supportedLocales, r.Header.Get("Accept-Language"))
		base, _ := tag.Base()
		ctx := context.WithValue(r.Context(), localeKey, base.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LocaleFromContext returns the negotiated base language, defaulting to "en".
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(localeKey).(string); ok && v != "" {
		return v
	}
	return "en"
}
