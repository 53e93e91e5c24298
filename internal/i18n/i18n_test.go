package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	require.NoError(t, Init("en"))
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")
	assert.Equal(t, "UniPrep Copilot", T(ctx, "AppTitle"))
	assert.Equal(t, "User already exists", T(ctx, "UserExists"))
}

func TestTranslateHindi(t *testing.T) {
	ctx := initLang(t, "hi")
	assert.Equal(t, "उपयोगकर्ता नहीं मिला", T(ctx, "UserNotFound"))
}

func TestUnsupportedLanguageFallsBack(t *testing.T) {
	ctx := initLang(t, "fr")
	assert.Equal(t, "Invalid credentials", T(ctx, "InvalidCredentials"))
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")
	assert.Equal(t, "Post reported (1 report so far)", Tp(ctx, "PostReported", 1))
	assert.Equal(t, "Post reported (5 reports so far)", Tp(ctx, "PostReported", 5))
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")
	assert.Equal(t, "Topic is required", Td(ctx, "FieldRequired", map[string]any{"Field": "Topic"}))
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")
	assert.Equal(t, "NonExistentKey", T(ctx, "NonExistentKey"))
}

func TestLanguages(t *testing.T) {
	require.NoError(t, Init("en"))
	var tags []string
	for _, tag := range Languages() {
		tags = append(tags, tag.String())
	}
	assert.ElementsMatch(t, []string{"en", "hi"}, tags)
}

func TestMiddlewareUsesAcceptLanguage(t *testing.T) {
	require.NoError(t, Init("en"))
	var got string
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "SubjectNotFound")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "hi-IN,hi;q=0.9,en;q=0.8")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "विषय नहीं मिला", got)

	req = httptest.NewRequest(http.MethodGet, "/?lang=en", nil)
	req.Header.Set("Accept-Language", "hi")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "Subject not found", got)
}
