package i18n

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "CategoryPassed"); got != "Passed" {
		t.Errorf("T(CategoryPassed) = %q, want 'Passed'", got)
	}
	if got := Category(ctx, "Excellent"); got != "Excellent" {
		t.Errorf("Category(Excellent) = %q, want 'Excellent'", got)
	}
}

func TestTranslateSpanish(t *testing.T) {
	ctx := initLang(t, "es")

	if got := Category(ctx, "Failed"); got != "Reprobado" {
		t.Errorf("Category(Failed) = %q, want 'Reprobado'", got)
	}
	if got := T(ctx, "SessionNotFound"); got != "Sesión no encontrada." {
		t.Errorf("T(SessionNotFound) = %q, want 'Sesión no encontrada.'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "StepsAnswered", 1); got != "1 step answered." {
		t.Errorf("Tp(StepsAnswered, 1) = %q, want '1 step answered.'", got)
	}
	if got := Tp(ctx, "StepsAnswered", 3); got != "3 steps answered." {
		t.Errorf("Tp(StepsAnswered, 3) = %q, want '3 steps answered.'", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "es")

	got := Td(ctx, "ScoreSummary", map[string]any{"Score": 3, "Total": 4, "Percentage": 75})
	if got != "3 de 4 puntos (75%)" {
		t.Errorf("Td(ScoreSummary) = %q, want '3 de 4 puntos (75%%)'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
	if got := Category(ctx, ""); got != "" {
		t.Errorf("Category(\"\") = %q, want empty", got)
	}
}

func TestLanguages(t *testing.T) {
	initLang(t, "en")
	langs := Languages()
	sort.Strings(langs)
	if len(langs) != 2 || langs[0] != "en" || langs[1] != "es" {
		t.Errorf("Languages() = %v, want [en es]", langs)
	}
}

func TestMiddlewareAcceptLanguage(t *testing.T) {
	initLang(t, "en")

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Category(r.Context(), "Passed")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "es-MX,es;q=0.9")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Aprobado" {
		t.Errorf("with Accept-Language es: got %q, want 'Aprobado'", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Passed" {
		t.Errorf("without Accept-Language: got %q, want 'Passed'", got)
	}
}

func TestLocalesHaveSameKeys(t *testing.T) {
	keys := func(name string) map[string]bool {
		data, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		out := make(map[string]bool, len(m))
		for k := range m {
			out[k] = true
		}
		return out
	}

	en, es := keys("en.json"), keys("es.json")
	for k := range en {
		if !es[k] {
			t.Errorf("es.json is missing %q", k)
		}
	}
	for k := range es {
		if !en[k] {
			t.Errorf("en.json is missing %q", k)
		}
	}
}
