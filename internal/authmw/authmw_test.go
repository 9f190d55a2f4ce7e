package authmw

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func serve(h http.Handler, auth string) int {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestBearerTokens_ValidToken(t *testing.T) {
	t.Parallel()

	h := BearerTokens("secret-token-123")(okHandler)
	if code := serve(h, "Bearer secret-token-123"); code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
}

func TestBearerTokens_AnyOfSeveral(t *testing.T) {
	t.Parallel()

	h := BearerTokens("field-kit", "", "clinic-dashboard")(okHandler)

	tests := []struct {
		auth string
		want int
	}{
		{"Bearer field-kit", http.StatusOK},
		{"Bearer clinic-dashboard", http.StatusOK},
		{"Bearer ", http.StatusUnauthorized},
		{"Bearer other", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		if code := serve(h, tt.auth); code != tt.want {
			t.Errorf("%q: status = %d, want %d", tt.auth, code, tt.want)
		}
	}
}

func TestBearerTokens_WrongPrefix(t *testing.T) {
	t.Parallel()

	h := BearerTokens("secret")(okHandler)

	tests := []struct {
		name  string
		value string
	}{
		{"Basic auth", "Basic dXNlcjpwYXNz"},
		{"lowercase bearer", "bearer secret"},
		{"no prefix", "secret"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if code := serve(h, tt.value); code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", code, http.StatusUnauthorized)
			}
		})
	}
}

func TestBearerTokens_InvalidToken(t *testing.T) {
	t.Parallel()

	h := BearerTokens("correct-token")(okHandler)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong token", "wrong-token"},
		{"partial match", "correct"},
		{"token with suffix", "correct-token-extra"},
		{"empty token", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if code := serve(h, "Bearer "+tt.token); code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", code, http.StatusUnauthorized)
			}
		})
	}
}

func TestBearerTokens_NoTokensRejectsAll(t *testing.T) {
	t.Parallel()

	h := BearerTokens("", "")(okHandler)
	if code := serve(h, "Bearer "); code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", code, http.StatusUnauthorized)
	}
}

func TestBearerTokens_PassesRequestThrough(t *testing.T) {
	t.Parallel()

	var called bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})

	h := BearerTokens("tok")(inner)
	if code := serve(h, "Bearer tok"); code != http.StatusCreated {
		t.Errorf("status = %d, want %d", code, http.StatusCreated)
	}
	if !called {
		t.Error("inner handler was not called")
	}
}

func TestSplitTokens(t *testing.T) {
	t.Parallel()

	got := SplitTokens(" a, b ,,c ,")
	if want := []string{"a", "b", "c"}; !slices.Equal(got, want) {
		t.Errorf("SplitTokens = %v, want %v", got, want)
	}
	if got := SplitTokens(""); len(got) != 0 {
		t.Errorf("SplitTokens(\"\") = %v, want empty", got)
	}
}
