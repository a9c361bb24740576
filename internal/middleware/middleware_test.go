package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/billo/billo/internal/auth"
	"github.com/billo/billo/internal/models"
)

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.Generate(models.NewUser("user_1", "Alice", "alice@example.com", ""))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var seen string
	handler := RequireAuth(jwtManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
		if GetEmail(r.Context()) != "alice@example.com" {
			t.Errorf("email = %q", GetEmail(r.Context()))
		}
		if c := GetClaims(r.Context()); c == nil || c.Name != "Alice" {
			t.Errorf("claims = %+v", c)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/settlements", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				var body map[string]string
				json.NewDecoder(rec.Body).Decode(&body)
				if body["code"] != "unauthenticated" {
					t.Errorf("body = %v", body)
				}
				if seen != "" {
					t.Error("handler should not run")
				}
			} else if seen != "user_1" {
				t.Errorf("user id = %q, want user_1", seen)
			}
		})
	}
}

func TestRequestLoggerReportsRouteAndUser(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, _ := jwtManager.Generate(models.NewUser("user_1", "Alice", "alice@example.com", ""))

	r := chi.NewRouter()
	r.Use(RequestLogger(nil))
	r.With(RequireAuth(jwtManager)).Get("/settlements/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/settlements/abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log is not JSON: %v (%q)", err, buf.String())
	}
	if entry["route"] != "/settlements/{id}" {
		t.Errorf("route = %v", entry["route"])
	}
	if entry["user_id"] != "user_1" {
		t.Errorf("user_id = %v", entry["user_id"])
	}
	if entry["status"] != float64(404) || entry["level"] != "WARN" {
		t.Errorf("status/level = %v/%v", entry["status"], entry["level"])
	}
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/settlements", nil)
		rec := httptest.NewRecorder()
		CORS([]string{"*"})(ok).ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
			t.Error("PATCH should be allowed")
		}
	})

	t.Run("listed origin is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://billo.app")
		rec := httptest.NewRecorder()
		CORS([]string{"https://billo.app/"})(ok).ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://billo.app" {
			t.Errorf("allow origin = %q", got)
		}
	})

	t.Run("other origin gets nothing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		CORS([]string{"https://billo.app"})(ok).ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("allow origin = %q, want empty", got)
		}
	})
}
