package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bigkaa/expiry-reminder/internal/api/openapi"
)

func TestRequestValidator(t *testing.T) {
	v, err := NewRequestValidator(openapi.Spec, testLogger())
	if err != nil {
		t.Fatalf("NewRequestValidator() ошибка: %v", err)
	}

	var gotBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusNoContent)
	})
	handler := v.Middleware()(next)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"список без параметров", http.MethodGet, "/api/v1/dispatch-records", "", http.StatusNoContent},
		{"корректный фильтр", http.MethodGet, "/api/v1/dispatch-records?status=FAILED&limit=10&offset=0", "", http.StatusNoContent},
		{"неизвестный статус", http.MethodGet, "/api/v1/dispatch-records?status=DONE", "", http.StatusBadRequest},
		{"limit вне диапазона", http.MethodGet, "/api/v1/dispatch-records?limit=5000", "", http.StatusBadRequest},
		{"limit не число", http.MethodGet, "/api/v1/dispatch-records?limit=ten", "", http.StatusBadRequest},
		{"некорректный document_id", http.MethodGet, "/api/v1/dispatch-records?document_id=42", "", http.StatusBadRequest},
		{"удаление по UUID", http.MethodDelete, "/api/v1/dispatch-records/3f1c2b9e-8a4d-4c1e-9f2a-0b6d7e8f9a10", "", http.StatusNoContent},
		{"удаление по не-UUID", http.MethodDelete, "/api/v1/dispatch-records/abc", "", http.StatusBadRequest},
		{"тестовое письмо", http.MethodPost, "/api/v1/notifier/test", `{"to":"ops@example.com","locale":"id"}`, http.StatusNoContent},
		{"тестовое письмо без to", http.MethodPost, "/api/v1/notifier/test", `{"locale":"id"}`, http.StatusBadRequest},
		{"тестовое письмо с лишним полем", http.MethodPost, "/api/v1/notifier/test", `{"to":"ops@example.com","cc":"x"}`, http.StatusBadRequest},
		{"ручной запуск", http.MethodPost, "/api/v1/reminders/run", "", http.StatusNoContent},
		{"путь вне контракта пропускается", http.MethodGet, "/unknown", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.target, body)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, ожидали %d (тело: %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if rec.Code == http.StatusBadRequest {
				var resp struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.Error.Code != "VALIDATION_ERROR" {
					t.Errorf("тело ошибки: %v %+v", err, resp)
				}
			}
		})
	}

	// Тело запроса доступно handler после валидации
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifier/test", strings.NewReader(`{"to":"ops@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if gotBody != `{"to":"ops@example.com"}` {
		t.Errorf("тело после валидации = %q", gotBody)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"/health/live", "/health/live"},
		{"/api/v1/dispatch-records", "/api/v1/dispatch-records"},
		{"/api/v1/dispatch-records/3f1c2b9e-8a4d-4c1e-9f2a-0b6d7e8f9a10", "/api/v1/dispatch-records/{id}"},
		{"/api/v1/reminders/run", "/api/v1/reminders/run"},
		{"/wp-admin/login.php", "other"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.input); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, ожидали %q", tt.input, got, tt.want)
		}
	}
}
