package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"все ok", []string{"ok", "ok"}, "ok"},
		{"один degraded", []string{"ok", "degraded"}, "degraded"},
		{"fail важнее degraded", []string{"degraded", "fail", "ok"}, "fail"},
		{"без проверок", nil, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overallStatus(tt.statuses...); got != tt.want {
				t.Errorf("overallStatus(%v) = %q, ожидали %q", tt.statuses, got, tt.want)
			}
		})
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		checks     []NamedChecker
		wantStatus int
		wantBody   string
	}{
		{
			name: "всё в порядке",
			checks: []NamedChecker{
				{Name: "postgresql", Checker: staticChecker{"ok", ""}},
				{Name: "smtp", Checker: staticChecker{"ok", ""}},
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "планировщик отключён",
			checks: []NamedChecker{
				{Name: "postgresql", Checker: staticChecker{"ok", ""}},
				{Name: "scheduler", Checker: staticChecker{"degraded", "запуск по расписанию отключён"}},
			},
			wantStatus: http.StatusOK,
			wantBody:   "degraded",
		},
		{
			name: "PostgreSQL недоступен",
			checks: []NamedChecker{
				{Name: "postgresql", Checker: staticChecker{"fail", "connection refused"}},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "fail",
		},
		{
			name:       "проверка не инициализирована",
			checks:     []NamedChecker{{Name: "smtp"}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks...)
			rec := httptest.NewRecorder()
			h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, ожидали %d", rec.Code, tt.wantStatus)
			}
			var body healthReadyResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.wantBody {
				t.Errorf("status = %q, ожидали %q", body.Status, tt.wantBody)
			}
			if len(body.Checks) != len(tt.checks) {
				t.Errorf("checks = %v", body.Checks)
			}
			if body.Service != "expiry-reminder" {
				t.Errorf("service = %q", body.Service)
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().HealthLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("статус = %d", rec.Code)
	}
}
