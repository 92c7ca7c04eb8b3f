package service

import "testing"

func TestJWKSHealthPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "JWKS endpoint Keycloak",
			input:    "https://keycloak.local/realms/reminder/protocol/openid-connect/certs",
			expected: "/realms/reminder/protocol/openid-connect/certs",
		},
		{
			name:     "URL без path",
			input:    "https://keycloak.local",
			expected: "/health",
		},
		{
			name:     "некорректный URL",
			input:    "://bad",
			expected: "/health",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jwksHealthPath(tt.input); got != tt.expected {
				t.Errorf("jwksHealthPath(%q) = %q, ожидали %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDependencyStatus(t *testing.T) {
	tests := []struct {
		name   string
		health map[string]bool
		want   string
	}{
		{"до первой проверки", nil, "ok"},
		{"всё доступно", map[string]bool{"postgresql": true, "keycloak-jwks": true}, "ok"},
		{"JWKS недоступен", map[string]bool{"postgresql": true, "keycloak-jwks": false}, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, msg := dependencyStatus(tt.health); got != tt.want {
				t.Errorf("dependencyStatus() = %q (%s), ожидали %q", got, msg, tt.want)
			}
		})
	}
}
