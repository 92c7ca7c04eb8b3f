package rbac

import "testing"

func TestResolve(t *testing.T) {
	mapping := GroupMapping{
		Admin:    []string{"reminder-admins"},
		Readonly: []string{"reminder-viewers", "auditors"},
	}

	tests := []struct {
		name       string
		groups     []string
		realmRoles []string
		want       Role
	}{
		{name: "группа администраторов", groups: []string{"reminder-admins"}, want: RoleAdmin},
		{name: "группа просмотра", groups: []string{"auditors"}, want: RoleReadonly},
		{name: "обе группы — старшая роль", groups: []string{"reminder-viewers", "reminder-admins"}, want: RoleAdmin},
		{name: "чужая группа", groups: []string{"finance"}, want: RoleNone},
		{name: "роль realm без групп", realmRoles: []string{"offline_access", "readonly"}, want: RoleReadonly},
		{name: "группа важнее роли realm", groups: []string{"auditors"}, realmRoles: []string{"admin"}, want: RoleReadonly},
		{name: "неизвестная роль realm", realmRoles: []string{"superuser"}, want: RoleNone},
		{name: "ничего", want: RoleNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.groups, tt.realmRoles, mapping); got != tt.want {
				t.Errorf("Resolve(%v, %v) = %q, ожидали %q", tt.groups, tt.realmRoles, got, tt.want)
			}
		})
	}
}

func TestRole_Satisfies(t *testing.T) {
	tests := []struct {
		role, required Role
		want           bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleReadonly, true},
		{RoleReadonly, RoleReadonly, true},
		{RoleReadonly, RoleAdmin, false},
		{RoleNone, RoleReadonly, false},
		{Role("superuser"), RoleReadonly, false},
	}
	for _, tt := range tests {
		if got := tt.role.Satisfies(tt.required); got != tt.want {
			t.Errorf("%q.Satisfies(%q) = %v, ожидали %v", tt.role, tt.required, got, tt.want)
		}
	}
}
