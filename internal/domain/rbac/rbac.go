// Пакет rbac — роли операторов сервиса напоминаний.
// admin запускает прогон, очищает FAILED-записи журнала и шлёт тестовое письмо;
// readonly видит журнал и состояние планировщика.
package rbac

// Role — роль оператора. Пустая роль — нет доступа к API.
type Role string

const (
	RoleNone     Role = ""
	RoleReadonly Role = "readonly"
	RoleAdmin    Role = "admin"
)

// rank задаёт порядок привилегий: admin покрывает readonly.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleReadonly:
		return 1
	default:
		return 0
	}
}

// Valid сообщает, известна ли роль.
func (r Role) Valid() bool {
	return r.rank() > 0
}

// Satisfies сообщает, достаточно ли роли r для операции, требующей required.
func (r Role) Satisfies(required Role) bool {
	return r.Valid() && r.rank() >= required.rank()
}

// GroupMapping — группы IdP, дающие роли.
type GroupMapping struct {
	Admin    []string
	Readonly []string
}

// Resolve вычисляет роль оператора. Группы IdP имеют приоритет;
// если ни одна группа не совпала, берутся роли realm с именами admin/readonly.
// Из нескольких совпадений выбирается старшая роль.
func Resolve(groups, realmRoles []string, m GroupMapping) Role {
	best := RoleNone
	pick := func(r Role) {
		if r.rank() > best.rank() {
			best = r
		}
	}

	for _, g := range groups {
		if contains(m.Admin, g) {
			pick(RoleAdmin)
		}
		if contains(m.Readonly, g) {
			pick(RoleReadonly)
		}
	}
	if best != RoleNone {
		return best
	}

	for _, name := range realmRoles {
		pick(Role(name))
	}
	return best
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
