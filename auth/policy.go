package auth

// Action adalah nama aksi yang dicek terhadap policy role.
type Action string

const (
	ActionTableCreate     Action = "table:create"
	ActionTablePatch      Action = "table:patch"
	ActionTableTransition Action = "table:transition"
	ActionGuestWrite      Action = "guest:write"
	ActionWineEntryWrite  Action = "wine_entry:write"
	ActionUserList        Action = "user:list"
)

// Policy dipasang per deployment dan di-inject ke controller.
// Pengecekan di client hanya UX; server wajib memanggil Can sendiri.
type Policy interface {
	Can(role string, action Action) bool
}

// RolePolicy adalah implementasi matrix role -> action.
type RolePolicy map[string]map[Action]bool

func (p RolePolicy) Can(role string, action Action) bool {
	allowed, ok := p[role]
	if !ok {
		return false
	}
	return allowed[action]
}

// DefaultPolicy -> matrix bawaan; deployment lain bisa mengganti seluruhnya.
func DefaultPolicy() RolePolicy {
	full := map[Action]bool{
		ActionTableCreate:     true,
		ActionTablePatch:      true,
		ActionTableTransition: true,
		ActionGuestWrite:      true,
		ActionWineEntryWrite:  true,
		ActionUserList:        true,
	}

	return RolePolicy{
		"admin":   full,
		"manager": full,
		"server": {
			ActionTableCreate:     true,
			ActionTablePatch:      true,
			ActionTableTransition: true,
			ActionGuestWrite:      true,
			ActionWineEntryWrite:  true,
		},
		"sommelier": {
			ActionWineEntryWrite: true,
		},
	}
}
