package access

// Role — роль пользователя, вычисляется из статических списков id.
type Role int

const (
	RoleOrdinary Role = iota
	RoleModerator
	RoleAdmin
)

// Roles отвечает на вопрос "кто этот пользователь".
// Неизвестные id — обычные пользователи.
type Roles struct {
	admins     map[int64]struct{}
	moderators map[int64]struct{}
}

func New(adminIDs, moderatorIDs []int64) *Roles {
	r := &Roles{
		admins:     make(map[int64]struct{}, len(adminIDs)),
		moderators: make(map[int64]struct{}, len(moderatorIDs)),
	}
	for _, id := range adminIDs {
		r.admins[id] = struct{}{}
	}
	for _, id := range moderatorIDs {
		r.moderators[id] = struct{}{}
	}
	return r
}

func (r *Roles) RoleOf(userID int64) Role {
	if _, ok := r.admins[userID]; ok {
		return RoleAdmin
	}
	if _, ok := r.moderators[userID]; ok {
		return RoleModerator
	}
	return RoleOrdinary
}

func (r *Roles) IsAdmin(userID int64) bool {
	return r.RoleOf(userID) == RoleAdmin
}

// IsModerator: админы всегда модераторы.
func (r *Roles) IsModerator(userID int64) bool {
	return r.RoleOf(userID) >= RoleModerator
}
