package domain

// Role is a position in the fixed church hierarchy. Levels form a total
// order; a higher level satisfies every requirement below it.
type Role string

const (
	RoleMember     Role = "MEMBER"
	RoleVIP        Role = "VIP"
	RoleLeader     Role = "LEADER"
	RoleAdmin      Role = "ADMIN"
	RolePastor     Role = "PASTOR"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

var roleLevels = map[Role]int{
	RoleMember:     1,
	RoleVIP:        2,
	RoleLeader:     3,
	RoleAdmin:      4,
	RolePastor:     5,
	RoleSuperAdmin: 6,
}

// Level returns the role's position in the hierarchy. Unknown roles are
// level 0 and never satisfy any requirement.
func (r Role) Level() int {
	return roleLevels[r]
}

// MaxRoleLevel returns the highest level among the given roles.
func MaxRoleLevel(roles []Role) int {
	max := 0
	for _, r := range roles {
		if l := r.Level(); l > max {
			max = l
		}
	}
	return max
}
