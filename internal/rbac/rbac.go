package rbac

type Role string
type Action string
type MemberStatus string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

const (
	StatusActive   MemberStatus = "ACTIVE"
	StatusInvited  MemberStatus = "INVITED"
	StatusDisabled MemberStatus = "DISABLED"
)

const (
	ActionRead          Action = "read"
	ActionInvite        Action = "invite"
	ActionManageMembers Action = "manage_members"
	ActionUpdateOrg     Action = "update_org"
	ActionDeleteOrg     Action = "delete_org"
)

var actions = []Action{ActionRead, ActionInvite, ActionManageMembers, ActionUpdateOrg, ActionDeleteOrg}

func Can(role Role, action Action) bool {
	switch role {
	case RoleOwner:
		return true
	case RoleAdmin:
		return action != ActionDeleteOrg
	case RoleMember:
		return action == ActionRead
	default:
		return false
	}
}

// Permissions lists every action with its verdict for role, for page data.
func Permissions(role Role) map[Action]bool {
	out := make(map[Action]bool, len(actions))
	for _, action := range actions {
		out[action] = Can(role, action)
	}
	return out
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleOwner, RoleAdmin, RoleMember:
		return Role(role)
	default:
		return RoleMember
	}
}

func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}
