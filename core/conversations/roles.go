package conversations

// RoleID identifies one of the fixed specialist perspectives.
type RoleID string

const (
	RoleGuidelines RoleID = "guidelines"
	RoleEvidence   RoleID = "evidence"
	RoleCases      RoleID = "cases"
	RoleSafety     RoleID = "safety"
)

// Role is a specialist taking part in the consultation.
type Role struct {
	ID          RoleID
	Name        string
	Icon        string
	Description string
}

// DefaultRoles returns the speaking order used by every session unless
// overridden.
func DefaultRoles() []Role {
	return []Role{
		{ID: RoleGuidelines, Name: "Guidelines", Icon: "📋", Description: "Clinical protocols and guidelines specialist"},
		{ID: RoleEvidence, Name: "Evidence", Icon: "📊", Description: "Medical research and statistics expert"},
		{ID: RoleCases, Name: "Cases", Icon: "🗂️", Description: "Real-world case patterns analyst"},
		{ID: RoleSafety, Name: "Safety", Icon: "⚠️", Description: "Emergency and risk assessment specialist"},
	}
}

// RoleIDs lists the ids of roles in order.
func RoleIDs(roles []Role) []RoleID {
	ids := make([]RoleID, 0, len(roles))
	for _, role := range roles {
		ids = append(ids, role.ID)
	}
	return ids
}

// FindRole looks a role up by id.
func FindRole(roles []Role, id RoleID) (Role, bool) {
	for _, role := range roles {
		if role.ID == id {
			return role, true
		}
	}
	return Role{}, false
}
