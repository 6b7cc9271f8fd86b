package rbac

// Role names. Keep these stable; they are stored on users and invites and
// carried in access tokens.
const (
	RoleAdmin         = "admin"
	RoleBusinessOwner = "business_owner"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// IsValidRole reports whether role is assignable to a user.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleBusinessOwner:
		return true
	default:
		return false
	}
}

// CanAccessBusiness is the ownership rule for business-scoped resources:
// admins see every business, owners only their own.
func CanAccessBusiness(role, userID, ownerID string) bool {
	if IsAdmin(role) {
		return true
	}
	return role == RoleBusinessOwner && userID != "" && userID == ownerID
}
