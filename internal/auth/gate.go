package auth

import "github.com/eringen/blogapi/internal/apperr"

// CheckRole fails with Forbidden unless role equals required.
func CheckRole(role, required string) error {
	if role != required {
		return apperr.E(apperr.Forbidden, "%ss only", required)
	}
	return nil
}

// CheckOwner lets the owner of a resource or any administrator through.
func CheckOwner(actorID int64, actorRole string, ownerID int64, what string) error {
	if actorID == ownerID || actorRole == RoleAdmin {
		return nil
	}
	return apperr.E(apperr.Forbidden, "Not authorized to modify this %s", what)
}
