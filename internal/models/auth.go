package models

// AuthContext is the identity a request acts as. The zero value is anonymous.
type AuthContext struct {
	UserID int64
	Role   Role
}

// Anonymous returns an unauthenticated context
func Anonymous() AuthContext {
	return AuthContext{}
}

// Authenticated returns a context acting as the given user
func Authenticated(userID int64, role Role) AuthContext {
	return AuthContext{UserID: userID, Role: role}
}

// IsAuthenticated reports whether the context carries a user
func (a AuthContext) IsAuthenticated() bool {
	return a.UserID > 0
}

// HasRole reports whether the context is authenticated with one of roles
func (a AuthContext) HasRole(roles ...Role) bool {
	if !a.IsAuthenticated() {
		return false
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
