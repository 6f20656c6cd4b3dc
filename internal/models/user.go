package models

/** --------------------ENTITIES-------------------- */

// UserProfile is the persisted profile half of the credential pair.
// It mirrors what the login endpoint returns alongside the token.
type UserProfile struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	Name  string   `json:"name"`
}

// HasRole reports whether the profile carries the given role.
func (p UserProfile) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

/** -------------------- DTOs -------------------- */

// LoginRequest is the body of the login call.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the token/profile pair returned on successful login.
type LoginResponse struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}
