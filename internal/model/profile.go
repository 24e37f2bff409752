package model

// Role is a user's application-wide role.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleProjectManager Role = "project_manager"
	RoleMember         Role = "member"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks whether the role is a known value.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleMember:
		return true
	}
	return false
}

// CanEditProjects reports whether the role may create projects or change
// project metadata.
func (r Role) CanEditProjects() bool {
	return r == RoleAdmin || r == RoleProjectManager
}

// Profile is a user's public profile row.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Role      Role   `json:"role"`
}

// DisplayName returns the full name, falling back to email and then id.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FullName != "" {
		return p.FullName
	}
	if p.Email != "" {
		return p.Email
	}
	return p.ID
}

// Session identifies the signed-in user. The zero value is a guest session.
type Session struct {
	ID     string `json:"id,omitempty"` // per-login instance id, for log correlation
	UserID string `json:"user_id,omitempty"`
	Role   Role   `json:"role,omitempty"`
}

// IsGuest reports whether no user is signed in.
func (s Session) IsGuest() bool {
	return s.UserID == ""
}
