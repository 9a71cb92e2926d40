package models

import "slices"

// Profile is the user record returned by the server after authentication.
type Profile struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	FullName    string   `json:"full_name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// Clone returns a deep copy so callers can't mutate session-owned state.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Roles = slices.Clone(p.Roles)
	c.Permissions = slices.Clone(p.Permissions)
	return &c
}

func (p *Profile) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

func (p *Profile) HasPermission(permission string) bool {
	return p != nil && slices.Contains(p.Permissions, permission)
}
