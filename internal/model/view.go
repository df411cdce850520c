package model

import "time"

// View models are the outward-facing shapes of the entities. Each is
// produced by a pure function over the entity, so the set of exposed
// fields is fixed at compile time; credentials and lifecycle internals
// never appear in a view.

// UserView is the outward shape of a user.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Status    string    `json:"status"`
	IsAdmin   bool      `json:"isAdmin"`
	Role      *RoleView `json:"role,omitempty"`
}

// RoleView is the outward shape of a role.
type RoleView struct {
	ID          string       `json:"id,omitempty"`
	Type        string       `json:"type"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions"`
}

// TokenView is the outward shape of an issued token.
type TokenView struct {
	Token    string    `json:"token"`
	Type     string    `json:"type"`
	ExpireAt time.Time `json:"expireAt"`
}

// View projects the user onto its outward shape.
func (u *User) View() UserView {
	view := UserView{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Status:    u.Status,
		IsAdmin:   u.IsAdmin,
	}
	if u.Role != nil {
		role := u.Role.View()
		view.Role = &role
	}
	return view
}

// View projects the role onto its outward shape.
func (r *Role) View() RoleView {
	return RoleView{
		ID:          r.ID,
		Type:        r.Type,
		Description: r.Description,
		Permissions: r.Permissions,
	}
}

// View projects the token onto its outward shape.
func (t *Token) View() TokenView {
	return TokenView{
		Token:    t.Token,
		Type:     t.Type,
		ExpireAt: t.ExpireAt,
	}
}
