package entity

import "github.com/google/uuid"

const (
	RoleSuperAdmin = "super-admin"
	RoleAdmin      = "admin"
	RoleAgent      = "agent"
)

// Actor is the authenticated user performing an intent. Roles come from the
// access token; no role lookup happens here.
type Actor struct {
	ID    uuid.UUID `json:"id"`
	Roles []string  `json:"roles"`
}

// HasRole reports whether the actor carries any of the given roles
func (a Actor) HasRole(roles ...string) bool {
	for _, have := range a.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// IsAdmin reports whether the actor may approve, reject reviews, delete
// rejected quotations and issue invoices
func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin, RoleSuperAdmin)
}

// IDPtr returns a pointer to the actor ID, or nil for an anonymous actor
func (a Actor) IDPtr() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}
