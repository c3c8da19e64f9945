package core

// Actor is the authenticated identity handed to the core by the identity
// layer. A nil *Actor means an anonymous reader.
type Actor struct {
	UserID string
	Role   Role
	Banned bool
}

// IsAdmin reports whether the actor has the admin role
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// CanWrite returns nil if the actor may mutate content
func (a *Actor) CanWrite() error {
	if a == nil || a.UserID == "" {
		return ErrUnauthenticated
	}
	if a.Banned || a.Role == RoleGuest {
		return ErrForbidden
	}
	return nil
}

// Owns reports whether the actor authored content by authorID
func (a *Actor) Owns(authorID string) bool {
	return a != nil && a.UserID != "" && a.UserID == authorID
}

// CanModerate reports whether the actor may edit or delete content by authorID
func (a *Actor) CanModerate(authorID string) bool {
	return a.Owns(authorID) || a.IsAdmin()
}
