package model

import "time"

// User represents an application user record as stored in the
// `users` table.  Handlers expose a trimmed view without the hash.
//
// Fields:
//
//	ID           – UUID primary key.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password.
//	FullName     – display name.
//	Department   – optional department label.
//	Role         – one of the Role constants.
//	ManagerType  – set only for managers.
//	IsActive     – inactive users cannot log in.
type User struct {
	ID           string       // users.id
	Email        string       // users.email
	PasswordHash string       // users.password_hash
	FullName     string       // users.full_name
	Department   *string      // users.department (nullable)
	Role         Role         // users.role
	ManagerType  *ManagerType // users.manager_type (nullable)
	IsActive     bool         // users.is_active
	CreatedAt    time.Time    // users.created_at
	UpdatedAt    time.Time    // users.updated_at
}

// Principal returns the authorization identity of u.
func (u User) Principal() Principal {
	p := Principal{UserID: u.ID, Role: u.Role}
	if u.ManagerType != nil {
		p.ManagerType = *u.ManagerType
	}
	return p
}
