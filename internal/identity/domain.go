package identity

import "time"

// Role classifies an identity's access level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity represents one registered principal.
type Identity struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Projection is the non-secret view of an identity returned to clients.
// The password hash never leaves the persistence boundary.
type Projection struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Project strips the secret fields.
func (i Identity) Project() Projection {
	return Projection{
		ID:        i.ID,
		Name:      i.Name,
		Email:     i.Email,
		Role:      i.Role,
		CreatedAt: i.CreatedAt,
	}
}
