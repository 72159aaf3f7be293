package model

import "time"

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleLibrarian Role = "LIBRARIAN"
	RolePatron    Role = "PATRON"
)

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleLibrarian:
		return 2
	case RolePatron:
		return 1
	}
	return 0
}

// AtLeast reports whether r sits at or above min in the role order
// ADMIN > LIBRARIAN > PATRON.
func (r Role) AtLeast(min Role) bool { return r.rank() >= min.rank() }

func (r Role) Valid() bool { return r.rank() > 0 }

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Phone        *string   `json:"phone,omitempty"`
	Address      *string   `json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterReq represents self-service signup payload
// swagger:model RegisterReq
type RegisterReq struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginReq represents login payload
// swagger:model LoginReq
type LoginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
