// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Canonical user roles. Stored verbatim in User.Role.
const (
	RoleClient = "client"
	RoleBarber = "barber"
	RoleAdmin  = "admin"
)

// Roles lists every valid role.
func Roles() []string {
	return []string{RoleClient, RoleBarber, RoleAdmin}
}

// IsStaffRole reports whether role can see and manage every appointment.
func IsStaffRole(role string) bool {
	return role == RoleBarber || role == RoleAdmin
}

// User is anyone who can sign in: clients booking appointments and the
// barbershop staff serving them.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         string             `bson:"role" json:"role"` // client | barber | admin

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
